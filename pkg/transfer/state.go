// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transfer

import (
	"strings"
	"sync/atomic"
)

// 🚦 State is a bitmask of everything that happened during a run
type State uint32

const (
	StateSucceed     State = 0
	StateFailed      State = 1 << 0
	StateInterrupted State = 1 << 1
	StateCritical    State = 1 << 2
	StateRunning     State = 1 << 3
	StateNew         State = 1 << 4
)

var stateNames = []struct {
	bit  State
	name string
}{
	{StateNew, "new"},
	{StateRunning, "running"},
	{StateCritical, "critical"},
	{StateFailed, "failed"},
	{StateInterrupted, "interrupted"},
}

func (s State) Has(bit State) bool { return s&bit != 0 }

// String joins the set bits, "succeed" when none is set
func (s State) String() string {
	var parts []string
	for _, n := range stateNames {
		if s.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "succeed"
	}
	return strings.Join(parts, "|")
}

// outcome keeps only the highest priority result bit
func (s State) outcome() State {
	switch {
	case s.Has(StateCritical):
		return StateCritical
	case s.Has(StateFailed):
		return StateFailed
	case s.Has(StateInterrupted):
		return StateInterrupted
	default:
		return StateSucceed
	}
}

// stateCell accumulates bits with OR. It is only reset between runs.
type stateCell struct {
	v atomic.Uint32
}

func (c *stateCell) load() State { return State(c.v.Load()) }

func (c *stateCell) store(s State) { c.v.Store(uint32(s)) }

func (c *stateCell) add(s State) { c.v.Or(uint32(s)) }

func (c *stateCell) clear(s State) { c.v.And(^uint32(s)) }
