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

package status

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// 📊 Status is what happened to one transferred item
type Status int

const (
	StatusUnknown   Status = iota
	StatusCopied           // file content uploaded
	StatusCreated          // directory created
	StatusLinked           // symbolic link created
	StatusUnchanged        // destination already matched
	StatusSkipped          // link skipped by policy
	StatusRemoved          // stale destination of a dangling link deleted
	StatusFailed           // item failed, see Entry.Err
)

var statusNames = map[Status]string{
	StatusCopied:    "copied",
	StatusCreated:   "created",
	StatusLinked:    "linked",
	StatusUnchanged: "unchanged",
	StatusSkipped:   "skipped",
	StatusRemoved:   "removed",
	StatusFailed:    "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Changed reports whether the destination was modified
func (s Status) Changed() bool {
	switch s {
	case StatusCopied, StatusCreated, StatusLinked, StatusRemoved:
		return true
	default:
		return false
	}
}

// 📄 Entry describes one processed item
type Entry struct {
	Source      string // absolute source path
	Destination string // absolute destination path
	Type        string // file, directory or symlink
	Status      Status
	Err         error
}

// Sink receives every entry as it is tracked
type Sink interface {
	Track(ctx context.Context, e Entry)
}

// 🔧 Manager records item outcomes from concurrent workers and forwards them
// to an optional sink.
type Manager struct {
	sink Sink

	mu      sync.Mutex
	entries []Entry
}

// 🏭 New creates a manager. sink may be nil.
func New(sink Sink) *Manager {
	return &Manager{sink: sink}
}

// 📝 Track records e. Safe for concurrent use.
func (m *Manager) Track(ctx context.Context, e Entry) {
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()

	ev := zerolog.Ctx(ctx).Debug()
	if e.Status == StatusFailed {
		ev = zerolog.Ctx(ctx).Warn().Err(e.Err)
	}
	ev.Str("path", e.Destination).Str("type", e.Type).Stringer("status", e.Status).Msg("item processed")

	if m.sink != nil {
		m.sink.Track(ctx, e)
	}
}

// Entries returns a copy of the tracked entries sorted by destination
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Destination < out[j].Destination })
	return out
}

// 📈 Summary counts outcomes per status
type Summary struct {
	Counts map[Status]int
	Total  int
}

func (s Summary) Count(st Status) int { return s.Counts[st] }

// Failed is a shorthand for Count(StatusFailed)
func (s Summary) Failed() int { return s.Counts[StatusFailed] }

// Changed is the number of items that modified the destination
func (s Summary) Changed() int {
	n := 0
	for st, c := range s.Counts {
		if st.Changed() {
			n += c
		}
	}
	return n
}

// Statuses lists the statuses present in the summary in declaration order
func (s Summary) Statuses() []Status {
	var out []Status
	for st := StatusCopied; st <= StatusFailed; st++ {
		if s.Counts[st] > 0 {
			out = append(out, st)
		}
	}
	return out
}

func (m *Manager) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{Counts: map[Status]int{}, Total: len(m.entries)}
	for _, e := range m.entries {
		s.Counts[e.Status]++
	}
	return s
}
