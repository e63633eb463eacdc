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
	"context"
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"
)

var (
	ErrCritical      = errors.Base("transfer hit a critical error")
	ErrFailed        = errors.Base("transfer failed")
	ErrInterrupted   = errors.Base("transfer interrupted")
	ErrUnrecoverable = errors.Base("workers did not stop after cancellation")
)

// ❌ Error is the single error a run returns. It wraps one of ErrCritical,
// ErrFailed or ErrInterrupted and every cause collected during the run.
type Error struct {
	kind   error
	state  State
	causes []error
}

func newError(state State, causes []error) *Error {
	e := &Error{state: state, causes: causes}
	switch state.outcome() {
	case StateCritical:
		e.kind = ErrCritical
	case StateFailed:
		e.kind = ErrFailed
	default:
		e.kind = ErrInterrupted
	}
	return e
}

// Error renders a multi-line report, one cause per line
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.kind.Error())
	switch len(e.causes) {
	case 0:
		return b.String()
	case 1:
		b.WriteString(": 1 cause")
	default:
		fmt.Fprintf(&b, ": %d causes", len(e.causes))
	}
	for _, c := range e.causes {
		b.WriteString("\n  - ")
		b.WriteString(strings.ReplaceAll(c.Error(), "\n", "\n    "))
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	return append([]error{e.kind}, e.causes...)
}

// Causes returns the underlying errors in the order they were collected
func (e *Error) Causes() []error {
	out := make([]error, len(e.causes))
	copy(out, e.causes)
	return out
}

// State is the accumulated bitmask at the end of the run
func (e *Error) State() State { return e.state }

// 📄 ItemError ties a failure to the item that caused it
type ItemError struct {
	Source      string
	Destination string
	Err         error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s -> %s: %v", e.Source, e.Destination, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// interrupted reports whether err is a cancellation rather than a failure of
// the item itself. A real failure racing with cancellation stays a failure.
func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
