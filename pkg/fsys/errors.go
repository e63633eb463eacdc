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

package fsys

import (
	"fmt"
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Error kinds shared by every backend. Native protocol errors never cross the
// backend boundary except as the Cause of a *PathError.
var (
	ErrNotExist   = errors.Base("no such file or directory")
	ErrExist      = errors.Base("file already exists")
	ErrPermission = errors.Base("permission denied")
	ErrNotDir     = errors.Base("not a directory")
	ErrNotEmpty   = errors.Base("directory not empty")
	ErrNotSymlink = errors.Base("not a symbolic link")
	ErrIO         = errors.Base("input/output error")

	ErrAttributeUnsupported = errors.Base("attribute not supported")
	ErrAttributeInvalid     = errors.Base("invalid attribute value")
	ErrTemplating           = errors.Base("templating failed")
	ErrWrongType            = errors.Base("destination has a different type")
)

// PathError records the operation, the path and the kind of a backend failure.
// Cause holds the native error when there is one.
type PathError struct {
	Op    string
	Path  string
	Err   error
	Cause error
}

func (e *PathError) Error() string {
	if e.Cause == nil || e.Cause == e.Err {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Err, e.Cause)
}

func (e *PathError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// NewPathError builds a *PathError of the given kind
func NewPathError(op, p string, kind, cause error) error {
	return &PathError{Op: op, Path: p, Err: kind, Cause: cause}
}

// IsNotExist reports whether err is a not-found failure
func IsNotExist(err error) bool { return errors.Is(err, ErrNotExist) }

// IsExist reports whether err is an already-exists failure
func IsExist(err error) bool { return errors.Is(err, ErrExist) }

// IsPermission reports whether err is an access-denied failure
func IsPermission(err error) bool { return errors.Is(err, ErrPermission) }

// AttributeFailure is one attribute that could not be applied
type AttributeFailure struct {
	Kind  AttributeKind
	Value string
	Err   error
}

// 🏷️ AttributesError lists every attribute of a batch that failed. Attributes
// not listed were applied.
type AttributesError struct {
	Path     string
	Failures []AttributeFailure
}

func (e *AttributesError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s=%q: %v", f.Kind, f.Value, f.Err))
	}
	sort.Strings(parts)
	return fmt.Sprintf("setting attributes on %s: %s", e.Path, strings.Join(parts, "; "))
}

func (e *AttributesError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
