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
	"context"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🏷️ AttributeKind names one attribute of the shared vocabulary
type AttributeKind string

const (
	AttrPosixPermissions AttributeKind = "posix_permissions"
	AttrPosixGroup       AttributeKind = "posix_group"
	AttrDOSArchive       AttributeKind = "dos_archive"
	AttrDOSHidden        AttributeKind = "dos_hidden"
	AttrDOSReadOnly      AttributeKind = "dos_readonly"
	AttrDOSSystem        AttributeKind = "dos_system"
)

var knownKinds = map[AttributeKind]bool{
	AttrPosixPermissions: true,
	AttrPosixGroup:       true,
	AttrDOSArchive:       true,
	AttrDOSHidden:        true,
	AttrDOSReadOnly:      true,
	AttrDOSSystem:        true,
}

// Attributes maps attribute kinds to their textual value
type Attributes map[AttributeKind]string

// Kinds returns the attribute kinds in a stable order
func (a Attributes) Kinds() []AttributeKind {
	kinds := make([]AttributeKind, 0, len(a))
	for k := range a {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Validate checks every kind is known and every value parses
func (a Attributes) Validate() error {
	for _, kind := range a.Kinds() {
		if !knownKinds[kind] {
			return errors.Errorf("attribute %q: %w", kind, ErrAttributeUnsupported)
		}
		var err error
		switch kind {
		case AttrPosixPermissions:
			_, err = ParsePermissions(a[kind])
		case AttrPosixGroup:
			if strings.TrimSpace(a[kind]) == "" {
				err = errors.Errorf("empty group: %w", ErrAttributeInvalid)
			}
		default:
			_, err = ParseFlag(a[kind])
		}
		if err != nil {
			return errors.Errorf("attribute %q: %w", kind, err)
		}
	}
	return nil
}

// ParsePermissions parses an octal permission string such as "0644"
func ParsePermissions(v string) (fs.FileMode, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(v), 8, 32)
	if err != nil || n > 0o7777 {
		return 0, errors.Errorf("permissions %q: %w", v, ErrAttributeInvalid)
	}
	mode := fs.FileMode(n & 0o777)
	if n&0o4000 != 0 {
		mode |= fs.ModeSetuid
	}
	if n&0o2000 != 0 {
		mode |= fs.ModeSetgid
	}
	if n&0o1000 != 0 {
		mode |= fs.ModeSticky
	}
	return mode, nil
}

// ParseFlag parses a DOS flag value
func ParseFlag(v string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, errors.Errorf("flag %q: %w", v, ErrAttributeInvalid)
	}
	return b, nil
}

// AttributeSetter applies one attribute. It returns ErrAttributeUnsupported
// for kinds the backend cannot represent.
type AttributeSetter func(kind AttributeKind, value string) error

// ApplyAttributes runs set for every attribute of attrs. Unsupported kinds are
// logged and skipped; every other failure is collected and returned as one
// *AttributesError once the whole batch has been attempted.
func ApplyAttributes(ctx context.Context, p string, attrs Attributes, set AttributeSetter) error {
	logger := zerolog.Ctx(ctx)

	var failures []AttributeFailure
	for _, kind := range attrs.Kinds() {
		value := attrs[kind]
		err := set(kind, value)
		switch {
		case err == nil:
			logger.Trace().Str("path", p).Str("attribute", string(kind)).Str("value", value).Msg("attribute applied")
		case errors.Is(err, ErrAttributeUnsupported):
			logger.Warn().Str("path", p).Str("attribute", string(kind)).Msg("attribute not supported by backend, skipping")
		default:
			failures = append(failures, AttributeFailure{Kind: kind, Value: value, Err: err})
		}
	}

	if len(failures) > 0 {
		return &AttributesError{Path: p, Failures: failures}
	}
	return nil
}
