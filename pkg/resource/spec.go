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

package resource

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/walteh/treesync/pkg/fsys"
	"gitlab.com/tozd/go/errors"
)

// 🔗 LinkOption says how symbolic links are replicated
type LinkOption int

const (
	// KeepLinks recreates links as links with their literal target
	KeepLinks LinkOption = iota
	// CopyLinks replaces every link with a copy of what it points at
	CopyLinks
	// CopyUnsafeLinks copies links that escape the source base directory and keeps the others
	CopyUnsafeLinks
	// SkipLinks ignores links
	SkipLinks
)

var linkOptionNames = map[LinkOption]string{
	KeepLinks:       "keep_links",
	CopyLinks:       "copy_links",
	CopyUnsafeLinks: "copy_unsafe_links",
	SkipLinks:       "skip_links",
}

func (o LinkOption) String() string {
	if s, ok := linkOptionNames[o]; ok {
		return s
	}
	return "unknown"
}

// ParseLinkOption parses the snake case name of a LinkOption
func ParseLinkOption(s string) (LinkOption, error) {
	for o, name := range linkOptionNames {
		if name == s {
			return o, nil
		}
	}
	return 0, errors.Errorf("unknown link option %q", s)
}

// ⚖️ TransferBehavior says what happens to an existing destination file
type TransferBehavior int

const (
	// OverwriteIfSrcNewer replaces the destination when its size differs or it is older than the source
	OverwriteIfSrcNewer TransferBehavior = iota
	// ForceOverwrite always replaces the destination
	ForceOverwrite
	// FailIfDifferentType behaves like OverwriteIfSrcNewer but fails when the
	// destination exists with another type
	FailIfDifferentType
)

var behaviorNames = map[TransferBehavior]string{
	OverwriteIfSrcNewer: "overwrite_if_src_newer",
	ForceOverwrite:      "force_overwrite",
	FailIfDifferentType: "fail_if_different_type",
}

func (b TransferBehavior) String() string {
	if s, ok := behaviorNames[b]; ok {
		return s
	}
	return "unknown"
}

// ParseTransferBehavior parses the snake case name of a TransferBehavior
func ParseTransferBehavior(s string) (TransferBehavior, error) {
	for b, name := range behaviorNames {
		if name == s {
			return b, nil
		}
	}
	return 0, errors.Errorf("unknown transfer behavior %q", s)
}

// DefaultMatch selects the whole tree below the source base directory
const DefaultMatch = "**"

// 📋 Specification is one match rule of a transfer.
//
// Specifications are applied in order. An include replaces earlier entries
// with the same destination path; an exclude removes earlier entries whose
// source path it matches.
type Specification struct {
	SrcBaseDir  string
	DestBaseDir string
	// DestName renames the single matched entry below DestBaseDir.
	DestName string
	// Match is a doublestar pattern relative to SrcBaseDir.
	Match   string
	Exclude bool

	FileAttributes      fsys.Attributes
	DirectoryAttributes fsys.Attributes

	LinkOption       LinkOption
	TransferBehavior TransferBehavior
	Template         bool
}

func (s *Specification) pattern() string {
	if s.Match == "" {
		return DefaultMatch
	}
	return s.Match
}

func (s *Specification) matches(rel string) bool {
	ok, _ := doublestar.Match(s.pattern(), rel)
	return ok
}

// Validate checks the specification can drive a discovery
func (s *Specification) Validate() error {
	if !path.IsAbs(s.SrcBaseDir) {
		return errors.Errorf("source base directory %q must be absolute", s.SrcBaseDir)
	}
	if !s.Exclude && !path.IsAbs(s.DestBaseDir) {
		return errors.Errorf("destination base directory %q must be absolute", s.DestBaseDir)
	}
	if !doublestar.ValidatePattern(s.pattern()) {
		return errors.Errorf("invalid match pattern %q", s.Match)
	}
	if strings.Contains(s.DestName, "/") || s.DestName == "." || s.DestName == ".." {
		return errors.Errorf("destination name %q must be a single path element", s.DestName)
	}
	if _, ok := linkOptionNames[s.LinkOption]; !ok {
		return errors.Errorf("invalid link option %d", s.LinkOption)
	}
	if _, ok := behaviorNames[s.TransferBehavior]; !ok {
		return errors.Errorf("invalid transfer behavior %d", s.TransferBehavior)
	}
	if err := s.FileAttributes.Validate(); err != nil {
		return errors.Errorf("file attributes: %w", err)
	}
	if err := s.DirectoryAttributes.Validate(); err != nil {
		return errors.Errorf("directory attributes: %w", err)
	}
	return nil
}
