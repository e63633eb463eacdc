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
	"fmt"
	"path"
	"strings"

	"github.com/walteh/treesync/pkg/fsys"
)

// 📦 Transferable is one discovered entry. It is immutable once discovery returns.
type Transferable struct {
	spec       *Specification
	source     string
	rel        string
	info       *fsys.FileInfo
	linkTarget string
	// targetInfo follows the link; nil for a dangling link
	targetInfo *fsys.FileInfo
}

func newTransferable(spec *Specification, source, rel string, info *fsys.FileInfo) *Transferable {
	return &Transferable{spec: spec, source: source, rel: rel, info: info}
}

func (t *Transferable) Spec() *Specification { return t.spec }
func (t *Transferable) SourcePath() string   { return t.source }

// RelativePath is the source path relative to SrcBaseDir ("." for the base itself)
func (t *Transferable) RelativePath() string { return t.rel }

// DestinationPath is DestBaseDir joined with DestName, or with the relative path
func (t *Transferable) DestinationPath() string {
	if t.spec.DestName != "" && t.rel != "." {
		return path.Join(t.spec.DestBaseDir, t.spec.DestName)
	}
	return path.Join(t.spec.DestBaseDir, t.rel)
}

// Info is the source entry as seen without following a final link
func (t *Transferable) Info() *fsys.FileInfo { return t.info }

// LinkTarget is the literal target of a symbolic link
func (t *Transferable) LinkTarget() string { return t.linkTarget }

// TargetInfo describes what a symbolic link points at, or nil when it dangles
func (t *Transferable) TargetInfo() *fsys.FileInfo { return t.targetInfo }

func (t *Transferable) IsDirectory() bool    { return t.info.IsDirectory() }
func (t *Transferable) IsRegularFile() bool  { return t.info.IsRegularFile() }
func (t *Transferable) IsSymbolicLink() bool { return t.info.IsSymbolicLink() }

// IsSafeLink reports whether the link target is relative and, resolved from
// the link's parent, never climbs above the source base directory. It is
// false for anything that is not a link.
func (t *Transferable) IsSafeLink() bool {
	if !t.IsSymbolicLink() {
		return false
	}
	return isSafeTarget(t.rel, t.linkTarget)
}

func isSafeTarget(rel, target string) bool {
	if target == "" || path.IsAbs(target) {
		return false
	}

	depth := 0
	if parent := path.Dir(rel); parent != "." {
		depth = strings.Count(parent, "/") + 1
	}

	for _, part := range strings.Split(target, "/") {
		switch part {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return false
			}
		default:
			depth++
		}
	}
	return true
}

// CopiesLink reports whether a link is materialized as a copy of its target
func (t *Transferable) CopiesLink() bool {
	if !t.IsSymbolicLink() {
		return false
	}
	switch t.spec.LinkOption {
	case CopyLinks:
		return true
	case CopyUnsafeLinks:
		return !t.IsSafeLink()
	default:
		return false
	}
}

// EffectiveKind is the kind the destination entry will have
func (t *Transferable) EffectiveKind() fsys.Kind {
	if t.CopiesLink() {
		if t.targetInfo == nil {
			return fsys.KindRegular
		}
		return t.targetInfo.Kind
	}
	return t.info.Kind
}

// Attributes returns the expected attributes for the effective kind
func (t *Transferable) Attributes() fsys.Attributes {
	if t.EffectiveKind() == fsys.KindDirectory {
		return t.spec.DirectoryAttributes
	}
	return t.spec.FileAttributes
}

func (t *Transferable) LinkOption() LinkOption             { return t.spec.LinkOption }
func (t *Transferable) TransferBehavior() TransferBehavior { return t.spec.TransferBehavior }
func (t *Transferable) IsTemplate() bool                   { return t.spec.Template }

func (t *Transferable) String() string {
	if t.IsSymbolicLink() {
		return fmt.Sprintf("%s -> %s (%s => %s)", t.source, t.linkTarget, t.info.Kind, t.DestinationPath())
	}
	return fmt.Sprintf("%s (%s => %s)", t.source, t.info.Kind, t.DestinationPath())
}
