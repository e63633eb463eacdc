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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/treesync/pkg/fsys"
	"github.com/walteh/treesync/pkg/fsys/local"
)

// fixture builds a source tree. Entries ending in "/" are directories, entries
// containing " -> " are symlinks, everything else is a file holding its name.
func fixture(t *testing.T, entries ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, e := range entries {
		switch {
		case e[len(e)-1] == '/':
			require.NoError(t, os.MkdirAll(filepath.Join(root, e), 0o755))
		case containsArrow(e):
			name, target := splitArrow(e)
			require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(root, name)), 0o755))
			require.NoError(t, os.Symlink(target, filepath.Join(root, name)))
		default:
			require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(root, e)), 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(root, e), []byte(e), 0o644))
		}
	}
	return filepath.ToSlash(root)
}

func containsArrow(s string) bool {
	_, target := splitArrow(s)
	return target != ""
}

func splitArrow(s string) (string, string) {
	for i := 0; i+4 <= len(s); i++ {
		if s[i:i+4] == " -> " {
			return s[:i], s[i+4:]
		}
	}
	return s, ""
}

func discover(t *testing.T, specs ...*Specification) (*Tree, error) {
	t.Helper()
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	f := local.New(ctx)
	defer f.Release()
	return Discover(ctx, f, specs)
}

func rels(items []*Transferable) []string {
	out := make([]string, 0, len(items))
	for _, t := range items {
		out = append(out, t.RelativePath())
	}
	return out
}

func drain(q *Queue) []*Transferable {
	var out []*Transferable
	for {
		t, ok := q.Next()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}

func TestDiscoverLogScenario(t *testing.T) {
	src := fixture(t, "a.log", "notes.txt")
	require.NoError(t, os.Symlink(filepath.Join(src, "a.log"), filepath.Join(src, "b.log")))

	tree, err := discover(t, &Specification{
		SrcBaseDir:       src,
		DestBaseDir:      "/backup",
		Match:            "*.log",
		LinkOption:       KeepLinks,
		TransferBehavior: ForceOverwrite,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"."}, rels(tree.Directories()))
	assert.Equal(t, "/backup", tree.Directories()[0].DestinationPath())

	files := drain(tree.Files())
	require.Len(t, files, 1)
	assert.Equal(t, "/backup/a.log", files[0].DestinationPath())

	links := tree.Links()
	require.Len(t, links, 1)
	assert.Equal(t, "/backup/b.log", links[0].DestinationPath())
	assert.Equal(t, src+"/a.log", links[0].LinkTarget())
	assert.False(t, links[0].IsSafeLink())
}

func TestDiscoverParentsBeforeChildren(t *testing.T) {
	src := fixture(t, "a/b/c.txt", "z.txt")

	tree, err := discover(t, &Specification{SrcBaseDir: src, DestBaseDir: "/dst", Match: "**/*.txt"})
	require.NoError(t, err)

	assert.Equal(t, []string{".", "a", "a/b"}, rels(tree.Directories()))
	assert.ElementsMatch(t, []string{"a/b/c.txt", "z.txt"}, rels(drain(tree.Files())))
}

func TestDiscoverIncludeExcludeAlgebra(t *testing.T) {
	src := fixture(t, "keep.txt", "drop.tmp", "again.tmp")

	tree, err := discover(t,
		&Specification{SrcBaseDir: src, DestBaseDir: "/dst"},
		&Specification{SrcBaseDir: src, Match: "*.tmp", Exclude: true},
		&Specification{SrcBaseDir: src, DestBaseDir: "/dst", Match: "again.tmp", TransferBehavior: ForceOverwrite},
	)
	require.NoError(t, err)

	files := drain(tree.Files())
	assert.Equal(t, []string{"keep.txt", "again.tmp"}, rels(files), "re-included entry moves to the end")
	assert.Equal(t, ForceOverwrite, files[1].TransferBehavior(), "last writer wins")
}

func TestDiscoverLaterIncludeReplacesSameDestination(t *testing.T) {
	first := fixture(t, "conf.yaml")
	second := fixture(t, "conf.yaml")

	tree, err := discover(t,
		&Specification{SrcBaseDir: first, DestBaseDir: "/etc/app"},
		&Specification{SrcBaseDir: second, DestBaseDir: "/etc/app", Template: true},
	)
	require.NoError(t, err)

	files := drain(tree.Files())
	require.Len(t, files, 1)
	assert.Equal(t, second+"/conf.yaml", files[0].SourcePath())
	assert.True(t, files[0].IsTemplate())
}

func TestDiscoverDestName(t *testing.T) {
	src := fixture(t, "one.txt", "two.txt")

	tree, err := discover(t, &Specification{SrcBaseDir: src, DestBaseDir: "/dst", DestName: "renamed", Match: "one.txt"})
	require.NoError(t, err)
	files := drain(tree.Files())
	require.Len(t, files, 1)
	assert.Equal(t, "/dst/renamed", files[0].DestinationPath())

	_, err = discover(t, &Specification{SrcBaseDir: src, DestBaseDir: "/dst", DestName: "renamed", Match: "*.txt"})
	assert.ErrorIs(t, err, ErrAmbiguousDestName)
}

func TestDiscoverLinkOptions(t *testing.T) {
	src := fixture(t,
		"real/inner.txt",
		"safe -> real",
		"loop -> .",
		"up -> ..",
	)

	t.Run("keep_links_does_not_descend", func(t *testing.T) {
		tree, err := discover(t, &Specification{SrcBaseDir: src, DestBaseDir: "/dst", LinkOption: KeepLinks})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"loop", "safe", "up"}, rels(tree.Links()))
		assert.Equal(t, []string{"real/inner.txt"}, rels(drain(tree.Files())))
	})

	t.Run("copy_links_descends_and_stops_at_loops", func(t *testing.T) {
		tree, err := discover(t, &Specification{SrcBaseDir: src, DestBaseDir: "/dst", LinkOption: CopyLinks})
		require.NoError(t, err)
		assert.Empty(t, tree.Links())
		assert.ElementsMatch(t, []string{"real/inner.txt", "safe/inner.txt"}, rels(drain(tree.Files())))
		assert.Contains(t, rels(tree.Directories()), "safe")
	})

	t.Run("copy_unsafe_links_keeps_safe_ones", func(t *testing.T) {
		tree, err := discover(t, &Specification{SrcBaseDir: src, DestBaseDir: "/dst", LinkOption: CopyUnsafeLinks})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"loop", "safe"}, rels(tree.Links()))
		assert.Contains(t, rels(tree.Directories()), "up", "unsafe link to a directory is copied")
	})

	t.Run("skip_links_are_listed_for_the_state_machine", func(t *testing.T) {
		tree, err := discover(t, &Specification{SrcBaseDir: src, DestBaseDir: "/dst", LinkOption: SkipLinks})
		require.NoError(t, err)
		assert.Equal(t, 3, tree.LinkCount())
	})
}

func TestDiscoverDanglingCopiedLinkIsAFile(t *testing.T) {
	src := fixture(t, "gone -> missing.txt")

	tree, err := discover(t, &Specification{SrcBaseDir: src, DestBaseDir: "/dst", LinkOption: CopyLinks})
	require.NoError(t, err)

	files := drain(tree.Files())
	require.Len(t, files, 1)
	assert.Nil(t, files[0].TargetInfo())
}

func TestDiscoverFailures(t *testing.T) {
	_, err := discover(t, &Specification{SrcBaseDir: "/definitely/not/here", DestBaseDir: "/dst"})
	require.Error(t, err)
	assert.ErrorIs(t, err, fsys.ErrNotExist)

	src := fixture(t, "file")
	_, err = discover(t, &Specification{SrcBaseDir: src + "/file", DestBaseDir: "/dst"})
	assert.ErrorIs(t, err, fsys.ErrNotDir)

	_, err = discover(t, &Specification{SrcBaseDir: "relative", DestBaseDir: "/dst"})
	assert.Error(t, err)
}

func TestDiscoverNoSpecifications(t *testing.T) {
	tree, err := discover(t)
	require.NoError(t, err)
	assert.Zero(t, tree.DirectoryCount())
	assert.Zero(t, tree.FileCount())
}
