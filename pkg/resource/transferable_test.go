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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/treesync/pkg/fsys"
)

func TestIsSafeTarget(t *testing.T) {
	tests := []struct {
		name   string
		rel    string
		target string
		want   bool
	}{
		{name: "sibling", rel: "link", target: "a.log", want: true},
		{name: "dot_prefix", rel: "link", target: "./a.log", want: true},
		{name: "climbs_from_base", rel: "link", target: "../x", want: false},
		{name: "climbs_back_to_base", rel: "a/b/link", target: "../../x", want: true},
		{name: "climbs_past_base", rel: "a/b/link", target: "../../../x", want: false},
		{name: "dips_below_mid_path", rel: "link", target: "a/../../x", want: false},
		{name: "down_then_up", rel: "link", target: "a/b/../../c", want: true},
		{name: "absolute", rel: "link", target: "/data/a.log", want: false},
		{name: "empty", rel: "link", target: "", want: false},
		{name: "double_slash", rel: "a/link", target: "..//b", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSafeTarget(tt.rel, tt.target))
		})
	}
}

func linkTransferable(spec *Specification, rel, target string, targetKind fsys.Kind) *Transferable {
	tr := newTransferable(spec, "/src/"+rel, rel, &fsys.FileInfo{Kind: fsys.KindSymlink})
	tr.linkTarget = target
	if targetKind != fsys.KindOther {
		tr.targetInfo = &fsys.FileInfo{Kind: targetKind}
	}
	return tr
}

func TestCopiesLink(t *testing.T) {
	tests := []struct {
		option LinkOption
		target string
		want   bool
	}{
		{KeepLinks, "../escape", false},
		{SkipLinks, "../escape", false},
		{CopyLinks, "inside", true},
		{CopyUnsafeLinks, "inside", false},
		{CopyUnsafeLinks, "../escape", true},
		{CopyUnsafeLinks, "/abs", true},
	}

	for _, tt := range tests {
		t.Run(tt.option.String()+"/"+tt.target, func(t *testing.T) {
			spec := &Specification{SrcBaseDir: "/src", DestBaseDir: "/dst", LinkOption: tt.option}
			tr := linkTransferable(spec, "link", tt.target, fsys.KindRegular)
			assert.Equal(t, tt.want, tr.CopiesLink())
		})
	}

	file := newTransferable(&Specification{LinkOption: CopyLinks}, "/src/f", "f", &fsys.FileInfo{Kind: fsys.KindRegular})
	assert.False(t, file.CopiesLink())
	assert.False(t, file.IsSafeLink())
}

func TestEffectiveKindAndAttributes(t *testing.T) {
	spec := &Specification{
		SrcBaseDir:          "/src",
		DestBaseDir:         "/dst",
		LinkOption:          CopyLinks,
		FileAttributes:      fsys.Attributes{fsys.AttrPosixPermissions: "0644"},
		DirectoryAttributes: fsys.Attributes{fsys.AttrPosixPermissions: "0755"},
	}

	toDir := linkTransferable(spec, "d", "real-dir", fsys.KindDirectory)
	assert.Equal(t, fsys.KindDirectory, toDir.EffectiveKind())
	assert.Equal(t, "0755", toDir.Attributes()[fsys.AttrPosixPermissions])

	dangling := linkTransferable(spec, "x", "missing", fsys.KindOther)
	assert.Equal(t, fsys.KindRegular, dangling.EffectiveKind())
	assert.Equal(t, "0644", dangling.Attributes()[fsys.AttrPosixPermissions])
}

func TestDestinationPath(t *testing.T) {
	spec := &Specification{SrcBaseDir: "/data", DestBaseDir: "/backup"}
	assert.Equal(t, "/backup/a/b.txt", newTransferable(spec, "/data/a/b.txt", "a/b.txt", &fsys.FileInfo{}).DestinationPath())
	assert.Equal(t, "/backup", newTransferable(spec, "/data", ".", &fsys.FileInfo{}).DestinationPath())

	renamed := &Specification{SrcBaseDir: "/data", DestBaseDir: "/backup", DestName: "renamed.txt"}
	assert.Equal(t, "/backup/renamed.txt", newTransferable(renamed, "/data/a/b.txt", "a/b.txt", &fsys.FileInfo{}).DestinationPath())
}

func TestQueue(t *testing.T) {
	spec := &Specification{SrcBaseDir: "/s", DestBaseDir: "/d"}
	tree := &Tree{}
	for _, name := range []string{"a", "b", "c"} {
		tree.files = append(tree.files, newTransferable(spec, "/s/"+name, name, &fsys.FileInfo{Kind: fsys.KindRegular}))
	}

	t.Run("fifo", func(t *testing.T) {
		q := tree.Files()
		var got []string
		for {
			item, ok := q.Next()
			if !ok {
				break
			}
			got = append(got, item.RelativePath())
		}
		assert.Equal(t, []string{"a", "b", "c"}, got)

		_, ok := q.Next()
		assert.False(t, ok, "exhausted queue keeps reporting exhaustion")
	})

	t.Run("restartable", func(t *testing.T) {
		assert.Equal(t, 3, tree.Files().Remaining())
	})

	t.Run("concurrent_pulls_hand_out_each_item_once", func(t *testing.T) {
		q := tree.Files()
		var mu sync.Mutex
		seen := map[string]int{}
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					item, ok := q.Next()
					if !ok {
						return
					}
					mu.Lock()
					seen[item.RelativePath()]++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Len(t, seen, 3)
		for _, n := range seen {
			assert.Equal(t, 1, n)
		}
	})
}

func TestParseEnums(t *testing.T) {
	for option, name := range linkOptionNames {
		got, err := ParseLinkOption(name)
		require.NoError(t, err)
		assert.Equal(t, option, got)
	}
	for behavior, name := range behaviorNames {
		got, err := ParseTransferBehavior(name)
		require.NoError(t, err)
		assert.Equal(t, behavior, got)
	}
	_, err := ParseLinkOption("follow")
	assert.Error(t, err)
	_, err = ParseTransferBehavior("merge")
	assert.Error(t, err)
}
