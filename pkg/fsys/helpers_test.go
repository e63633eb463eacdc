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
	"io"
	"path"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTree is a minimal DirectoryMaker and TreeRemover keyed by clean path
type memTree struct {
	kinds   map[string]Kind
	mkdirs  []string
	deleted []string
}

func newMemTree(entries map[string]Kind) *memTree {
	m := &memTree{kinds: map[string]Kind{"/": KindDirectory}}
	for k, v := range entries {
		m.kinds[k] = v
	}
	return m
}

func (m *memTree) Stat(_ context.Context, p string) (*FileInfo, error) {
	kind, ok := m.kinds[p]
	if !ok {
		return nil, NewPathError("lstat", p, ErrNotExist, nil)
	}
	return &FileInfo{Path: p, Name: path.Base(p), Kind: kind}, nil
}

func (m *memTree) CreateDirectory(_ context.Context, p string) error {
	if _, ok := m.kinds[p]; ok {
		return NewPathError("mkdir", p, ErrExist, nil)
	}
	if m.kinds[path.Dir(p)] != KindDirectory {
		return NewPathError("mkdir", p, ErrNotExist, nil)
	}
	m.kinds[p] = KindDirectory
	m.mkdirs = append(m.mkdirs, p)
	return nil
}

func (m *memTree) ReadDir(_ context.Context, p string) ([]FileInfo, error) {
	var out []FileInfo
	for k, v := range m.kinds {
		if k != p && path.Dir(k) == p {
			out = append(out, FileInfo{Path: k, Name: path.Base(k), Kind: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memTree) Delete(_ context.Context, p string) error {
	for k := range m.kinds {
		if strings.HasPrefix(k, p+"/") {
			return NewPathError("remove", p, ErrNotEmpty, nil)
		}
	}
	delete(m.kinds, p)
	m.deleted = append(m.deleted, p)
	return nil
}

func TestCreateDirectories(t *testing.T) {
	ctx := context.Background()

	t.Run("creates_missing_parents_in_order", func(t *testing.T) {
		m := newMemTree(map[string]Kind{"/data": KindDirectory})
		require.NoError(t, CreateDirectories(ctx, m, "/data/a/b/c"))
		assert.Equal(t, []string{"/data/a", "/data/a/b", "/data/a/b/c"}, m.mkdirs)
	})

	t.Run("existing_directory_is_accepted", func(t *testing.T) {
		m := newMemTree(map[string]Kind{"/data": KindDirectory})
		require.NoError(t, CreateDirectories(ctx, m, "/data/"))
		assert.Empty(t, m.mkdirs)
	})

	t.Run("file_in_the_way_fails", func(t *testing.T) {
		m := newMemTree(map[string]Kind{"/data": KindRegular})
		err := CreateDirectories(ctx, m, "/data/a")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotDir)
	})
}

func TestRemoveTree(t *testing.T) {
	m := newMemTree(map[string]Kind{
		"/d":       KindDirectory,
		"/d/f":     KindRegular,
		"/d/l":     KindSymlink,
		"/d/sub":   KindDirectory,
		"/d/sub/g": KindRegular,
		"/keep":    KindRegular,
	})

	require.NoError(t, RemoveTree(context.Background(), m, "/d"))
	assert.Equal(t, []string{"/d/f", "/d/l", "/d/sub/g", "/d/sub", "/d"}, m.deleted)
	assert.Contains(t, m.kinds, "/keep")
}

func TestTypeQueries(t *testing.T) {
	ctx := context.Background()
	m := newMemTree(map[string]Kind{"/f": KindRegular, "/l": KindSymlink})

	var f FileSystem = &statOnly{m}

	ok, err := Exists(ctx, f, "/missing")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = IsRegularFile(ctx, f, "/f")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsSymbolicLink(ctx, f, "/l")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsDirectory(ctx, f, "/l")
	require.NoError(t, err)
	assert.False(t, ok)
}

// statOnly satisfies FileSystem for the type query helpers
type statOnly struct {
	*memTree
}

func (s *statOnly) StatFollow(ctx context.Context, p string) (*FileInfo, error) {
	return s.Stat(ctx, p)
}
func (s *statOnly) Open(context.Context, string) (io.ReadCloser, error) { return nil, ErrIO }
func (s *statOnly) CreateDirectories(ctx context.Context, p string) error {
	return CreateDirectories(ctx, s, p)
}
func (s *statOnly) CreateSymbolicLink(context.Context, string, string) error { return ErrIO }
func (s *statOnly) ReadSymbolicLink(context.Context, string) (string, error) { return "", ErrIO }
func (s *statOnly) DeleteDirectory(ctx context.Context, p string) error {
	return RemoveTree(ctx, s, p)
}
func (s *statOnly) SetAttributes(context.Context, string, Attributes) error { return nil }
func (s *statOnly) Release()                                                {}
