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
	"path"

	"gitlab.com/tozd/go/errors"
)

// Exists reports whether p exists, without following a final symlink
func Exists(ctx context.Context, f FileSystem, p string) (bool, error) {
	_, err := f.Stat(ctx, p)
	if err == nil {
		return true, nil
	}
	if IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// IsDirectory reports whether p is a directory (a symlink to a directory is not)
func IsDirectory(ctx context.Context, f FileSystem, p string) (bool, error) {
	return isKind(ctx, f, p, KindDirectory)
}

// IsRegularFile reports whether p is a regular file
func IsRegularFile(ctx context.Context, f FileSystem, p string) (bool, error) {
	return isKind(ctx, f, p, KindRegular)
}

// IsSymbolicLink reports whether p is a symbolic link
func IsSymbolicLink(ctx context.Context, f FileSystem, p string) (bool, error) {
	return isKind(ctx, f, p, KindSymlink)
}

func isKind(ctx context.Context, f FileSystem, p string, kind Kind) (bool, error) {
	info, err := f.Stat(ctx, p)
	if err != nil {
		if IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Kind == kind, nil
}

// DirectoryMaker is the subset of FileSystem CreateDirectories relies on
type DirectoryMaker interface {
	Stat(ctx context.Context, p string) (*FileInfo, error)
	CreateDirectory(ctx context.Context, p string) error
}

// 📁 CreateDirectories implements mkdir -p on top of single-level creation.
//
// An existing directory is accepted. An existing file or symlink at p (or at
// any parent) is an ErrNotDir failure. When the parent is missing it is created
// first; reaching a root that does not exist is an error.
func CreateDirectories(ctx context.Context, f DirectoryMaker, p string) error {
	p = path.Clean(p)

	info, err := f.Stat(ctx, p)
	if err == nil {
		if info.Kind == KindDirectory {
			return nil
		}
		return NewPathError("mkdir", p, ErrNotDir, nil)
	}
	if !IsNotExist(err) {
		return err
	}

	err = createOne(ctx, f, p)
	if err == nil || !IsNotExist(err) {
		return err
	}

	parent := path.Dir(p)
	if parent == p {
		return NewPathError("mkdir", p, ErrNotExist, nil)
	}
	if err := CreateDirectories(ctx, f, parent); err != nil {
		return errors.Errorf("creating parent of %s: %w", p, err)
	}

	return createOne(ctx, f, p)
}

// createOne creates p, accepting a directory that appeared concurrently
func createOne(ctx context.Context, f DirectoryMaker, p string) error {
	err := f.CreateDirectory(ctx, p)
	if err == nil || !IsExist(err) {
		return err
	}
	info, serr := f.Stat(ctx, p)
	if serr == nil && info.Kind == KindDirectory {
		return nil
	}
	return err
}

// TreeRemover is the subset of FileSystem RemoveTree relies on
type TreeRemover interface {
	ReadDir(ctx context.Context, p string) ([]FileInfo, error)
	Delete(ctx context.Context, p string) error
}

// 🗑️ RemoveTree deletes directory p depth first. Symlinks are removed, never followed.
func RemoveTree(ctx context.Context, f TreeRemover, p string) error {
	entries, err := f.ReadDir(ctx, p)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		child := path.Join(p, entry.Name)
		if entry.Kind == KindDirectory {
			if err := RemoveTree(ctx, f, child); err != nil {
				return err
			}
			continue
		}
		if err := f.Delete(ctx, child); err != nil {
			return err
		}
	}

	return f.Delete(ctx, p)
}
