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

// Package reconcile decides whether a destination entry already matches a
// discovered source entry, and clears the way when it does not.
//
// Every check returns satisfied=true when nothing has to be created. When it
// returns false the destination path is free. No check ever writes content.
package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/treesync/pkg/fsys"
	"github.com/walteh/treesync/pkg/resource"
	"gitlab.com/tozd/go/errors"
)

// 📁 Directory is satisfied by a real directory (a link to one does not count)
func Directory(ctx context.Context, dst fsys.FileSystem, t *resource.Transferable) (bool, error) {
	p := t.DestinationPath()

	info, ok, err := stat(ctx, dst, p)
	if err != nil || !ok {
		return false, err
	}
	if info.IsDirectory() {
		return true, nil
	}

	zerolog.Ctx(ctx).Debug().Str("path", p).Stringer("found", info.Kind).Msg("replacing non directory")
	if err := dst.Delete(ctx, p); err != nil {
		return false, errors.Errorf("removing %s to make room for a directory: %w", p, err)
	}
	return false, nil
}

// 🔗 SymbolicLink is satisfied by a link whose literal target equals the source link's
func SymbolicLink(ctx context.Context, dst fsys.FileSystem, t *resource.Transferable) (bool, error) {
	p := t.DestinationPath()

	info, ok, err := stat(ctx, dst, p)
	if err != nil || !ok {
		return false, err
	}

	if info.IsSymbolicLink() {
		target, err := dst.ReadSymbolicLink(ctx, p)
		if err != nil {
			return false, errors.Errorf("reading existing link: %w", err)
		}
		if target == t.LinkTarget() {
			return true, nil
		}
		zerolog.Ctx(ctx).Debug().Str("path", p).Str("found", target).Str("want", t.LinkTarget()).Msg("link target changed")
	}

	return false, remove(ctx, dst, p, info)
}

// 📄 RegularFile is never satisfied under ForceOverwrite. Otherwise an existing
// regular file of the same size that is not older than src is kept. src
// describes the bytes that would be uploaded (the rendered file for templates).
func RegularFile(ctx context.Context, dst fsys.FileSystem, t *resource.Transferable, src *fsys.FileInfo) (bool, error) {
	p := t.DestinationPath()

	info, ok, err := stat(ctx, dst, p)
	if err != nil || !ok {
		return false, err
	}

	if info.IsRegularFile() && t.TransferBehavior() != resource.ForceOverwrite && upToDate(info, src) {
		return true, nil
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", p).
		Stringer("behavior", t.TransferBehavior()).
		Int64("dst_size", info.Size).
		Int64("src_size", src.Size).
		Msg("destination file will be replaced")

	return false, remove(ctx, dst, p, info)
}

// upToDate compares at second precision since several protocols truncate mtimes
func upToDate(dst, src *fsys.FileInfo) bool {
	if dst.Size != src.Size {
		return false
	}
	return !dst.ModTime.Before(src.ModTime.Truncate(time.Second))
}

func stat(ctx context.Context, dst fsys.FileSystem, p string) (*fsys.FileInfo, bool, error) {
	info, err := dst.Stat(ctx, p)
	if err == nil {
		return info, true, nil
	}
	if fsys.IsNotExist(err) {
		return nil, false, nil
	}
	return nil, false, errors.Errorf("checking destination %s: %w", p, err)
}

// remove deletes whatever is at p, recursively for a directory
func remove(ctx context.Context, dst fsys.FileSystem, p string, info *fsys.FileInfo) error {
	if info.IsDirectory() {
		if err := dst.DeleteDirectory(ctx, p); err != nil {
			return errors.Errorf("removing directory %s: %w", p, err)
		}
		return nil
	}
	if err := dst.Delete(ctx, p); err != nil {
		return errors.Errorf("removing %s: %w", p, err)
	}
	return nil
}
