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

// Package local implements fsys.TransferableFileSystem on the local disk.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/treesync/pkg/fsys"
	"gitlab.com/tozd/go/errors"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// storage is what the backend needs from afero: the base Fs plus the
// symlink capabilities only the OS-backed implementations provide.
type storage interface {
	afero.Fs
	afero.Symlinker
}

// 💾 FileSystem is the local disk backend
type FileSystem struct {
	fs        storage
	root      string
	templater fsys.Templater
	logger    zerolog.Logger
	released  atomic.Bool
}

var (
	_ fsys.TransferableFileSystem = (*FileSystem)(nil)
	_ fsys.LocalPather            = (*FileSystem)(nil)
)

// Option configures a FileSystem
type Option func(*FileSystem)

// WithRoot resolves every path below root
func WithRoot(root string) Option {
	return func(f *FileSystem) {
		f.root = filepath.Clean(root)
	}
}

// WithTemplater sets the templating collaborator returned by Templater
func WithTemplater(t fsys.Templater) Option {
	return func(f *FileSystem) {
		f.templater = t
	}
}

// WithFs replaces the afero file system. It panics when fs cannot handle
// symbolic links, a memory Fs for instance.
func WithFs(fs afero.Fs) Option {
	s, ok := fs.(storage)
	if !ok {
		panic(fmt.Sprintf("local: %s does not support symbolic links", fs.Name()))
	}
	return func(f *FileSystem) {
		f.fs = s
	}
}

// 🏭 New creates a local backend
func New(ctx context.Context, opts ...Option) *FileSystem {
	f := &FileSystem{
		fs:     &afero.OsFs{},
		logger: *zerolog.Ctx(ctx),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FileSystem) resolve(p string) string {
	p = filepath.FromSlash(p)
	if f.root == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(f.root, p)
}

// LocalPath implements fsys.LocalPather
func (f *FileSystem) LocalPath(p string) (string, bool) {
	return f.resolve(p), true
}

func (f *FileSystem) Templater() fsys.Templater {
	return f.templater
}

func (f *FileSystem) Stat(ctx context.Context, p string) (*fsys.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, _, err := f.fs.LstatIfPossible(f.resolve(p))
	if err != nil {
		return nil, translate("lstat", p, err)
	}
	return fsys.NewFileInfo(p, info), nil
}

func (f *FileSystem) StatFollow(ctx context.Context, p string) (*fsys.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := f.fs.Stat(f.resolve(p))
	if err != nil {
		return nil, translate("stat", p, err)
	}
	return fsys.NewFileInfo(p, info), nil
}

func (f *FileSystem) ReadDir(ctx context.Context, p string) ([]fsys.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := afero.ReadDir(f.fs, f.resolve(p))
	if err != nil {
		return nil, translate("readdir", p, err)
	}
	entries := make([]fsys.FileInfo, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, *fsys.NewFileInfo(joinSlash(p, info.Name()), info))
	}
	return entries, nil
}

func (f *FileSystem) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := f.fs.Open(f.resolve(p))
	if err != nil {
		return nil, translate("open", p, err)
	}
	return file, nil
}

func (f *FileSystem) CreateDirectory(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.fs.Mkdir(f.resolve(p), dirPerm); err != nil {
		return translate("mkdir", p, err)
	}
	return nil
}

func (f *FileSystem) CreateDirectories(ctx context.Context, p string) error {
	return fsys.CreateDirectories(ctx, f, p)
}

func (f *FileSystem) CreateSymbolicLink(ctx context.Context, link, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.fs.SymlinkIfPossible(target, f.resolve(link)); err != nil {
		return translate("symlink", link, err)
	}
	return nil
}

func (f *FileSystem) ReadSymbolicLink(ctx context.Context, link string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := f.fs.ReadlinkIfPossible(f.resolve(link))
	if err != nil {
		return "", translate("readlink", link, err)
	}
	return filepath.ToSlash(target), nil
}

func (f *FileSystem) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.fs.Remove(f.resolve(p)); err != nil {
		return translate("remove", p, err)
	}
	return nil
}

func (f *FileSystem) DeleteDirectory(ctx context.Context, p string) error {
	return fsys.RemoveTree(ctx, f, p)
}

func (f *FileSystem) SetAttributes(ctx context.Context, p string, attrs fsys.Attributes) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	real := f.resolve(p)
	return fsys.ApplyAttributes(ctx, p, attrs, func(kind fsys.AttributeKind, value string) error {
		switch kind {
		case fsys.AttrPosixPermissions:
			mode, err := fsys.ParsePermissions(value)
			if err != nil {
				return err
			}
			if err := f.fs.Chmod(real, mode); err != nil {
				return translate("chmod", p, err)
			}
			return nil
		case fsys.AttrPosixGroup:
			gid, err := lookupGroup(value)
			if err != nil {
				return err
			}
			if err := f.fs.Chown(real, -1, gid); err != nil {
				return translate("chown", p, err)
			}
			return nil
		default:
			return fsys.ErrAttributeUnsupported
		}
	})
}

// lookupGroup accepts a numeric gid or a group name
func lookupGroup(value string) (int, error) {
	if gid, err := strconv.Atoi(value); err == nil {
		return gid, nil
	}
	g, err := user.LookupGroup(value)
	if err != nil {
		return 0, errors.Errorf("looking up group %q: %w", value, fsys.ErrAttributeInvalid)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, errors.Errorf("group %q has non numeric gid %q: %w", value, g.Gid, fsys.ErrAttributeUnsupported)
	}
	return gid, nil
}

// 📤 Upload copies a local file into this file system
func (f *FileSystem) Upload(ctx context.Context, localPath, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return translate("upload", localPath, err)
	}
	defer src.Close()

	dst, err := f.fs.OpenFile(f.resolve(p), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return translate("upload", p, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return translate("upload", p, err)
	}
	if err := dst.Close(); err != nil {
		return translate("upload", p, err)
	}
	return nil
}

// 📥 Download copies a file of this file system to the local disk
func (f *FileSystem) Download(ctx context.Context, p, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := f.fs.Open(f.resolve(p))
	if err != nil {
		return translate("download", p, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return translate("download", localPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return translate("download", localPath, err)
	}
	if err := dst.Close(); err != nil {
		return translate("download", localPath, err)
	}
	return nil
}

// Release implements fsys.FileSystem. The local backend holds no session.
func (f *FileSystem) Release() {
	if f.released.Swap(true) {
		return
	}
	f.logger.Trace().Str("root", f.root).Msg("local file system released")
}

func joinSlash(dir, name string) string {
	if dir == "" {
		return name
	}
	if dir[len(dir)-1] == '/' {
		return dir + name
	}
	return dir + "/" + name
}
