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

// Package sftp implements fsys.TransferableFileSystem over an SFTP session.
package sftp

import (
	"context"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"sync"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"github.com/walteh/treesync/pkg/fsys"
	"gitlab.com/tozd/go/errors"
)

// 🌐 FileSystem is an SFTP backend. It owns one SFTP client and, when it was
// dialed, the SSH connection underneath it.
type FileSystem struct {
	client    *sftp.Client
	closer    io.Closer
	templater fsys.Templater
	logger    zerolog.Logger
	once      sync.Once
}

var _ fsys.TransferableFileSystem = (*FileSystem)(nil)

// Option configures a FileSystem
type Option func(*FileSystem)

// WithTemplater sets the templating collaborator returned by Templater
func WithTemplater(t fsys.Templater) Option {
	return func(f *FileSystem) {
		f.templater = t
	}
}

// withCloser makes Release also close c, after the SFTP client
func withCloser(c io.Closer) Option {
	return func(f *FileSystem) {
		f.closer = c
	}
}

// 🏭 New wraps an established SFTP client. Release closes it.
func New(ctx context.Context, client *sftp.Client, opts ...Option) *FileSystem {
	f := &FileSystem{
		client: client,
		logger: zerolog.Ctx(ctx).With().Str("backend", "sftp").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FileSystem) Templater() fsys.Templater {
	return f.templater
}

func (f *FileSystem) Stat(ctx context.Context, p string) (*fsys.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := f.client.Lstat(p)
	if err != nil {
		return nil, translate("lstat", p, err)
	}
	return fsys.NewFileInfo(p, info), nil
}

func (f *FileSystem) StatFollow(ctx context.Context, p string) (*fsys.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := f.client.Stat(p)
	if err != nil {
		return nil, translate("stat", p, err)
	}
	return fsys.NewFileInfo(p, info), nil
}

func (f *FileSystem) ReadDir(ctx context.Context, p string) ([]fsys.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := f.client.ReadDirContext(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isFailure(err) {
			if info, serr := f.client.Lstat(p); serr == nil && !info.IsDir() {
				return nil, fsys.NewPathError("readdir", p, fsys.ErrNotDir, err)
			}
		}
		return nil, translate("readdir", p, err)
	}
	entries := make([]fsys.FileInfo, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, *fsys.NewFileInfo(path.Join(p, info.Name()), info))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (f *FileSystem) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := f.client.Open(p)
	if err != nil {
		return nil, translate("open", p, err)
	}
	return file, nil
}

func (f *FileSystem) CreateDirectory(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.client.Mkdir(p); err != nil {
		return f.failureAt("mkdir", p, err)
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
	if err := f.client.Symlink(target, link); err != nil {
		return f.failureAt("symlink", link, err)
	}
	return nil
}

func (f *FileSystem) ReadSymbolicLink(ctx context.Context, link string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := f.client.ReadLink(link)
	if err != nil {
		if isFailure(err) {
			if info, serr := f.client.Lstat(link); serr == nil && info.Mode()&os.ModeSymlink == 0 {
				return "", fsys.NewPathError("readlink", link, fsys.ErrNotSymlink, err)
			}
		}
		return "", translate("readlink", link, err)
	}
	return target, nil
}

// Delete picks the SFTP request by the entry type, since servers may refuse
// to remove a directory through SSH_FXP_REMOVE.
func (f *FileSystem) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := f.client.Lstat(p)
	if err != nil {
		return translate("remove", p, err)
	}
	if !info.IsDir() {
		if err := f.client.Remove(p); err != nil {
			return translate("remove", p, err)
		}
		return nil
	}
	if err := f.client.RemoveDirectory(p); err != nil {
		if isFailure(err) {
			if entries, rerr := f.client.ReadDir(p); rerr == nil && len(entries) > 0 {
				return fsys.NewPathError("rmdir", p, fsys.ErrNotEmpty, err)
			}
		}
		return translate("rmdir", p, err)
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
	return fsys.ApplyAttributes(ctx, p, attrs, func(kind fsys.AttributeKind, value string) error {
		switch kind {
		case fsys.AttrPosixPermissions:
			mode, err := fsys.ParsePermissions(value)
			if err != nil {
				return err
			}
			if err := f.client.Chmod(p, mode); err != nil {
				return translate("chmod", p, err)
			}
			return nil
		case fsys.AttrPosixGroup:
			gid, err := strconv.Atoi(value)
			if err != nil {
				return errors.Errorf("sftp needs a numeric gid, got %q: %w", value, fsys.ErrAttributeInvalid)
			}
			info, err := f.client.Lstat(p)
			if err != nil {
				return translate("chown", p, err)
			}
			stat, ok := info.Sys().(*sftp.FileStat)
			if !ok {
				return errors.Errorf("server did not report an owner: %w", fsys.ErrAttributeUnsupported)
			}
			if err := f.client.Chown(p, int(stat.UID), gid); err != nil {
				return translate("chown", p, err)
			}
			return nil
		default:
			return fsys.ErrAttributeUnsupported
		}
	})
}

// 📤 Upload streams a local file to p, truncating whatever is there
func (f *FileSystem) Upload(ctx context.Context, localPath, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fsys.NewPathError("upload", localPath, kindOfOS(err), err)
	}
	defer src.Close()

	dst, err := f.client.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return translate("upload", p, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = dst.Close() })
	defer stop()

	if _, err := dst.ReadFrom(src); err != nil {
		_ = dst.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return translate("upload", p, err)
	}
	if !stop() {
		return ctx.Err()
	}
	if err := dst.Close(); err != nil {
		return translate("upload", p, err)
	}
	return nil
}

// 📥 Download streams p into a local file
func (f *FileSystem) Download(ctx context.Context, p, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := f.client.Open(p)
	if err != nil {
		return translate("download", p, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fsys.NewPathError("download", localPath, kindOfOS(err), err)
	}
	stop := context.AfterFunc(ctx, func() { _ = src.Close() })
	defer stop()

	if _, err := src.WriteTo(dst); err != nil {
		_ = dst.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return translate("download", p, err)
	}
	if err := dst.Close(); err != nil {
		return fsys.NewPathError("download", localPath, fsys.ErrIO, err)
	}
	return nil
}

// Release closes the SFTP client and the SSH connection. Close errors are logged.
func (f *FileSystem) Release() {
	f.once.Do(func() {
		if err := f.client.Close(); err != nil {
			f.logger.Debug().Err(err).Msg("closing sftp client")
		}
		if f.closer != nil {
			if err := f.closer.Close(); err != nil {
				f.logger.Debug().Err(err).Msg("closing ssh connection")
			}
		}
	})
}

// failureAt resolves the generic SSH_FX_FAILURE status that many servers
// send when creating something that already exists.
func (f *FileSystem) failureAt(op, p string, err error) error {
	if isFailure(err) {
		if _, serr := f.client.Lstat(p); serr == nil {
			return fsys.NewPathError(op, p, fsys.ErrExist, err)
		}
	}
	return translate(op, p, err)
}
