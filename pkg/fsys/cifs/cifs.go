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

// Package cifs implements fsys.TransferableFileSystem on an SMB2/3 share.
//
// Paths are slash separated and absolute with respect to the share (or to
// the configured root inside it). Only dos_readonly is settable: SMB has no
// POSIX owner or mode, and go-smb2 exposes no way to set the other DOS flags.
package cifs

import (
	"context"
	"io"
	"net"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/hirochachacha/go-smb2"
	"github.com/rs/zerolog"
	"github.com/walteh/treesync/pkg/fsys"
	"gitlab.com/tozd/go/errors"
)

// Config describes how to reach a share
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Domain   string
	Share    string
	// Root is a directory inside the share every path is resolved below.
	Root string
}

// Address returns host:port, defaulting the port
func (c Config) Address() string {
	port := c.Port
	if port == 0 {
		port = 445
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// 🗄️ FileSystem is a CIFS backend owning one SMB session and one mounted share
type FileSystem struct {
	share     *smb2.Share
	session   *smb2.Session
	conn      net.Conn
	root      string
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

// 🔌 Dial connects, authenticates with NTLM and mounts cfg.Share
func Dial(ctx context.Context, cfg Config, opts ...Option) (*FileSystem, error) {
	if cfg.Share == "" {
		return nil, errors.New("cifs: share name required")
	}

	addr := cfg.Address()
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Errorf("dialing %s: %w", addr, err)
	}

	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     cfg.User,
			Password: cfg.Password,
			Domain:   cfg.Domain,
		},
	}
	session, err := d.DialContext(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, errors.Errorf("smb session with %s: %w", addr, err)
	}

	share, err := session.Mount(cfg.Share)
	if err != nil {
		_ = session.Logoff()
		conn.Close()
		return nil, errors.Errorf("mounting share %s on %s: %w", cfg.Share, addr, err)
	}

	f := &FileSystem{
		share:   share,
		session: session,
		conn:    conn,
		root:    strings.Trim(path.Clean("/"+cfg.Root), "/"),
		logger:  zerolog.Ctx(ctx).With().Str("backend", "cifs").Str("share", cfg.Share).Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.logger.Debug().Str("address", addr).Str("user", cfg.User).Msg("smb share mounted")
	return f, nil
}

// sharePath maps a slash path to the share relative, backslash separated form go-smb2 expects
func (f *FileSystem) sharePath(p string) string {
	return toSharePath(f.root, p)
}

func toSharePath(root, p string) string {
	rel := strings.TrimPrefix(path.Clean("/"+p), "/")
	if root != "" {
		rel = strings.TrimSuffix(root+"/"+rel, "/")
	}
	return strings.ReplaceAll(rel, "/", `\`)
}

func (f *FileSystem) on(ctx context.Context) *smb2.Share {
	return f.share.WithContext(ctx)
}

func (f *FileSystem) Templater() fsys.Templater {
	return f.templater
}

func (f *FileSystem) Stat(ctx context.Context, p string) (*fsys.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := f.on(ctx).Lstat(f.sharePath(p))
	if err != nil {
		return nil, translate("lstat", p, err)
	}
	return fsys.NewFileInfo(p, info), nil
}

func (f *FileSystem) StatFollow(ctx context.Context, p string) (*fsys.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := f.on(ctx).Stat(f.sharePath(p))
	if err != nil {
		return nil, translate("stat", p, err)
	}
	return fsys.NewFileInfo(p, info), nil
}

func (f *FileSystem) ReadDir(ctx context.Context, p string) ([]fsys.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := f.on(ctx).ReadDir(f.sharePath(p))
	if err != nil {
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
	file, err := f.on(ctx).Open(f.sharePath(p))
	if err != nil {
		return nil, translate("open", p, err)
	}
	return file, nil
}

func (f *FileSystem) CreateDirectory(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.on(ctx).Mkdir(f.sharePath(p), 0o755); err != nil {
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
	// targets are stored as given, in the server's separator convention
	if err := f.on(ctx).Symlink(strings.ReplaceAll(target, "/", `\`), f.sharePath(link)); err != nil {
		return translate("symlink", link, err)
	}
	return nil
}

func (f *FileSystem) ReadSymbolicLink(ctx context.Context, link string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := f.on(ctx).Readlink(f.sharePath(link))
	if err != nil {
		return "", translate("readlink", link, err)
	}
	return strings.ReplaceAll(target, `\`, "/"), nil
}

func (f *FileSystem) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.on(ctx).Remove(f.sharePath(p)); err != nil {
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
	share := f.on(ctx)
	return fsys.ApplyAttributes(ctx, p, attrs, func(kind fsys.AttributeKind, value string) error {
		if kind != fsys.AttrDOSReadOnly {
			return fsys.ErrAttributeUnsupported
		}
		readOnly, err := fsys.ParseFlag(value)
		if err != nil {
			return err
		}
		if err := share.Chmod(f.sharePath(p), readOnlyMode(readOnly)); err != nil {
			return translate("chmod", p, err)
		}
		return nil
	})
}

// readOnlyMode is the mode go-smb2 turns into FILE_ATTRIBUTE_READONLY (no owner write bit) or clears it
func readOnlyMode(readOnly bool) os.FileMode {
	if readOnly {
		return 0o444
	}
	return 0o666
}

// 📤 Upload copies a local file onto the share
func (f *FileSystem) Upload(ctx context.Context, localPath, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fsys.NewPathError("upload", localPath, kindOfOS(err), err)
	}
	defer src.Close()

	dst, err := f.on(ctx).OpenFile(f.sharePath(p), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return translate("upload", p, err)
	}
	if _, err := dst.ReadFrom(src); err != nil {
		_ = dst.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return translate("upload", p, err)
	}
	if err := dst.Close(); err != nil {
		return translate("upload", p, err)
	}
	return nil
}

// 📥 Download copies a share file to the local disk
func (f *FileSystem) Download(ctx context.Context, p, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := f.on(ctx).Open(f.sharePath(p))
	if err != nil {
		return translate("download", p, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fsys.NewPathError("download", localPath, kindOfOS(err), err)
	}
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

// Release unmounts the share, logs off and closes the connection
func (f *FileSystem) Release() {
	f.once.Do(func() {
		if err := f.share.Umount(); err != nil {
			f.logger.Debug().Err(err).Msg("unmounting share")
		}
		if err := f.session.Logoff(); err != nil {
			f.logger.Debug().Err(err).Msg("smb logoff")
		}
		if err := f.conn.Close(); err != nil {
			f.logger.Debug().Err(err).Msg("closing smb connection")
		}
	})
}
