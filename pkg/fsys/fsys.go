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
	"io/fs"
	"time"
)

// 📂 Kind is the type of a file system entry, as seen without following a final symlink
type Kind int

const (
	KindOther Kind = iota
	KindRegular
	KindDirectory
	KindSymlink
)

// String returns a string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// KindOf maps a file mode to a Kind
func KindOf(mode fs.FileMode) Kind {
	switch {
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	case mode.IsDir():
		return KindDirectory
	case mode.IsRegular():
		return KindRegular
	default:
		return KindOther
	}
}

// 📄 FileInfo contains metadata about one entry of a FileSystem
type FileInfo struct {
	Path    string      // Full path on the owning file system
	Name    string      // Base name
	Kind    Kind        // Entry type
	Size    int64       // Size in bytes
	ModTime time.Time   // Last modification time
	Mode    fs.FileMode // Permission bits and type
}

func (fi *FileInfo) IsDirectory() bool    { return fi != nil && fi.Kind == KindDirectory }
func (fi *FileInfo) IsRegularFile() bool  { return fi != nil && fi.Kind == KindRegular }
func (fi *FileInfo) IsSymbolicLink() bool { return fi != nil && fi.Kind == KindSymlink }

// NewFileInfo converts a native fs.FileInfo found at p
func NewFileInfo(p string, info fs.FileInfo) *FileInfo {
	return &FileInfo{
		Path:    p,
		Name:    info.Name(),
		Kind:    KindOf(info.Mode()),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
	}
}

// 💾 FileSystem is the capability set every protocol backend implements.
//
// A FileSystem value owns one protocol session and is used by exactly one
// goroutine at a time. Every error returned by a backend is a *PathError
// whose kind is one of the sentinels in errors.go.
type FileSystem interface {
	// Stat describes p without following a final symlink.
	Stat(ctx context.Context, p string) (*FileInfo, error)
	// StatFollow describes p, following symlinks.
	StatFollow(ctx context.Context, p string) (*FileInfo, error)
	// ReadDir lists the entries of directory p, without following symlinks.
	ReadDir(ctx context.Context, p string) ([]FileInfo, error)
	// Open streams the content of the regular file p.
	Open(ctx context.Context, p string) (io.ReadCloser, error)

	// CreateDirectory creates the single directory p. Its parent must exist.
	CreateDirectory(ctx context.Context, p string) error
	// CreateDirectories creates p and any missing parent (mkdir -p).
	CreateDirectories(ctx context.Context, p string) error
	// CreateSymbolicLink creates link pointing at the literal target.
	CreateSymbolicLink(ctx context.Context, link, target string) error
	// ReadSymbolicLink returns the literal target of link.
	ReadSymbolicLink(ctx context.Context, link string) (string, error)

	// Delete removes a file, a symlink or an empty directory.
	Delete(ctx context.Context, p string) error
	// DeleteDirectory removes directory p and everything below it.
	DeleteDirectory(ctx context.Context, p string) error

	// SetAttributes applies attrs to p. Unsupported kinds are skipped with a
	// warning; failures are collected into one *AttributesError.
	SetAttributes(ctx context.Context, p string, attrs Attributes) error

	// Release tears down the underlying session. It is idempotent and never fails.
	Release()
}

// 🔄 TransferableFileSystem moves regular file content between itself and the local disk.
type TransferableFileSystem interface {
	FileSystem

	// Upload copies the local file at localPath to p on this file system.
	Upload(ctx context.Context, localPath, p string) error
	// Download copies p on this file system to the local file at localPath.
	Download(ctx context.Context, p, localPath string) error
	// Templater returns the templating collaborator this file system was built with, or nil.
	Templater() Templater
}

// LocalPather is implemented by file systems whose paths are reachable on the local disk.
type LocalPather interface {
	LocalPath(p string) (string, bool)
}

// 📝 Templater renders a templated source file into a temporary local file.
type Templater interface {
	// Render transforms sourcePath and returns the path of the rendered
	// temporary file. The caller removes the returned file.
	Render(ctx context.Context, sourcePath string) (string, error)
}
