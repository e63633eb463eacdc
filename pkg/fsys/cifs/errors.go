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

package cifs

import (
	"context"
	"io/fs"

	"github.com/hirochachacha/go-smb2"
	"github.com/walteh/treesync/pkg/fsys"
	"gitlab.com/tozd/go/errors"
)

// NTSTATUS values, from MS-ERREF 2.3.1
const (
	statusAccessDenied        uint32 = 0xC0000022
	statusNoSuchFile          uint32 = 0xC000000F
	statusObjectNameNotFound  uint32 = 0xC0000034
	statusObjectNameCollision uint32 = 0xC0000035
	statusObjectPathNotFound  uint32 = 0xC000003A
	statusSharingViolation    uint32 = 0xC0000043
	statusDirectoryNotEmpty   uint32 = 0xC0000101
	statusNotADirectory       uint32 = 0xC0000103
	statusNotAReparsePoint    uint32 = 0xC0000275
)

func translate(op, p string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var resp *smb2.ResponseError
	if errors.As(err, &resp) {
		switch resp.Code {
		case statusNoSuchFile, statusObjectNameNotFound, statusObjectPathNotFound:
			return fsys.NewPathError(op, p, fsys.ErrNotExist, err)
		case statusObjectNameCollision:
			return fsys.NewPathError(op, p, fsys.ErrExist, err)
		case statusAccessDenied, statusSharingViolation:
			return fsys.NewPathError(op, p, fsys.ErrPermission, err)
		case statusNotADirectory:
			return fsys.NewPathError(op, p, fsys.ErrNotDir, err)
		case statusDirectoryNotEmpty:
			return fsys.NewPathError(op, p, fsys.ErrNotEmpty, err)
		case statusNotAReparsePoint:
			return fsys.NewPathError(op, p, fsys.ErrNotSymlink, err)
		}
		return fsys.NewPathError(op, p, fsys.ErrIO, err)
	}

	return fsys.NewPathError(op, p, kindOfOS(err), err)
}

func kindOfOS(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fsys.ErrNotExist
	case errors.Is(err, fs.ErrExist):
		return fsys.ErrExist
	case errors.Is(err, fs.ErrPermission):
		return fsys.ErrPermission
	default:
		return fsys.ErrIO
	}
}
