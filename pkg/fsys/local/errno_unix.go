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

//go:build unix

package local

import (
	"github.com/walteh/treesync/pkg/fsys"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sys/unix"
)

// translate maps an OS error to a *fsys.PathError
func translate(op, p string, err error) error {
	var errno unix.Errno
	if errors.As(err, &errno) {
		switch errno {
		case unix.ENOENT:
			return fsys.NewPathError(op, p, fsys.ErrNotExist, err)
		case unix.ENOTEMPTY:
			return fsys.NewPathError(op, p, fsys.ErrNotEmpty, err)
		case unix.EEXIST:
			return fsys.NewPathError(op, p, fsys.ErrExist, err)
		case unix.EACCES, unix.EPERM, unix.EROFS:
			return fsys.NewPathError(op, p, fsys.ErrPermission, err)
		case unix.ENOTDIR:
			return fsys.NewPathError(op, p, fsys.ErrNotDir, err)
		case unix.EINVAL:
			if op == "readlink" {
				return fsys.NewPathError(op, p, fsys.ErrNotSymlink, err)
			}
		}
	}
	return classify(op, p, err)
}
