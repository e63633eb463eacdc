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

package sftp

import (
	"context"
	"io/fs"

	"github.com/pkg/sftp"
	"github.com/walteh/treesync/pkg/fsys"
	"gitlab.com/tozd/go/errors"
)

// SSH_FX status codes, from draft-ietf-secsh-filexfer
const (
	fxNoSuchFile    uint32 = 2
	fxPermission    uint32 = 3
	fxFailure       uint32 = 4
	fxNoSuchPath    uint32 = 10
	fxAlreadyExists uint32 = 11
	fxDirNotEmpty   uint32 = 18
	fxNotADirectory uint32 = 19
)

func translate(op, p string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var status *sftp.StatusError
	if errors.As(err, &status) {
		switch status.Code {
		case fxNoSuchFile, fxNoSuchPath:
			return fsys.NewPathError(op, p, fsys.ErrNotExist, err)
		case fxPermission:
			return fsys.NewPathError(op, p, fsys.ErrPermission, err)
		case fxAlreadyExists:
			return fsys.NewPathError(op, p, fsys.ErrExist, err)
		case fxDirNotEmpty:
			return fsys.NewPathError(op, p, fsys.ErrNotEmpty, err)
		case fxNotADirectory:
			return fsys.NewPathError(op, p, fsys.ErrNotDir, err)
		}
		return fsys.NewPathError(op, p, fsys.ErrIO, err)
	}

	return fsys.NewPathError(op, p, kindOfOS(err), err)
}

// kindOfOS classifies local errors and the io/fs sentinels the sftp client
// substitutes for the common status codes
func kindOfOS(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fsys.ErrNotExist
	case errors.Is(err, fs.ErrPermission):
		return fsys.ErrPermission
	case errors.Is(err, fs.ErrExist):
		return fsys.ErrExist
	default:
		return fsys.ErrIO
	}
}

// isFailure reports whether err is the catch-all SSH_FX_FAILURE status
func isFailure(err error) bool {
	var status *sftp.StatusError
	return errors.As(err, &status) && status.Code == fxFailure
}
