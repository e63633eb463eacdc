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

package local

import (
	"context"
	"io/fs"

	"github.com/walteh/treesync/pkg/fsys"
	"gitlab.com/tozd/go/errors"
)

// classify falls back on the portable io/fs sentinels
func classify(op, p string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, fs.ErrNotExist):
		return fsys.NewPathError(op, p, fsys.ErrNotExist, err)
	case errors.Is(err, fs.ErrExist):
		return fsys.NewPathError(op, p, fsys.ErrExist, err)
	case errors.Is(err, fs.ErrPermission):
		return fsys.NewPathError(op, p, fsys.ErrPermission, err)
	default:
		return fsys.NewPathError(op, p, fsys.ErrIO, err)
	}
}
