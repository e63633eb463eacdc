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

// Package backend turns endpoint descriptions into file system sessions.
package backend

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/walteh/treesync/pkg/fsys"
	"github.com/walteh/treesync/pkg/fsys/cifs"
	"github.com/walteh/treesync/pkg/fsys/local"
	"github.com/walteh/treesync/pkg/fsys/sftp"
	"gitlab.com/tozd/go/errors"
)

// Protocol selects a backend implementation
type Protocol string

const (
	ProtocolLocal Protocol = "local"
	ProtocolSFTP  Protocol = "sftp"
	ProtocolCIFS  Protocol = "cifs"
)

var ErrUnknownProtocol = errors.Base("unknown protocol")

// 🔗 Endpoint describes one side of a transfer
type Endpoint struct {
	Protocol Protocol
	// Root confines a local endpoint to a directory
	Root string
	SFTP sftp.Config
	CIFS cifs.Config
}

// String returns a printable, credential free form of the endpoint
func (e Endpoint) String() string {
	switch e.Protocol {
	case ProtocolSFTP:
		return fmt.Sprintf("sftp://%s@%s", e.SFTP.User, e.SFTP.Address())
	case ProtocolCIFS:
		return fmt.Sprintf("cifs://%s/%s/%s", e.CIFS.Host, e.CIFS.Share, e.CIFS.Root)
	default:
		if e.Root == "" {
			return "local"
		}
		return "local://" + e.Root
	}
}

// Open starts a new session on the endpoint. Every call returns an
// independent session the caller must Release.
func Open(ctx context.Context, ep Endpoint, templater fsys.Templater) (fsys.TransferableFileSystem, error) {
	zerolog.Ctx(ctx).Debug().Stringer("endpoint", ep).Msg("opening file system session")

	switch ep.Protocol {
	case ProtocolLocal, "":
		opts := []local.Option{local.WithTemplater(templater)}
		if ep.Root != "" {
			opts = append(opts, local.WithRoot(ep.Root))
		}
		return local.New(ctx, opts...), nil
	case ProtocolSFTP:
		f, err := sftp.Dial(ctx, ep.SFTP, sftp.WithTemplater(templater))
		if err != nil {
			return nil, errors.Errorf("opening %s: %w", ep, err)
		}
		return f, nil
	case ProtocolCIFS:
		f, err := cifs.Dial(ctx, ep.CIFS, cifs.WithTemplater(templater))
		if err != nil {
			return nil, errors.Errorf("opening %s: %w", ep, err)
		}
		return f, nil
	default:
		return nil, errors.Errorf("%q: %w", ep.Protocol, ErrUnknownProtocol)
	}
}

// 🏭 Factory opens sessions on a fixed source and destination
type Factory struct {
	Source      Endpoint
	Destination Endpoint
	Templater   fsys.Templater
}

func (f *Factory) OpenSource(ctx context.Context) (fsys.FileSystem, error) {
	return Open(ctx, f.Source, f.Templater)
}

func (f *Factory) OpenDestination(ctx context.Context) (fsys.TransferableFileSystem, error) {
	return Open(ctx, f.Destination, f.Templater)
}
