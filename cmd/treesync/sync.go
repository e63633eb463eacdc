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


package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/treesync/pkg/config"
	"github.com/walteh/treesync/pkg/fsys/backend"
	"github.com/walteh/treesync/pkg/log"
	"github.com/walteh/treesync/pkg/state"
	"github.com/walteh/treesync/pkg/status"
	"github.com/walteh/treesync/pkg/text"
	"github.com/walteh/treesync/pkg/transfer"
	"gitlab.com/tozd/go/errors"
)

type syncOpts struct {
	*rootOpts
	maxPar int
}

func newSyncCmd(root *rootOpts) *cobra.Command {
	opts := &syncOpts{rootOpts: root}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replicate the job's resources onto the destination",
		Long: `Sync runs the job file. It will:
1. Discover every resource on the source
2. Create directories and links on the destination, parents first
3. Copy files with a pool of workers, skipping unchanged ones
4. Print one line per item and a closing summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&opts.maxPar, "max-par", 0, "override the job's max_par")

	return cmd
}

func (o *syncOpts) run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	job, err := config.Load(ctx, o.configFile)
	if err != nil {
		return errors.Errorf("loading job: %w", err)
	}
	hash := job.Hash()
	logger.Info().Str("job", job.String()).Str("hash", hash).Msg("job loaded")

	store := state.New(filepath.Dir(job.Location()))
	last, err := store.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring unreadable state")
	}
	if last != nil && last.Changed(hash) {
		logger.Info().Str("last_hash", last.ConfigHash).Msg("job changed since the last run")
	}

	specs, err := job.Specifications()
	if err != nil {
		return errors.Errorf("building specifications: %w", err)
	}

	renderOpts := job.RendererOptions()
	renderer, err := text.NewRenderer(renderOpts)
	if err != nil {
		return errors.Errorf("creating renderer: %w", err)
	}

	maxPar := job.MaxPar
	if o.maxPar > 0 {
		maxPar = o.maxPar
	}

	console := log.New(o.stdout, *logger)
	tracker := status.New(console)

	engine, err := transfer.New(transfer.Options{
		Factory: &backend.Factory{
			Source:      job.Source.Backend(),
			Destination: job.Destination.Backend(),
			Templater:   renderer,
		},
		MaxPar:   maxPar,
		Reporter: tracker,
		TempDir:  renderOpts.TempDir,
	})
	if err != nil {
		return errors.Errorf("creating engine: %w", err)
	}

	console.Header(job.String())
	start := time.Now()
	err = engine.Transfer(ctx, specs)
	finished := time.Now()
	console.Summary(tracker.Summary(), finished.Sub(start))

	run := state.NewRun(hash, start, finished, engine.State().String(), tracker.Entries())
	if serr := store.Save(ctx, run); serr != nil {
		console.Warningf("recording run: %v", serr)
	}

	if err != nil {
		return err
	}
	console.Success("sync complete")
	return nil
}
