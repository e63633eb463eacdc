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

package transfer

import (
	"context"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/walteh/treesync/pkg/fsys"
	"github.com/walteh/treesync/pkg/resource"
	"github.com/walteh/treesync/pkg/status"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxWorkers caps MaxPar
	MaxWorkers = 10

	DefaultJoinAttempts = 3
	DefaultJoinTimeout  = 5 * time.Second
)

// 🏭 Factory opens file system sessions. Every call returns a new session
// that the caller releases.
type Factory interface {
	OpenSource(ctx context.Context) (fsys.FileSystem, error)
	OpenDestination(ctx context.Context) (fsys.TransferableFileSystem, error)
}

// 📈 Reporter receives one entry per processed item, from several goroutines
type Reporter interface {
	Track(ctx context.Context, e status.Entry)
}

type discard struct{}

func (discard) Track(context.Context, status.Entry) {}

// ⚙️ Options configures an Engine
type Options struct {
	Factory Factory
	// MaxPar is clamped to [1, MaxWorkers]
	MaxPar   int
	Reporter Reporter
	// TempDir holds staged and rendered files, os.TempDir() when empty
	TempDir string

	Clock        clockwork.Clock
	JoinAttempts int
	JoinTimeout  time.Duration
}

// 🚚 Engine replicates source trees onto a destination
type Engine struct {
	opts  Options
	state stateCell
}

// 🏗️ New validates opts and fills the defaults
func New(opts Options) (*Engine, error) {
	if opts.Factory == nil {
		return nil, errors.Errorf("factory is required")
	}
	if opts.Reporter == nil {
		opts.Reporter = discard{}
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.JoinAttempts <= 0 {
		opts.JoinAttempts = DefaultJoinAttempts
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = DefaultJoinTimeout
	}

	e := &Engine{opts: opts}
	e.state.store(StateNew)
	return e, nil
}

// State returns the bitmask of the current or last run
func (e *Engine) State() State { return e.state.load() }

// workerCount is min(clamp(maxPar, 1, MaxWorkers), files)
func workerCount(maxPar, files int) int {
	n := max(1, min(maxPar, MaxWorkers))
	return min(n, files)
}

// 🏃 Transfer discovers specs on the source, materializes directories and
// links on the destination, then copies files with a pool of workers.
// It returns nil or a single *Error carrying every cause.
func (e *Engine) Transfer(ctx context.Context, specs []*resource.Specification) error {
	e.state.store(StateRunning)
	defer e.state.clear(StateRunning)

	logger := zerolog.Ctx(ctx)
	if len(specs) == 0 {
		logger.Info().Msg("no specifications, nothing to transfer")
		return nil
	}

	tree, err := e.discover(ctx, specs)
	if err != nil {
		return e.fail(ctx, err)
	}
	if tree.DirectoryCount() == 0 {
		logger.Info().Msg("nothing matched, nothing to transfer")
		return nil
	}

	if err := e.materialize(ctx, tree); err != nil {
		return e.fail(ctx, err)
	}

	n := workerCount(e.opts.MaxPar, tree.FileCount())
	if n == 0 {
		return e.finish(ctx, nil)
	}
	return e.finish(ctx, e.copyFiles(ctx, tree, n))
}

// phaseError marks a failure that happened outside the worker pool
type phaseError struct {
	state State
	err   error
}

func (p *phaseError) Error() string { return p.err.Error() }
func (p *phaseError) Unwrap() error { return p.err }

func critical(err error) error { return &phaseError{state: StateCritical, err: err} }

// fail classifies a failure of discovery or of the directory phase
func (e *Engine) fail(ctx context.Context, err error) error {
	state := StateFailed
	var pe *phaseError
	if errors.As(err, &pe) {
		state = pe.state
	}
	if state != StateCritical && interrupted(err) {
		state = StateInterrupted
	}
	e.state.add(state)
	return e.finish(ctx, []error{err})
}

// finish turns the accumulated state into the return value
func (e *Engine) finish(ctx context.Context, causes []error) error {
	final := e.state.load() &^ StateRunning
	logger := zerolog.Ctx(ctx)

	if final.outcome() == StateSucceed {
		logger.Info().Msg("transfer succeeded")
		return nil
	}

	err := newError(final, causes)
	logger.Error().Stringer("state", final).Int("causes", len(causes)).Msg("transfer did not succeed")
	return err
}

func (e *Engine) discover(ctx context.Context, specs []*resource.Specification) (*resource.Tree, error) {
	src, err := e.opts.Factory.OpenSource(ctx)
	if err != nil {
		return nil, critical(errors.Errorf("opening source for discovery: %w", err))
	}
	defer src.Release()

	tree, err := resource.Discover(ctx, src, specs)
	if err != nil {
		return nil, errors.Errorf("discovering resources: %w", err)
	}
	return tree, nil
}

// materialize creates every directory, parents first, then every kept or
// skipped link. The first failure stops the phase.
func (e *Engine) materialize(ctx context.Context, tree *resource.Tree) error {
	dst, err := e.opts.Factory.OpenDestination(ctx)
	if err != nil {
		return critical(errors.Errorf("opening destination for directories: %w", err))
	}
	defer dst.Release()

	// copied links to directories need their target checked again
	src, err := e.opts.Factory.OpenSource(ctx)
	if err != nil {
		return critical(errors.Errorf("opening source for directories: %w", err))
	}
	defer src.Release()

	p := &processor{src: src, dst: dst, reporter: e.opts.Reporter, tempDir: e.opts.TempDir}

	items := append(tree.Directories(), tree.Links()...)
	for _, t := range items {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("creating directories: %w", err)
		}
		if err := p.process(ctx, t); err != nil {
			p.report(ctx, t, status.StatusFailed, err)
			return &ItemError{Source: t.SourcePath(), Destination: t.DestinationPath(), Err: err}
		}
	}

	zerolog.Ctx(ctx).Info().
		Int("directories", tree.DirectoryCount()).
		Int("links", tree.LinkCount()).
		Msg("directories and links in place")
	return nil
}

// result is owned by exactly one worker until the join
type result struct {
	state     State
	causes    []error
	processed int
}

// copyFiles runs n workers over the file queue and combines their results
// after every worker has returned
func (e *Engine) copyFiles(ctx context.Context, tree *resource.Tree, n int) []error {
	logger := zerolog.Ctx(ctx)
	queue := tree.Files()
	results := make([]result, n)

	logger.Info().Int("workers", n).Int("files", tree.FileCount()).Msg("starting workers")

	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			results[i] = e.work(ctx, i, queue)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	if err := e.join(ctx, done); err != nil {
		// the slots may still be written to, they are abandoned
		e.state.add(StateCritical | StateInterrupted)
		return []error{err}
	}

	var causes []error
	processed := 0
	for _, r := range results {
		e.state.add(r.state)
		causes = append(causes, r.causes...)
		processed += r.processed
	}

	logger.Info().Int("processed", processed).Int("files", tree.FileCount()).Msg("workers finished")
	return causes
}

// join waits for done. Once ctx is canceled the wait is retried
// JoinAttempts times of JoinTimeout each before giving up.
func (e *Engine) join(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	logger := zerolog.Ctx(ctx)
	logger.Warn().Msg("cancellation requested, waiting for workers to stop")

	for attempt := 1; attempt <= e.opts.JoinAttempts; attempt++ {
		select {
		case <-done:
			return nil
		case <-e.opts.Clock.After(e.opts.JoinTimeout):
			logger.Warn().
				Int("attempt", attempt).
				Int("attempts", e.opts.JoinAttempts).
				Dur("timeout", e.opts.JoinTimeout).
				Msg("workers still running")
		}
	}

	return errors.Errorf("after %d waits of %s: %w", e.opts.JoinAttempts, e.opts.JoinTimeout, ErrUnrecoverable)
}
