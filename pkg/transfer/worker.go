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
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/treesync/pkg/fsys"
	"github.com/walteh/treesync/pkg/reconcile"
	"github.com/walteh/treesync/pkg/resource"
	"github.com/walteh/treesync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 👷 work opens a private session pair and drains the queue. It never
// returns an error; everything it hits lands in the result.
func (e *Engine) work(ctx context.Context, id int, queue *resource.Queue) (res result) {
	logger := zerolog.Ctx(ctx).With().Int("worker", id).Logger()
	ctx = logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("worker panicked")
			res.state |= StateCritical
			res.causes = append(res.causes, errors.Errorf("worker %d panicked: %v", id, r))
		}
	}()

	src, err := e.opts.Factory.OpenSource(ctx)
	if err != nil {
		return sessionFailure(res, errors.Errorf("worker %d opening source: %w", id, err))
	}
	defer src.Release()

	dst, err := e.opts.Factory.OpenDestination(ctx)
	if err != nil {
		return sessionFailure(res, errors.Errorf("worker %d opening destination: %w", id, err))
	}
	defer dst.Release()

	p := &processor{src: src, dst: dst, reporter: e.opts.Reporter, tempDir: e.opts.TempDir}

	for {
		if ctx.Err() != nil {
			logger.Debug().Int("processed", res.processed).Msg("worker stopping, context done")
			res.state |= StateInterrupted
			return res
		}

		t, ok := queue.Next()
		if !ok {
			logger.Debug().Int("processed", res.processed).Msg("queue drained")
			return res
		}

		res.processed++
		if err := p.process(ctx, t); err != nil {
			p.report(ctx, t, status.StatusFailed, err)
			res.causes = append(res.causes, &ItemError{Source: t.SourcePath(), Destination: t.DestinationPath(), Err: err})
			if interrupted(err) {
				res.state |= StateInterrupted
			} else {
				res.state |= StateFailed
			}
		}
	}
}

func sessionFailure(res result, err error) result {
	if interrupted(err) {
		res.state |= StateInterrupted
	} else {
		res.state |= StateCritical
	}
	res.causes = append(res.causes, err)
	return res
}

// processor runs the per-item state machine against one session pair. src is
// nil during the directory phase, which never reads content.
type processor struct {
	src      fsys.FileSystem
	dst      fsys.TransferableFileSystem
	reporter Reporter
	tempDir  string
}

func (p *processor) report(ctx context.Context, t *resource.Transferable, st status.Status, err error) {
	p.reporter.Track(ctx, status.Entry{
		Source:      t.SourcePath(),
		Destination: t.DestinationPath(),
		Type:        t.EffectiveKind().String(),
		Status:      st,
		Err:         err,
	})
}

// 🔄 process brings the destination of t in line with the source
func (p *processor) process(ctx context.Context, t *resource.Transferable) error {
	logger := zerolog.Ctx(ctx).With().Str("dest", t.DestinationPath()).Logger()
	ctx = logger.WithContext(ctx)

	if t.IsSymbolicLink() {
		switch {
		case t.LinkOption() == resource.SkipLinks:
			logger.Warn().Str("source", t.SourcePath()).Msg("skipping symbolic link")
			p.report(ctx, t, status.StatusSkipped, nil)
			return nil
		case !t.CopiesLink():
			return p.link(ctx, t)
		case t.TargetInfo() == nil:
			return p.removeStale(ctx, t)
		}

		// the target may have gone away since discovery
		if _, err := p.src.StatFollow(ctx, t.SourcePath()); err != nil {
			if fsys.IsNotExist(err) {
				return p.removeStale(ctx, t)
			}
			return errors.Errorf("checking link target: %w", err)
		}
	}

	if t.EffectiveKind() == fsys.KindDirectory {
		return p.directory(ctx, t)
	}
	return p.file(ctx, t)
}

// checkType fails when the destination exists with another kind and the
// item asks for that to be an error
func (p *processor) checkType(ctx context.Context, t *resource.Transferable, want fsys.Kind) error {
	if t.TransferBehavior() != resource.FailIfDifferentType {
		return nil
	}
	info, err := p.dst.Stat(ctx, t.DestinationPath())
	if err != nil {
		if fsys.IsNotExist(err) {
			return nil
		}
		return errors.Errorf("checking destination type: %w", err)
	}
	if info.Kind != want {
		return errors.Errorf("destination is a %s, source is a %s: %w", info.Kind, want, fsys.ErrWrongType)
	}
	return nil
}

func (p *processor) directory(ctx context.Context, t *resource.Transferable) error {
	if err := p.checkType(ctx, t, fsys.KindDirectory); err != nil {
		return err
	}

	ok, err := reconcile.Directory(ctx, p.dst, t)
	if err != nil {
		return err
	}

	st := status.StatusUnchanged
	if !ok {
		if err := p.dst.CreateDirectories(ctx, t.DestinationPath()); err != nil {
			return errors.Errorf("creating directory: %w", err)
		}
		st = status.StatusCreated
	}

	p.applyAttributes(ctx, t)
	p.report(ctx, t, st, nil)
	return nil
}

func (p *processor) link(ctx context.Context, t *resource.Transferable) error {
	if err := p.checkType(ctx, t, fsys.KindSymlink); err != nil {
		return err
	}

	ok, err := reconcile.SymbolicLink(ctx, p.dst, t)
	if err != nil {
		return err
	}
	if ok {
		p.report(ctx, t, status.StatusUnchanged, nil)
		return nil
	}

	if err := p.dst.CreateSymbolicLink(ctx, t.DestinationPath(), t.LinkTarget()); err != nil {
		return errors.Errorf("creating symbolic link: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("target", t.LinkTarget()).Bool("safe", t.IsSafeLink()).Msg("link created")
	p.report(ctx, t, status.StatusLinked, nil)
	return nil
}

// removeStale handles a link that should be copied but points nowhere. Its
// destination, if any, is left over from an earlier run.
func (p *processor) removeStale(ctx context.Context, t *resource.Transferable) error {
	logger := zerolog.Ctx(ctx)
	dest := t.DestinationPath()

	info, err := p.dst.Stat(ctx, dest)
	switch {
	case fsys.IsNotExist(err):
		logger.Warn().Str("target", t.LinkTarget()).Msg("link target missing, nothing to copy")
		p.report(ctx, t, status.StatusSkipped, nil)
		return nil
	case err != nil:
		return errors.Errorf("checking stale destination: %w", err)
	case info.IsDirectory():
		err = p.dst.DeleteDirectory(ctx, dest)
	default:
		err = p.dst.Delete(ctx, dest)
	}
	if err != nil {
		return errors.Errorf("removing stale destination: %w", err)
	}

	logger.Warn().Str("target", t.LinkTarget()).Msg("link target missing, removed destination")
	p.report(ctx, t, status.StatusRemoved, nil)
	return nil
}

func (p *processor) file(ctx context.Context, t *resource.Transferable) error {
	if err := p.checkType(ctx, t, fsys.KindRegular); err != nil {
		return err
	}

	local, cleanup, err := p.localSource(ctx, t)
	if err != nil {
		return err
	}
	defer cleanup()

	// mtime of the source, size of what gets uploaded
	srcInfo := *t.Info()
	if t.TargetInfo() != nil {
		srcInfo = *t.TargetInfo()
	}

	if t.IsTemplate() {
		rendered, err := p.render(ctx, local)
		if err != nil {
			return err
		}
		defer os.Remove(rendered)

		fi, err := os.Stat(rendered)
		if err != nil {
			return errors.Errorf("reading rendered file: %w", err)
		}
		local = rendered
		srcInfo.Size = fi.Size()
	}

	ok, err := reconcile.RegularFile(ctx, p.dst, t, &srcInfo)
	if err != nil {
		return err
	}

	st := status.StatusUnchanged
	if !ok {
		if err := p.dst.Upload(ctx, local, t.DestinationPath()); err != nil {
			return errors.Errorf("uploading: %w", err)
		}
		st = status.StatusCopied
	}

	p.applyAttributes(ctx, t)
	p.report(ctx, t, st, nil)
	return nil
}

func (p *processor) render(ctx context.Context, local string) (string, error) {
	tmpl := p.dst.Templater()
	if tmpl == nil {
		return "", errors.Errorf("no templater configured: %w", fsys.ErrTemplating)
	}
	rendered, err := tmpl.Render(ctx, local)
	if err != nil {
		if errors.Is(err, fsys.ErrTemplating) {
			return "", err
		}
		return "", errors.Errorf("rendering %s: %w: %w", local, fsys.ErrTemplating, err)
	}
	return rendered, nil
}

// localSource returns a path on the local disk holding the source content.
// Sources that are not on the local disk are staged into tempDir.
func (p *processor) localSource(ctx context.Context, t *resource.Transferable) (string, func(), error) {
	if lp, ok := p.src.(fsys.LocalPather); ok {
		if local, ok := lp.LocalPath(t.SourcePath()); ok {
			return local, func() {}, nil
		}
	}

	staged := filepath.Join(p.tempDir, "treesync-stage-"+uuid.NewString())
	cleanup := func() { _ = os.Remove(staged) }

	if err := p.stage(ctx, t.SourcePath(), staged); err != nil {
		cleanup()
		return "", nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("source", t.SourcePath()).Str("staged", staged).Msg("source staged locally")
	return staged, cleanup, nil
}

func (p *processor) stage(ctx context.Context, source, staged string) error {
	r, err := p.src.Open(ctx, source)
	if err != nil {
		return errors.Errorf("opening source: %w", err)
	}
	defer r.Close()

	w, err := os.OpenFile(staged, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Errorf("creating staging file: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return errors.Errorf("staging source: %w", err)
	}
	if err := w.Close(); err != nil {
		return errors.Errorf("closing staging file: %w", err)
	}
	return nil
}

// applyAttributes never fails the item
func (p *processor) applyAttributes(ctx context.Context, t *resource.Transferable) {
	attrs := t.Attributes()
	if len(attrs) == 0 {
		return
	}
	if err := p.dst.SetAttributes(ctx, t.DestinationPath(), attrs); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("attributes not fully applied")
	}
}
