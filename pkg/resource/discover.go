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

package resource

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/treesync/pkg/fsys"
	"gitlab.com/tozd/go/errors"
)

// maxLinkDepth bounds how many directories deep a walk through links may go
const maxLinkDepth = 256

var ErrAmbiguousDestName = errors.Base("destination name matches more than one entry")

// 🔍 Discover walks the source file system once per specification and merges
// the matches into a Tree. Directory read failures abort the discovery.
func Discover(ctx context.Context, f fsys.FileSystem, specs []*Specification) (*Tree, error) {
	logger := zerolog.Ctx(ctx)
	merged := newCollection()
	visitedBySpec := make(map[*Specification]map[string]*Transferable, len(specs))

	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := spec.Validate(); err != nil {
			return nil, errors.Errorf("specification %d: %w", i, err)
		}

		w := &walker{fs: f, spec: spec, logger: logger, visited: map[string]*Transferable{}}
		if err := w.run(ctx); err != nil {
			return nil, errors.Errorf("specification %d (%s): %w", i, spec.SrcBaseDir, err)
		}
		visitedBySpec[spec] = w.visited

		logger.Debug().
			Int("spec", i).
			Str("src", spec.SrcBaseDir).
			Str("match", spec.pattern()).
			Bool("exclude", spec.Exclude).
			Int("matched", len(w.matched)).
			Msg("specification walked")

		if spec.Exclude {
			merged.exclude(w.matched)
			continue
		}
		if spec.DestName != "" && len(w.matched) > 1 {
			return nil, errors.Errorf("specification %d (%s, %d matches): %w", i, spec.pattern(), len(w.matched), ErrAmbiguousDestName)
		}
		for _, t := range w.matched {
			merged.include(t)
		}
	}

	merged.addAncestors(visitedBySpec)
	tree := merged.tree(logger)

	logger.Info().
		Int("directories", tree.DirectoryCount()).
		Int("files", tree.FileCount()).
		Int("links", tree.LinkCount()).
		Msg("discovery complete")

	return tree, nil
}

type walker struct {
	fs      fsys.FileSystem
	spec    *Specification
	logger  *zerolog.Logger
	matched []*Transferable
	// visited holds every directory the walk entered, by relative path
	visited map[string]*Transferable
}

func (w *walker) run(ctx context.Context) error {
	base := path.Clean(w.spec.SrcBaseDir)

	info, err := w.fs.StatFollow(ctx, base)
	if err != nil {
		return errors.Errorf("reading base directory: %w", err)
	}
	if !info.IsDirectory() {
		return errors.Errorf("base directory %s: %w", base, fsys.ErrNotDir)
	}

	root := newTransferable(w.spec, base, ".", info)
	w.visited["."] = root
	return w.walk(ctx, root, []string{base})
}

// walk lists dir. chain holds the lexically resolved real path of every
// directory on the way down, to recognize links pointing back up.
func (w *walker) walk(ctx context.Context, dir *Transferable, chain []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := w.fs.ReadDir(ctx, dir.source)
	if err != nil {
		return errors.Errorf("reading directory %s: %w", dir.source, err)
	}

	realDir := chain[len(chain)-1]
	for i := range entries {
		entry := entries[i]
		rel := path.Join(dir.rel, entry.Name)
		t := newTransferable(w.spec, path.Join(dir.source, entry.Name), rel, &entry)

		if t.IsSymbolicLink() {
			if err := w.resolveLink(ctx, t); err != nil {
				return err
			}
		}

		if w.spec.matches(rel) {
			w.matched = append(w.matched, t)
		}

		switch {
		case t.IsDirectory():
			w.visited[rel] = t
			if err := w.walk(ctx, t, append(chain, path.Join(realDir, entry.Name))); err != nil {
				return err
			}
		case t.IsSymbolicLink() && w.descends(t):
			resolved := t.linkTarget
			if !path.IsAbs(resolved) {
				resolved = path.Join(realDir, resolved)
			}
			if loopsBack(chain, resolved) {
				w.logger.Warn().Str("link", t.source).Str("target", t.linkTarget).Msg("link loops back to an ancestor, not descending")
				continue
			}
			if len(chain) >= maxLinkDepth {
				w.logger.Warn().Str("link", t.source).Int("depth", len(chain)).Msg("link depth limit reached, not descending")
				continue
			}
			w.visited[rel] = t
			if err := w.walk(ctx, t, append(chain, resolved)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walker) resolveLink(ctx context.Context, t *Transferable) error {
	target, err := w.fs.ReadSymbolicLink(ctx, t.source)
	if err != nil {
		return errors.Errorf("reading link %s: %w", t.source, err)
	}
	t.linkTarget = target

	info, err := w.fs.StatFollow(ctx, t.source)
	switch {
	case err == nil:
		t.targetInfo = info
	case fsys.IsNotExist(err):
		w.logger.Debug().Str("link", t.source).Str("target", target).Msg("dangling link")
	default:
		w.logger.Warn().Err(err).Str("link", t.source).Msg("link target unreadable, treating as dangling")
	}
	return nil
}

// descends reports whether the walk continues through a link to a directory
func (w *walker) descends(t *Transferable) bool {
	if t.targetInfo == nil || !t.targetInfo.IsDirectory() {
		return false
	}
	return t.CopiesLink()
}

func loopsBack(chain []string, resolved string) bool {
	for _, ancestor := range chain {
		if isAncestorOrSelf(resolved, ancestor) {
			return true
		}
	}
	return false
}

func isAncestorOrSelf(a, b string) bool {
	return a == b || a == "/" || strings.HasPrefix(b, a+"/")
}

// collection is the include/exclude merge, keyed by destination path. seq
// orders entries; re-including an entry moves it to the end.
type collection struct {
	entries map[string]*Transferable
	seq     map[string]int
	counter int
}

func newCollection() *collection {
	return &collection{entries: map[string]*Transferable{}, seq: map[string]int{}}
}

func (c *collection) include(t *Transferable) {
	key := t.DestinationPath()
	c.entries[key] = t
	c.seq[key] = c.counter
	c.counter++
}

func (c *collection) exclude(matched []*Transferable) {
	sources := make(map[string]bool, len(matched))
	for _, t := range matched {
		sources[t.source] = true
	}
	for key, t := range c.entries {
		if sources[t.source] {
			delete(c.entries, key)
			delete(c.seq, key)
		}
	}
}

// addAncestors adds the base directory and every parent directory of each
// retained entry that is not already part of the collection
func (c *collection) addAncestors(visitedBySpec map[*Specification]map[string]*Transferable) {
	for _, t := range c.ordered() {
		if t.rel == "." {
			continue
		}
		visited := visitedBySpec[t.spec]

		parent := path.Dir(t.rel)
		if t.spec.DestName != "" {
			parent = "."
		}
		for {
			if dir, ok := visited[parent]; ok {
				key := dir.DestinationPath()
				if _, exists := c.entries[key]; !exists {
					c.include(dir)
				}
			}
			if parent == "." {
				break
			}
			parent = path.Dir(parent)
		}
	}
}

func (c *collection) ordered() []*Transferable {
	out := make([]*Transferable, 0, len(c.entries))
	for _, t := range c.entries {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return c.seq[out[i].DestinationPath()] < c.seq[out[j].DestinationPath()]
	})
	return out
}

func (c *collection) tree(logger *zerolog.Logger) *Tree {
	tree := &Tree{}
	for _, t := range c.ordered() {
		switch {
		case t.IsDirectory():
			tree.directories = append(tree.directories, t)
		case t.IsSymbolicLink() && !t.CopiesLink():
			tree.links = append(tree.links, t)
		case t.IsSymbolicLink():
			switch t.EffectiveKind() {
			case fsys.KindDirectory:
				tree.directories = append(tree.directories, t)
			case fsys.KindRegular:
				tree.files = append(tree.files, t)
			default:
				logger.Debug().Str("path", t.source).Msg("link target is not a file or directory, skipping")
			}
		case t.IsRegularFile():
			tree.files = append(tree.files, t)
		default:
			logger.Debug().Str("path", t.source).Stringer("kind", t.info.Kind).Msg("unsupported entry type, skipping")
		}
	}

	sort.SliceStable(tree.directories, func(i, j int) bool {
		return depth(tree.directories[i].DestinationPath()) < depth(tree.directories[j].DestinationPath())
	})
	return tree
}

func depth(p string) int {
	if p == "/" {
		return 0
	}
	return strings.Count(path.Clean(p), "/")
}
