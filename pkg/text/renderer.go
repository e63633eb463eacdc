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

package text

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/treesync/pkg/fsys"
	"gitlab.com/tozd/go/errors"
)

// ⚙️ RendererOptions configures a Renderer
type RendererOptions struct {
	// Vars is the dot of every template
	Vars map[string]any
	// Rules run on the rendered output
	Rules []ReplacementRule
	// TempDir receives rendered files, os.TempDir() when empty
	TempDir string
}

// 📝 Renderer is the default templating collaborator: Go templates with the
// sprig function set, followed by literal replacement rules.
type Renderer struct {
	opts     RendererOptions
	replacer *Replacer
}

var _ fsys.Templater = (*Renderer)(nil)

// 🏗️ NewRenderer validates the rules
func NewRenderer(opts RendererOptions) (*Renderer, error) {
	r := &Renderer{opts: opts, replacer: NewReplacer()}
	if err := r.replacer.ValidateRules(opts.Rules); err != nil {
		return nil, errors.Errorf("validating replacement rules: %w", err)
	}
	if r.opts.TempDir == "" {
		r.opts.TempDir = os.TempDir()
	}
	if r.opts.Vars == nil {
		r.opts.Vars = map[string]any{}
	}
	return r, nil
}

// 🔄 Render executes the template at sourcePath and writes the result to a
// new file in TempDir. The caller removes the returned file.
func (r *Renderer) Render(ctx context.Context, sourcePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", errors.Errorf("reading template %s: %w: %w", sourcePath, fsys.ErrTemplating, err)
	}

	out, err := r.execute(filepath.Base(sourcePath), raw)
	if err != nil {
		return "", errors.Errorf("%w: %w", fsys.ErrTemplating, err)
	}

	var rules []ReplacementRule
	for _, rule := range r.opts.Rules {
		if rule.applies(filepath.ToSlash(sourcePath)) {
			rules = append(rules, rule)
		}
	}
	result, err := r.replacer.ReplaceText(ctx, bytes.NewReader(out), rules)
	if err != nil {
		return "", errors.Errorf("%w: %w", fsys.ErrTemplating, err)
	}

	rendered := filepath.Join(r.opts.TempDir, "treesync-render-"+uuid.NewString())
	if err := os.WriteFile(rendered, result.ModifiedContent, 0o600); err != nil {
		return "", errors.Errorf("writing rendered file: %w: %w", fsys.ErrTemplating, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("source", sourcePath).
		Str("rendered", rendered).
		Int("replacements", result.ReplacementCount).
		Msg("template rendered")
	return rendered, nil
}

func (r *Renderer) execute(name string, raw []byte) ([]byte, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(string(raw))
	if err != nil {
		return nil, errors.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r.opts.Vars); err != nil {
		return nil, errors.Errorf("executing template: %w", err)
	}
	return buf.Bytes(), nil
}
