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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/treesync/pkg/fsys"
)

func TestRendererRender(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		template string
		opts     RendererOptions
		want     string
		wantErr  error
	}{
		{
			name:     "vars_and_sprig",
			file:     "motd",
			template: `hello {{ .name | upper }}{{ if .admin }}!{{ end }}`,
			opts:     RendererOptions{Vars: map[string]any{"name": "ops", "admin": true}},
			want:     "hello OPS!",
		},
		{
			name:     "replacements_after_rendering",
			file:     "app.conf",
			template: `port={{ .port }}`,
			opts: RendererOptions{
				Vars:  map[string]any{"port": 8080},
				Rules: []ReplacementRule{{FromText: "port", ToText: "listen", FileFilterGlob: "*.conf"}},
			},
			want: "listen=8080",
		},
		{
			name:     "filtered_rule_is_skipped",
			file:     "app.yaml",
			template: `port: 1`,
			opts:     RendererOptions{Rules: []ReplacementRule{{FromText: "port", ToText: "listen", FileFilterGlob: "*.conf"}}},
			want:     "port: 1",
		},
		{
			name:     "missing_key",
			file:     "broken",
			template: `{{ .absent }}`,
			wantErr:  fsys.ErrTemplating,
		},
		{
			name:     "parse_error",
			file:     "broken",
			template: `{{ if }}`,
			wantErr:  fsys.ErrTemplating,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
			src := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(src, []byte(tt.template), 0o644))

			tt.opts.TempDir = t.TempDir()
			r, err := NewRenderer(tt.opts)
			require.NoError(t, err)

			rendered, err := r.Render(ctx, src)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.opts.TempDir, filepath.Dir(rendered))

			got, err := os.ReadFile(rendered)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))

			raw, err := os.ReadFile(src)
			require.NoError(t, err)
			assert.Equal(t, tt.template, string(raw), "the source is never modified")
		})
	}
}

func TestRendererMissingSource(t *testing.T) {
	r, err := NewRenderer(RendererOptions{TempDir: t.TempDir()})
	require.NoError(t, err)
	_, err = r.Render(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, fsys.ErrTemplating)
}

func TestNewRendererRejectsBadRules(t *testing.T) {
	_, err := NewRenderer(RendererOptions{Rules: []ReplacementRule{{ToText: "x"}}})
	assert.Error(t, err)
}
