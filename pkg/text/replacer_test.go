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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplacer_ReplaceText(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		rules        []ReplacementRule
		want         string
		wantCount    int
		wantModified bool
	}{
		{
			name:         "simple_replacement",
			content:      "listen 8080",
			rules:        []ReplacementRule{{FromText: "8080", ToText: "9090"}},
			want:         "listen 9090",
			wantCount:    1,
			wantModified: true,
		},
		{
			name:         "rules_apply_in_order",
			content:      "a b",
			rules:        []ReplacementRule{{FromText: "a", ToText: "b"}, {FromText: "b", ToText: "c"}},
			want:         "c c",
			wantCount:    3,
			wantModified: true,
		},
		{
			name:    "no_match",
			content: "unchanged",
			rules:   []ReplacementRule{{FromText: "nope", ToText: "x"}},
			want:    "unchanged",
		},
		{
			name:    "empty_from_text_is_ignored",
			content: "abc",
			rules:   []ReplacementRule{{ToText: "x"}},
			want:    "abc",
		},
		{
			name:    "empty_content",
			content: "",
			rules:   []ReplacementRule{{FromText: "a", ToText: "b"}},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewReplacer().ReplaceText(context.Background(), strings.NewReader(tt.content), tt.rules)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(result.OriginalContent))
			assert.Equal(t, tt.want, string(result.ModifiedContent))
			assert.Equal(t, tt.wantCount, result.ReplacementCount)
			assert.Equal(t, tt.wantModified, result.WasModified)
		})
	}
}

func TestReplacer_ValidateRules(t *testing.T) {
	tests := []struct {
		name      string
		rules     []ReplacementRule
		wantError string
	}{
		{name: "valid", rules: []ReplacementRule{{FromText: "a", FileFilterGlob: "**/*.conf"}}},
		{name: "glob_is_optional", rules: []ReplacementRule{{FromText: "a"}}},
		{name: "missing_from_text", rules: []ReplacementRule{{ToText: "b"}}, wantError: "rule 0: from_text is required"},
		{name: "bad_glob", rules: []ReplacementRule{{FromText: "a"}, {FromText: "b", FileFilterGlob: "[a-"}}, wantError: "rule 1: invalid file_filter_glob"},
		{name: "empty", rules: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewReplacer().ValidateRules(tt.rules)
			if tt.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestReplacementRuleApplies(t *testing.T) {
	tests := []struct {
		glob string
		path string
		want bool
	}{
		{"", "/etc/app/x.conf", true},
		{"*.conf", "/etc/app/x.conf", true},
		{"*.conf", "/etc/app/x.yaml", false},
		{"/etc/**/*.conf", "/etc/app/deep/x.conf", true},
		{"/srv/**", "/etc/app/x.conf", false},
	}

	for _, tt := range tests {
		t.Run(tt.glob+"@"+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplacementRule{FromText: "x", FileFilterGlob: tt.glob}.applies(tt.path))
		})
	}
}
