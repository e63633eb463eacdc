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
	"io"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ReplacementRule replaces every literal occurrence of FromText
type ReplacementRule struct {
	FromText string `json:"from_text" yaml:"from_text" hcl:"from_text"`
	ToText   string `json:"to_text" yaml:"to_text" hcl:"to_text"`
	// FileFilterGlob limits the rule to matching source files, all files when empty
	FileFilterGlob string `json:"file_filter_glob,omitempty" yaml:"file_filter_glob,omitempty" hcl:"file_filter_glob,optional"`
}

// applies reports whether the rule is meant for sourcePath. The glob is
// tried against the full path and against the base name.
func (r ReplacementRule) applies(sourcePath string) bool {
	if r.FileFilterGlob == "" {
		return true
	}
	if ok, _ := doublestar.Match(r.FileFilterGlob, sourcePath); ok {
		return true
	}
	ok, _ := doublestar.Match(r.FileFilterGlob, path.Base(sourcePath))
	return ok
}

// ReplacementResult describes what a set of rules did to some content
type ReplacementResult struct {
	WasModified      bool
	ReplacementCount int
	OriginalContent  []byte
	ModifiedContent  []byte
}

// 🔁 Replacer applies literal replacement rules in order
type Replacer struct{}

func NewReplacer() *Replacer {
	return &Replacer{}
}

func (r *Replacer) ReplaceText(ctx context.Context, content io.Reader, rules []ReplacementRule) (*ReplacementResult, error) {
	original, err := io.ReadAll(content)
	if err != nil {
		return nil, errors.Errorf("reading content: %w", err)
	}

	result := &ReplacementResult{
		OriginalContent: original,
		ModifiedContent: original,
	}

	current := string(original)
	for _, rule := range rules {
		if rule.FromText == "" {
			continue
		}
		n := strings.Count(current, rule.FromText)
		if n == 0 {
			continue
		}
		current = strings.ReplaceAll(current, rule.FromText, rule.ToText)
		result.WasModified = true
		result.ReplacementCount += n
	}

	if result.WasModified {
		zerolog.Ctx(ctx).Trace().Int("replacements", result.ReplacementCount).Msg("replacements applied")
	}
	result.ModifiedContent = []byte(current)
	return result, nil
}

// ValidateRules rejects rules without FromText or with a malformed glob
func (r *Replacer) ValidateRules(rules []ReplacementRule) error {
	for i, rule := range rules {
		if rule.FromText == "" {
			return errors.Errorf("rule %d: from_text is required", i)
		}
		if rule.FileFilterGlob != "" && !doublestar.ValidatePattern(rule.FileFilterGlob) {
			return errors.Errorf("rule %d: invalid file_filter_glob %q", i, rule.FileFilterGlob)
		}
	}
	return nil
}
