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

package log

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/treesync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name: "track_entry",
			op: func(t *testing.T, logger *Logger) {
				logger.Track(context.Background(), status.Entry{Destination: "/backup/a.log", Type: "file", Status: status.StatusCopied})
			},
			wantLogs: []string{
				"✓ /backup/a.log                                 file       copied",
			},
		},
		{
			name: "log_header",
			op: func(t *testing.T, logger *Logger) {
				logger.Header("syncing /data to /backup")
			},
			wantLogs: []string{
				"treesync • syncing /data to /backup",
			},
		},
		{
			name: "log_newline",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("first")
				logger.LogNewline()
				logger.Warningf("second %d", 2)
			},
			wantLogs: []string{
				"ℹ️  first",
				"",
				"⚠️  second 2",
			},
		},
		{
			name: "summary",
			op: func(t *testing.T, logger *Logger) {
				mgr := status.New(nil)
				mgr.Track(context.Background(), status.Entry{Destination: "/a", Status: status.StatusCopied})
				mgr.Track(context.Background(), status.Entry{Destination: "/b", Status: status.StatusCopied})
				mgr.Track(context.Background(), status.Entry{Destination: "/c", Status: status.StatusUnchanged})
				logger.Summary(mgr.Summary(), 1500*time.Millisecond)
			},
			wantLogs: []string{
				"✓ copied     2",
				"• unchanged  1",
				"3 items, 2 changed in 1.5s",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(buf, zerolog.New(zerolog.NewTestWriter(t)))

			tt.op(t, logger)

			output := strings.TrimSpace(buf.String())
			lines := strings.Split(output, "\n")

			require.Equal(t, len(tt.wantLogs), len(lines), "number of log lines should match")
			for i, want := range tt.wantLogs {
				assert.Equal(t, want, strings.TrimSpace(lines[i]), "log line %d should match", i)
			}
		})
	}
}

func TestLoggerContext(t *testing.T) {
	logger := New(io.Discard, zerolog.Nop())

	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx), "logger from context should be the same instance")

	assert.Panics(t, func() {
		FromContext(context.Background())
	}, "FromContext should panic when logger is missing")
}

func TestEntryFormatting(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name  string
		entry status.Entry
		want  string
	}{
		{
			name:  "created_directory",
			entry: status.Entry{Destination: "/backup", Type: "directory", Status: status.StatusCreated},
			want:  "    ✓ /backup                                       directory  created   ",
		},
		{
			name:  "unchanged_link",
			entry: status.Entry{Destination: "/backup/b.log", Type: "symlink", Status: status.StatusUnchanged},
			want:  "    • /backup/b.log                                 symlink    unchanged ",
		},
		{
			name:  "skipped_link",
			entry: status.Entry{Destination: "/backup/c", Type: "symlink", Status: status.StatusSkipped},
			want:  "    - /backup/c                                     symlink    skipped   ",
		},
		{
			name:  "failed_file",
			entry: status.Entry{Destination: "/backup/d", Type: "file", Status: status.StatusFailed, Err: errors.New("denied")},
			want:  "    ✗ /backup/d                                     file       failed    denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(io.Discard, zerolog.Nop())
			assert.Equal(t, tt.want, logger.formatEntry(tt.entry))
		})
	}
}
