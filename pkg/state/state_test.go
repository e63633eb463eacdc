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


package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/treesync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

func TestLoadAndSave(t *testing.T) {
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())

	t.Run("load_missing_is_nil", func(t *testing.T) {
		run, err := New(t.TempDir()).Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, run)
		assert.True(t, run.Changed("abc"), "no record means changed")
	})

	t.Run("save_and_load", func(t *testing.T) {
		store := New(t.TempDir())
		started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		run := NewRun("abc", started, started.Add(time.Second), "failed", []status.Entry{
			{Source: "/data/a", Destination: "/backup/a", Type: "file", Status: status.StatusCopied},
			{Source: "/data/b", Destination: "/backup/b", Type: "file", Status: status.StatusFailed, Err: errors.New("denied")},
		})
		require.NoError(t, store.Save(ctx, run))

		got, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, run, got)
		assert.Equal(t, 1, got.Counts["copied"])
		assert.Equal(t, "denied", got.Items[1].Error)
		assert.False(t, got.Changed("abc"))
		assert.True(t, got.Changed("def"))

		entries, err := os.ReadDir(filepath.Dir(store.Path()))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "no temp files are left behind")
	})

	t.Run("schema_mismatch", func(t *testing.T) {
		store := New(t.TempDir())
		require.NoError(t, os.WriteFile(store.Path(), []byte(`{"schema_version":"0"}`), 0o644))
		_, err := store.Load(ctx)
		assert.ErrorContains(t, err, "has schema")
	})

	t.Run("corrupt", func(t *testing.T) {
		store := New(t.TempDir())
		require.NoError(t, os.WriteFile(store.Path(), []byte(`{`), 0o644))
		_, err := store.Load(ctx)
		assert.ErrorContains(t, err, "parsing state")
	})
}
