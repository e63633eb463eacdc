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


// Package state keeps a record of the last sync next to the job file.
package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/treesync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

const (
	// FileName is the lock file written beside the job file
	FileName      = ".treesync.lock"
	SchemaVersion = "1"
)

// 📄 Item is one tracked entry of a run
type Item struct {
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// 📦 Run is what the lock file holds
type Run struct {
	SchemaVersion string         `json:"schema_version"`
	ConfigHash    string         `json:"config_hash"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Outcome       string         `json:"outcome"`
	Counts        map[string]int `json:"counts"`
	Items         []Item         `json:"items"`
}

// NewRun snapshots the entries tracked during a run
func NewRun(hash string, started, finished time.Time, outcome string, entries []status.Entry) *Run {
	run := &Run{
		SchemaVersion: SchemaVersion,
		ConfigHash:    hash,
		StartedAt:     started.UTC(),
		FinishedAt:    finished.UTC(),
		Outcome:       outcome,
		Counts:        map[string]int{},
		Items:         make([]Item, 0, len(entries)),
	}
	for _, e := range entries {
		item := Item{
			Source:      e.Source,
			Destination: e.Destination,
			Type:        e.Type,
			Status:      e.Status.String(),
		}
		if e.Err != nil {
			item.Error = e.Err.Error()
		}
		run.Items = append(run.Items, item)
		run.Counts[item.Status]++
	}
	return run
}

// Changed reports whether hash differs from the hash of the recorded run
func (r *Run) Changed(hash string) bool {
	return r == nil || r.ConfigHash != hash
}

// 💾 Store reads and writes the lock file of one job
type Store struct {
	path string
}

// New returns a store for the lock file in dir
func New(dir string) *Store {
	return &Store{path: filepath.Join(dir, FileName)}
}

func (s *Store) Path() string { return s.path }

// Load returns the last run, or nil when none was recorded
func (s *Store) Load(ctx context.Context) (*Run, error) {
	zerolog.Ctx(ctx).Debug().Str("path", s.path).Msg("loading state")

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Errorf("reading state: %w", err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, errors.Errorf("parsing state %s: %w", s.path, err)
	}
	if run.SchemaVersion != SchemaVersion {
		return nil, errors.Errorf("state %s has schema %q, want %q", s.path, run.SchemaVersion, SchemaVersion)
	}
	return &run, nil
}

// Save replaces the lock file with run, atomically
func (s *Store) Save(ctx context.Context, run *Run) error {
	zerolog.Ctx(ctx).Debug().Str("path", s.path).Int("items", len(run.Items)).Msg("writing state")

	data, err := json.MarshalIndent(run, "", "\t")
	if err != nil {
		return errors.Errorf("encoding state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), FileName+".*")
	if err != nil {
		return errors.Errorf("creating temp state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return errors.Errorf("writing temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Errorf("closing temp state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Errorf("replacing state: %w", err)
	}
	return nil
}
