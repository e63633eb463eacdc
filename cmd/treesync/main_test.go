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


package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/treesync/pkg/state"
)

type fixture struct {
	src string
	dst string
	job string
}

func newFixture(t *testing.T, extra string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		src: filepath.Join(dir, "data"),
		dst: filepath.Join(dir, "backup"),
		job: filepath.Join(dir, "job.yaml"),
	}

	require.NoError(t, os.MkdirAll(filepath.Join(f.src, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.src, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.src, "logs", "b.log"), []byte("bravo"), 0o644))

	job := fmt.Sprintf("source: {}\ndestination: {}\nresources:\n  - src: %s\n    dest: %s\n%s", f.src, f.dst, extra)
	require.NoError(t, os.WriteFile(f.job, []byte(job), 0o644))
	return f
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestSync(t *testing.T) {
	f := newFixture(t, "")

	out, err := execute(t, "sync", "-c", f.job)
	require.NoError(t, err)
	assert.Contains(t, out, "copied")
	assert.Contains(t, out, "sync complete")

	data, err := os.ReadFile(filepath.Join(f.dst, "logs", "b.log"))
	require.NoError(t, err)
	assert.Equal(t, "bravo", string(data))

	run, err := state.New(filepath.Dir(f.job)).Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "succeed", run.Outcome)
	assert.Positive(t, run.Counts["copied"])

	out, err = execute(t, "sync", "--config", f.job, "--max-par", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged", "second run finds the tree in place")
}

func TestSyncErrors(t *testing.T) {
	tests := []struct {
		name        string
		args        func(f *fixture) []string
		errContains string
	}{
		{
			name:        "missing_job",
			args:        func(f *fixture) []string { return []string{"sync", "-c", filepath.Join(f.dst, "nope.yaml")} },
			errContains: "loading job",
		},
		{
			name:        "unexpected_argument",
			args:        func(f *fixture) []string { return []string{"sync", "-c", f.job, "extra"} },
			errContains: "unknown command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "")
			_, err := execute(t, tt.args(f)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestPlan(t *testing.T) {
	f := newFixture(t, "  - src: "+"PLACEHOLDER"+"\n    match: \"**/*.log\"\n    exclude: true\n")
	job, err := os.ReadFile(f.job)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.job, bytes.ReplaceAll(job, []byte("PLACEHOLDER"), []byte(f.src)), 0o644))
	require.NoError(t, os.Symlink("a.txt", filepath.Join(f.src, "current")))

	out, err := execute(t, "plan", "-c", f.job)
	require.NoError(t, err)

	assert.Contains(t, out, "mkdir  "+f.src+" -> "+f.dst)
	assert.Contains(t, out, "copy   "+filepath.Join(f.src, "a.txt")+" -> "+filepath.Join(f.dst, "a.txt"))
	assert.Contains(t, out, "link   "+filepath.Join(f.src, "current")+" -> "+filepath.Join(f.dst, "current")+" [a.txt safe]")
	assert.NotContains(t, out, "b.log", "excluded by the second resource")

	_, err = os.Stat(f.dst)
	assert.True(t, os.IsNotExist(err), "plan never touches the destination")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "🚀 treesync")

	out, err = execute(t, "version", "--json")
	require.NoError(t, err)
	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Version)
}
