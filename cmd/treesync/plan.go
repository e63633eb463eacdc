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
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/walteh/treesync/pkg/config"
	"github.com/walteh/treesync/pkg/fsys/backend"
	"github.com/walteh/treesync/pkg/resource"
	"gitlab.com/tozd/go/errors"
)

func newPlanCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "List what sync would replicate without touching the destination",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.plan(cmd.Context())
		},
	}
}

func (o *rootOpts) plan(ctx context.Context) error {
	job, err := config.Load(ctx, o.configFile)
	if err != nil {
		return errors.Errorf("loading job: %w", err)
	}
	specs, err := job.Specifications()
	if err != nil {
		return errors.Errorf("building specifications: %w", err)
	}

	src, err := backend.Open(ctx, job.Source.Backend(), nil)
	if err != nil {
		return errors.Errorf("opening source: %w", err)
	}
	defer src.Release()

	tree, err := resource.Discover(ctx, src, specs)
	if err != nil {
		return errors.Errorf("discovering resources: %w", err)
	}

	writePlan(o.stdout, tree)
	return nil
}

func writePlan(w io.Writer, tree *resource.Tree) {
	for _, d := range tree.Directories() {
		writePlanLine(w, "mkdir", d, "")
	}
	for _, l := range tree.Links() {
		action := "link"
		if l.LinkOption() == resource.SkipLinks {
			action = "skip"
		}
		writePlanLine(w, action, l, linkNote(l))
	}

	files := tree.Files()
	for {
		f, ok := files.Next()
		if !ok {
			break
		}
		note := ""
		if f.IsSymbolicLink() {
			note = linkNote(f)
		}
		if f.IsTemplate() {
			note += " template"
		}
		writePlanLine(w, "copy", f, note)
	}

	fmt.Fprintf(w, "\n%d directories, %d files, %d links\n", tree.DirectoryCount(), tree.FileCount(), tree.LinkCount())
}

func linkNote(t *resource.Transferable) string {
	safety := color.New(color.FgGreen).Sprint("safe")
	if !t.IsSafeLink() {
		safety = color.New(color.FgYellow).Sprint("unsafe")
	}
	return fmt.Sprintf(" [%s %s]", t.LinkTarget(), safety)
}

func writePlanLine(w io.Writer, action string, t *resource.Transferable, note string) {
	fmt.Fprintf(w, "%-6s %s -> %s%s\n", color.New(color.FgCyan).Sprint(action), t.SourcePath(), t.DestinationPath(), note)
}
