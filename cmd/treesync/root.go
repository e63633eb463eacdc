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
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootOpts holds the persistent flags and the output streams
type rootOpts struct {
	configFile string
	debug      bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOpts{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "treesync",
		Short: "Replicate file trees between local, SFTP and CIFS endpoints",
		Long: `treesync copies selected parts of a source file tree onto a destination.
Resources are described in a job file (YAML, JSON or HCL) with glob filters,
symbolic link policies, conflict policies and optional templating.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(opts.setupLogging(cmd.Context()))
		},
	}

	addRootFlags(cmd, opts)

	cmd.AddCommand(
		newSyncCmd(opts),
		newPlanCmd(opts),
		newVersionCmd(opts),
	)

	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, opts *rootOpts) {
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "treesync.yaml", "job file path")
	cmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")
}

// setupLogging configures zerolog based on flags
func (o *rootOpts) setupLogging(ctx context.Context) context.Context {
	level := zerolog.InfoLevel
	if o.debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(o.stderr).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log
	return log.WithContext(ctx)
}
