// Copyright 2025 The Fluxion Authors
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

package command

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fluxion-dev/fluxion/internal/logging"
	"github.com/fluxion-dev/fluxion/internal/version"
)

var (
	rootCmd = &cobra.Command{
		Use:   "fluxion",
		Short: "Lazy, versioned dataflow worlds for research pipelines",
		Long: `fluxion builds a world of named, versioned resources from a graph manifest and
evaluates it lazily: producers only run when one of their outputs is stale with
respect to the recorded upstream versions.`,
		Version:       version.BuildVersionString(),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")
			verbosity, _ := cmd.Flags().GetCount("verbose")
			level := slog.LevelInfo
			switch {
			case quiet:
				level = slog.LevelError
			case verbosity == 1:
				level = slog.LevelDebug
			case verbosity > 1:
				level = slog.LevelDebug - 1
			}
			slog.SetDefault(slog.New(&logging.SimpleHandler{Writer: os.Stderr, Level: level}))
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().Bool("quiet", false, "Mute any logging output")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase log verbosity and detail by specifying this flag one or more times")
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "%s" .Version}}
`)
}

func Execute() error {
	return rootCmd.Execute()
}
