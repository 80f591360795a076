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
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fluxion-dev/fluxion/internal/state"
)

const DefaultManifestContent = `# A fluxion graph manifest declares one module: a set of user-settable value
# inputs plus the producers that derive further resources from them.
---

module: demo

inputs:
  - name: base
    description: The input number everything derives from
    value: 6

producers:
  # A template producer renders Go text/templates against its params and the
  # current dependency buffers. The values mapping must cover every output.
  - uri: template://square
    deps: [base]
    outputs: [squared]
    values: |
      squared: {{ mul .Deps.base .Deps.base }}
`

const (
	initCmdFileFlag     = "file"
	initCmdNoSampleFlag = "no-sample"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialise a new graph manifest and state directory",
	Long: `The init command writes a sample graph manifest into the current directory and
prepares the local state directory that eval uses to persist committed values
between invocations.
`,
	Args:          cobra.ExactArgs(0),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		manifestFile, _ := cmd.Flags().GetString(initCmdFileFlag)
		if noSample, _ := cmd.Flags().GetBool(initCmdNoSampleFlag); !noSample {
			if _, err := os.Stat(manifestFile); err == nil {
				slog.Info(fmt.Sprintf("Found existing manifest file '%s'", manifestFile))
			} else if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to check manifest file: %w", err)
			} else if err := os.WriteFile(manifestFile, []byte(DefaultManifestContent), 0644); err != nil {
				return fmt.Errorf("failed to write manifest file: %w", err)
			} else {
				slog.Info(fmt.Sprintf("Created sample manifest file '%s'", manifestFile))
			}
		}

		if _, ok, err := state.Load("."); err != nil {
			return fmt.Errorf("failed to load existing state: %w", err)
		} else if !ok {
			empty := &state.Snapshot{Resources: map[string]state.ResourceState{}}
			if err := empty.Save("."); err != nil {
				return fmt.Errorf("failed to write state directory: %w", err)
			}
			slog.Info("Created empty state directory")
		} else {
			slog.Info("Found existing state directory")
		}
		return nil
	},
}

func init() {
	initCmd.Flags().String(initCmdFileFlag, "graph.yaml", "The manifest file to create")
	initCmd.Flags().Bool(initCmdNoSampleFlag, false, "Skip writing the sample manifest")
	rootCmd.AddCommand(initCmd)
}
