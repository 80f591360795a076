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
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fluxion-dev/fluxion/internal/engine"
	"github.com/fluxion-dev/fluxion/internal/manifest"
	"github.com/fluxion-dev/fluxion/internal/state"
	"github.com/fluxion-dev/fluxion/internal/util"
	"github.com/fluxion-dev/fluxion/internal/utils"
)

const (
	evalCmdFileFlag    = "file"
	evalCmdSetFlag     = "set"
	evalCmdOverlayFlag = "overlay"
	evalCmdTargetFlag  = "target"
	evalCmdFormatFlag  = "format"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate the graph manifest and print the produced values",
	Long: `The eval command builds a world from the graph manifest, restores any values
committed by earlier invocations, applies the --set inputs, and lazily ensures
the requested targets. Producers only run for targets that are stale with
respect to the recorded upstream versions. Committed plain values are persisted
back to the state directory.
`,
	Args:          cobra.ExactArgs(0),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		m, err := loadManifestFromFlags(cmd)
		if err != nil {
			return err
		}

		world := engine.NewWorld()
		g, err := m.Build(world, "")
		if err != nil {
			return fmt.Errorf("failed to build world from manifest: %w", err)
		}
		reg := world.Registry()

		if snap, ok, err := state.Load("."); err != nil {
			return fmt.Errorf("failed to load state directory: %w", err)
		} else if ok {
			if err := snap.Restore(reg); err != nil {
				return err
			}
			slog.Info(fmt.Sprintf("Restored %d committed values", len(snap.Resources)))
		}

		sets, _ := cmd.Flags().GetStringArray(evalCmdSetFlag)
		for _, entry := range sets {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("--set '%s' is not of the form name=value", entry)
			}
			ref, ok := g.Inputs[parts[0]]
			if !ok {
				return fmt.Errorf("--set '%s' does not name a manifest input", parts[0])
			}
			if err := ref.Set(utils.TryParseJsonValue(parts[1])); err != nil {
				return err
			}
			slog.Info(fmt.Sprintf("Set input '%s'", ref.Name()))
		}

		targets, _ := cmd.Flags().GetStringArray(evalCmdTargetFlag)
		if len(targets) == 0 {
			targets = g.Targets
		} else {
			for i, t := range targets {
				targets[i] = g.Qualify(t)
			}
		}
		if err := reg.EnsureMany(targets); err != nil {
			return err
		}
		slog.Info(fmt.Sprintf("Ensured %d targets", len(targets)))

		if err := state.Capture(m.Module, reg).Save("."); err != nil {
			return fmt.Errorf("failed to persist state: %w", err)
		}

		values := make(map[string]interface{}, len(targets))
		for _, t := range targets {
			buf, err := reg.Read(t, false)
			if err != nil {
				return err
			}
			values[t] = buf
		}
		return displayValues(values, cmd)
	},
}

func loadManifestFromFlags(cmd *cobra.Command) (*manifest.Manifest, error) {
	manifestFile, _ := cmd.Flags().GetString(evalCmdFileFlag)
	raw, err := os.ReadFile(manifestFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}
	overlayFiles, _ := cmd.Flags().GetStringArray(evalCmdOverlayFlag)
	overlays := make([]string, 0, len(overlayFiles))
	for _, f := range overlayFiles {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read overlay file: %w", err)
		}
		overlays = append(overlays, string(content))
	}
	m, err := manifest.Load(raw, overlays...)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest '%s': %w", manifestFile, err)
	}
	slog.Info(fmt.Sprintf("Loaded manifest for module '%s'", m.Module))
	return m, nil
}

func displayValues(values map[string]interface{}, cmd *cobra.Command) error {
	format, _ := cmd.Flags().GetString(evalCmdFormatFlag)
	var formatter util.OutputFormatter
	switch format {
	case "json":
		formatter = &util.JSONOutputFormatter[map[string]interface{}]{Data: values, Out: cmd.OutOrStdout()}
	case "yaml":
		formatter = &util.YAMLOutputFormatter[map[string]interface{}]{Data: values, Out: cmd.OutOrStdout()}
	default:
		return fmt.Errorf("format '%s' not supported (json, yaml)", format)
	}
	formatter.Display()
	return nil
}

func init() {
	evalCmd.Flags().StringP(evalCmdFileFlag, "f", "graph.yaml", "The manifest file to evaluate")
	evalCmd.Flags().StringArray(evalCmdSetFlag, nil, "Override an input value as name=value, may be repeated")
	evalCmd.Flags().StringArray(evalCmdOverlayFlag, nil, "Apply a patch overlay template to the manifest, may be repeated")
	evalCmd.Flags().StringArray(evalCmdTargetFlag, nil, "Ensure only the given module-local attributes, may be repeated")
	evalCmd.Flags().String(evalCmdFormatFlag, "yaml", "Output format: json or yaml")
	rootCmd.AddCommand(evalCmd)
}
