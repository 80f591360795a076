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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/fluxion-dev/fluxion/internal/engine"
	"github.com/fluxion-dev/fluxion/internal/manifest"
	"github.com/fluxion-dev/fluxion/internal/state"
	"github.com/fluxion-dev/fluxion/internal/util"
)

const (
	resourcesCmdFormatFlag = "format"
	resourcesCmdDepthFlag  = "depth"
	resourcesCmdPathFlag   = "path"
)

var (
	resourcesGroup = &cobra.Command{
		Use:   "resources",
		Short: "Subcommands to inspect the resources of the manifest world",
	}
	listResources = &cobra.Command{
		Use:   "list",
		Short: "List the resources with their versions and freshness",
		Long: `The list command builds the world from the manifest, restores the committed
state, and lists every resource with its version, freshness, and owning
producer. Nothing is ensured; the listing reflects the persisted state.
`,
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			reg, _, err := buildWorldFromFlags(cmd)
			if err != nil {
				return err
			}
			infos := make([]engine.ResourceInfo, 0)
			for _, name := range reg.Names() {
				info, err := reg.Info(name)
				if err != nil {
					return err
				}
				infos = append(infos, info)
			}
			return displayResourcesList(infos, cmd)
		},
	}
	explainResource = &cobra.Command{
		Use:   "explain NAME",
		Short: "Render the dependency tree of a resource",
		Long: `The explain command prints the transitive dependency tree of the named
resource: per node the version, freshness, owning producer, and the dep that
triggers staleness. Nothing is ensured or recomputed.
`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			reg, _, err := buildWorldFromFlags(cmd)
			if err != nil {
				return err
			}
			depth, _ := cmd.Flags().GetInt(resourcesCmdDepthFlag)
			node, err := reg.Explain(args[0], depth)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), node.String())
			return err
		},
	}
	getResourceValue = &cobra.Command{
		Use:   "get-value NAME",
		Short: "Return the committed value of a resource",
		Long: `The get-value command prints the currently committed buffer of the named
resource as json. Use --path to extract a sub-value with a gjson path
expression.
`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			reg, _, err := buildWorldFromFlags(cmd)
			if err != nil {
				return err
			}
			buf, err := reg.Read(args[0], false)
			if err != nil {
				return err
			}
			if path, _ := cmd.Flags().GetString(resourcesCmdPathFlag); path != "" {
				raw, err := json.Marshal(buf)
				if err != nil {
					return fmt.Errorf("failed to encode value: %w", err)
				}
				res := gjson.GetBytes(raw, path)
				if !res.Exists() {
					return fmt.Errorf("no value at path '%s'", path)
				}
				buf = res.Value()
			}
			formatter := &util.JSONOutputFormatter[interface{}]{Data: buf, Out: cmd.OutOrStdout()}
			formatter.Display()
			return nil
		},
	}
)

// buildWorldFromFlags loads the manifest, builds the world, and restores the
// persisted snapshot into it.
func buildWorldFromFlags(cmd *cobra.Command) (*engine.Registry, *manifest.Graph, error) {
	m, err := loadManifestFromFlags(cmd)
	if err != nil {
		return nil, nil, err
	}
	world := engine.NewWorld()
	g, err := m.Build(world, "")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build world from manifest: %w", err)
	}
	if snap, ok, err := state.Load("."); err != nil {
		return nil, nil, fmt.Errorf("failed to load state directory: %w", err)
	} else if ok {
		if err := snap.Restore(world.Registry()); err != nil {
			return nil, nil, err
		}
	}
	return world.Registry(), g, nil
}

func displayResourcesList(infos []engine.ResourceInfo, cmd *cobra.Command) error {
	format, _ := cmd.Flags().GetString(resourcesCmdFormatFlag)
	var formatter util.OutputFormatter
	switch format {
	case "table":
		rows := make([][]string, 0, len(infos))
		for _, info := range infos {
			fresh := "stale"
			if info.Fresh {
				fresh = "fresh"
			}
			rows = append(rows, []string{
				info.Name, strconv.Itoa(info.Version), fresh, info.Producer, strings.Join(info.Deps, ", "),
			})
		}
		formatter = &util.TableOutputFormatter{
			Headers: []string{"Name", "Version", "State", "Producer", "Deps"},
			Rows:    rows,
			Out:     cmd.OutOrStdout(),
		}
	case "json":
		formatter = &util.JSONOutputFormatter[[]engine.ResourceInfo]{Data: infos, Out: cmd.OutOrStdout()}
	case "yaml":
		formatter = &util.YAMLOutputFormatter[[]engine.ResourceInfo]{Data: infos, Out: cmd.OutOrStdout()}
	default:
		return fmt.Errorf("format '%s' not supported (table, json, yaml)", format)
	}
	formatter.Display()
	return nil
}

func init() {
	for _, c := range []*cobra.Command{listResources, explainResource, getResourceValue} {
		c.Flags().StringP(evalCmdFileFlag, "f", "graph.yaml", "The manifest file to build the world from")
		c.Flags().StringArray(evalCmdOverlayFlag, nil, "Apply a patch overlay template to the manifest, may be repeated")
	}
	listResources.Flags().String(resourcesCmdFormatFlag, "table", "Output format: table, json or yaml")
	explainResource.Flags().Int(resourcesCmdDepthFlag, -1, "Limit the tree depth, -1 for unlimited")
	getResourceValue.Flags().String(resourcesCmdPathFlag, "", "Extract a sub-value with a gjson path expression")
	resourcesGroup.AddCommand(listResources, explainResource, getResourceValue)
	rootCmd.AddCommand(resourcesGroup)
}
