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
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-dev/fluxion/internal/engine"
)

func TestResourcesListBeforeAndAfterEval(t *testing.T) {
	_ = changeToTempDir(t)
	_, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"init"})
	require.NoError(t, err)

	stdout, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"resources", "list", "--format", "json"})
	require.NoError(t, err)
	var infos []engine.ResourceInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "demo.base", infos[0].Name)
	assert.True(t, infos[0].Fresh)
	assert.Equal(t, "demo.squared", infos[1].Name)
	assert.False(t, infos[1].Fresh)
	assert.Equal(t, "template://square", infos[1].Producer)
	assert.Equal(t, []string{"demo.base"}, infos[1].Deps)

	_, _, err = executeAndResetCommand(context.Background(), rootCmd, []string{"eval"})
	require.NoError(t, err)

	stdout, _, err = executeAndResetCommand(context.Background(), rootCmd, []string{"resources", "list", "--format", "json"})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), &infos))
	assert.True(t, infos[1].Fresh)
}

func TestResourcesExplain(t *testing.T) {
	_ = changeToTempDir(t)
	_, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"init"})
	require.NoError(t, err)

	stdout, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"resources", "explain", "demo.squared"})
	require.NoError(t, err)
	assert.Contains(t, stdout, "demo.squared v0 [stale]")
	assert.Contains(t, stdout, "producer=template://square")
	assert.Contains(t, stdout, "  demo.base v1 [fresh]")

	_, _, err = executeAndResetCommand(context.Background(), rootCmd, []string{"resources", "explain", "demo.ghost"})
	assert.ErrorContains(t, err, "unknown resource")
}

func TestResourcesGetValue(t *testing.T) {
	_ = changeToTempDir(t)
	_, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"init"})
	require.NoError(t, err)
	_, _, err = executeAndResetCommand(context.Background(), rootCmd, []string{"eval"})
	require.NoError(t, err)

	stdout, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"resources", "get-value", "demo.squared"})
	require.NoError(t, err)
	assert.JSONEq(t, "36", stdout)
}

func TestResourcesGetValuePath(t *testing.T) {
	td := changeToTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(td, "graph.yaml"), []byte(`
module: cfg
inputs:
  - name: settings
    value:
      solver:
        iterations: 40
`), 0600))
	stdout, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"resources", "get-value", "cfg.settings", "--path", "solver.iterations"})
	require.NoError(t, err)
	assert.JSONEq(t, "40", stdout)

	_, _, err = executeAndResetCommand(context.Background(), rootCmd, []string{"resources", "get-value", "cfg.settings", "--path", "solver.missing"})
	assert.ErrorContains(t, err, "no value at path")
}
