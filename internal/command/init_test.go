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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitNominal(t *testing.T) {
	td := changeToTempDir(t)
	stdout, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"init"})
	require.NoError(t, err)
	assert.Equal(t, "", stdout)

	assert.FileExists(t, filepath.Join(td, "graph.yaml"))
	assert.FileExists(t, filepath.Join(td, ".fluxion", "state.yaml"))
}

func TestInitNoSample(t *testing.T) {
	td := changeToTempDir(t)
	_, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"init", "--no-sample"})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(td, "graph.yaml"))
	assert.FileExists(t, filepath.Join(td, ".fluxion", "state.yaml"))
}

func TestInitDoesNotOverwrite(t *testing.T) {
	td := changeToTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(td, "graph.yaml"), []byte("module: mine\n"), 0600))
	_, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"init"})
	require.NoError(t, err)
	raw, err := os.ReadFile(filepath.Join(td, "graph.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "module: mine\n", string(raw))
}

func TestInitCustomFile(t *testing.T) {
	td := changeToTempDir(t)
	_, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"init", "--file", "other.graph.yaml"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(td, "other.graph.yaml"))
}
