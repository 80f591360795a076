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

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplain_treeContents(t *testing.T) {
	reg := NewRegistry()
	runs := 0
	declareSquare(t, reg, &runs)
	require.NoError(t, reg.Set("m.x", 6))
	require.NoError(t, reg.Ensure("m.y"))
	require.NoError(t, reg.Set("m.x", 7))

	node, err := reg.Explain("m.y", -1)
	require.NoError(t, err)
	assert.Equal(t, "m.y", node.Name)
	assert.Equal(t, 1, node.Version)
	assert.False(t, node.Fresh)
	assert.Equal(t, "square", node.Producer)
	assert.Contains(t, node.StaleReason, "m.x")
	require.Len(t, node.Deps, 1)
	assert.Equal(t, "m.x", node.Deps[0].Name)
	assert.Equal(t, 2, node.Deps[0].Version)
	assert.True(t, node.Deps[0].Fresh)

	rendered := node.String()
	assert.Contains(t, rendered, "m.y v1 [stale]")
	assert.Contains(t, rendered, "m.x v2 [fresh]")
}

func TestExplain_depthLimit(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Declare("m.a", Decl{}))
	require.NoError(t, reg.Declare("m.b", Decl{Deps: []string{"m.a"}}))
	require.NoError(t, reg.Declare("m.c", Decl{Deps: []string{"m.b"}}))

	node, err := reg.Explain("m.c", 1)
	require.NoError(t, err)
	require.Len(t, node.Deps, 1)
	assert.Empty(t, node.Deps[0].Deps)
}

func TestExplain_neverMutates(t *testing.T) {
	reg := NewRegistry()
	runs := 0
	declareSquare(t, reg, &runs)
	require.NoError(t, reg.Set("m.x", 6))

	_, err := reg.Explain("m.y", -1)
	require.NoError(t, err)
	assert.Equal(t, 0, runs)
	assert.Equal(t, 0, reg.resources["m.y"].version)
}

func TestExplain_undeclaredDep(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Declare("m.y", Decl{Deps: []string{"m.ghost"}}))
	node, err := reg.Explain("m.y", -1)
	require.NoError(t, err)
	require.Len(t, node.Deps, 1)
	assert.Equal(t, "not declared", node.Deps[0].StaleReason)
}

func TestExplain_unknownRoot(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Explain("m.ghost", -1)
	assert.True(t, IsKind(err, ErrUnknownResource))
}
