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
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// declareSquare wires the classic two-node graph: input m.x, output m.y
// produced as x*x. Returns the number of producer runs through the counter.
func declareSquare(t *testing.T, reg *Registry, runs *int) {
	t.Helper()
	prod, err := NewFuncProducer("square", []string{"m.y"}, func(reg *Registry) error {
		*runs++
		x, err := reg.Read("m.x", false)
		if err != nil {
			return err
		}
		return reg.Set("m.y", x.(int)*x.(int))
	})
	require.NoError(t, err)
	require.NoError(t, reg.Declare("m.x", Decl{}))
	require.NoError(t, reg.Declare("m.y", Decl{Deps: []string{"m.x"}, Producer: prod}))
}

func TestEnsure_lazySquare(t *testing.T) {
	reg := NewRegistry()
	runs := 0
	declareSquare(t, reg, &runs)

	require.NoError(t, reg.Set("m.x", 6))
	y, err := reg.Read("m.y", true)
	require.NoError(t, err)
	assert.Equal(t, 36, y)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, reg.resources["m.y"].version)
	assert.Equal(t, []depVersion{{name: "m.x", version: 1}}, reg.resources["m.y"].depSig)

	// A second read must not re-run the producer.
	y, err = reg.Read("m.y", true)
	require.NoError(t, err)
	assert.Equal(t, 36, y)
	assert.Equal(t, 1, runs)
}

func TestEnsure_invalidation(t *testing.T) {
	reg := NewRegistry()
	runs := 0
	declareSquare(t, reg, &runs)

	require.NoError(t, reg.Set("m.x", 6))
	_, err := reg.Read("m.y", true)
	require.NoError(t, err)

	require.NoError(t, reg.Set("m.x", 7))
	assert.Equal(t, 2, reg.resources["m.x"].version)

	y, err := reg.Read("m.y", true)
	require.NoError(t, err)
	assert.Equal(t, 49, y)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 2, reg.resources["m.y"].version)
	assert.Equal(t, []depVersion{{name: "m.x", version: 2}}, reg.resources["m.y"].depSig)
}

func TestEnsure_unknownResource(t *testing.T) {
	reg := NewRegistry()
	err := reg.Ensure("nope")
	assert.True(t, IsKind(err, ErrUnknownResource))
}

func TestEnsure_uninitializedInput(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Declare("m.x", Decl{}))
	err := reg.Ensure("m.x")
	assert.True(t, IsKind(err, ErrUninitializedInput))
	assert.ErrorContains(t, err, "m.x")
}

func TestEnsure_multiOutputFusion(t *testing.T) {
	reg := NewRegistry()
	runs := 0
	prod, err := NewFuncProducer("build-topology", []string{"t.everts", "t.efaces", "t.eopp"}, func(reg *Registry) error {
		runs++
		return reg.CommitMany([]string{"t.everts", "t.efaces", "t.eopp"}, map[string]interface{}{
			"t.everts": 1, "t.efaces": 2, "t.eopp": 3,
		})
	})
	require.NoError(t, err)
	require.NoError(t, reg.Declare("t.vpos", Decl{}))
	require.NoError(t, reg.Declare("t.fverts", Decl{}))
	deps := []string{"t.vpos", "t.fverts"}
	for _, out := range prod.Outputs() {
		require.NoError(t, reg.Declare(out, Decl{Deps: deps, Producer: prod}))
	}
	require.NoError(t, reg.Set("t.vpos", "verts"))
	require.NoError(t, reg.Set("t.fverts", "faces"))

	require.NoError(t, reg.Ensure("t.everts"))
	assert.Equal(t, 1, runs)

	// The sibling outputs were committed by the same run.
	require.NoError(t, reg.Ensure("t.eopp"))
	require.NoError(t, reg.Ensure("t.efaces"))
	assert.Equal(t, 1, runs)
}

func TestEnsureMany_sharesOnePass(t *testing.T) {
	reg := NewRegistry()
	runs := 0
	prod, err := NewFuncProducer("pair", []string{"m.a", "m.b"}, func(reg *Registry) error {
		runs++
		return reg.CommitMany([]string{"m.a", "m.b"}, map[string]interface{}{"m.a": 1, "m.b": 2})
	})
	require.NoError(t, err)
	require.NoError(t, reg.Declare("m.a", Decl{Producer: prod}))
	require.NoError(t, reg.Declare("m.b", Decl{Producer: prod}))

	require.NoError(t, reg.EnsureMany([]string{"m.a", "m.b"}))
	assert.Equal(t, 1, runs)
}

func TestEnsure_resourceCycle(t *testing.T) {
	reg := NewRegistry()
	pa, err := NewFuncProducer("pa", []string{"m.a"}, func(reg *Registry) error { return reg.Commit("m.a") })
	require.NoError(t, err)
	pb, err := NewFuncProducer("pb", []string{"m.b"}, func(reg *Registry) error { return reg.Commit("m.b") })
	require.NoError(t, err)
	require.NoError(t, reg.Declare("m.a", Decl{Deps: []string{"m.b"}, Producer: pa}))
	require.NoError(t, reg.Declare("m.b", Decl{Deps: []string{"m.a"}, Producer: pb}))

	err = reg.Ensure("m.a")
	require.True(t, IsKind(err, ErrResourceCycle))
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, []string{"m.a", "m.b", "m.a"}, e.Path)
}

func TestEnsure_producerDidNotCommit(t *testing.T) {
	reg := NewRegistry()
	prod, err := NewFuncProducer("lazy", []string{"m.a", "m.b"}, func(reg *Registry) error {
		// Only commits one of its two declared outputs.
		return reg.Set("m.a", 1)
	})
	require.NoError(t, err)
	require.NoError(t, reg.Declare("m.a", Decl{Producer: prod}))
	require.NoError(t, reg.Declare("m.b", Decl{Producer: prod}))

	err = reg.Ensure("m.b")
	require.True(t, IsKind(err, ErrProducerDidNotCommit))
	assert.ErrorContains(t, err, "m.b")
}

func TestEnsure_producerError(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	prod, err := NewFuncProducer("failing", []string{"m.a"}, func(reg *Registry) error { return boom })
	require.NoError(t, err)
	require.NoError(t, reg.Declare("m.a", Decl{Producer: prod}))

	err = reg.Ensure("m.a")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, reg.resources["m.a"].version)
}

func TestEnsure_manualOverrideWinsUntilUpstreamChanges(t *testing.T) {
	reg := NewRegistry()
	runs := 0
	declareSquare(t, reg, &runs)
	require.NoError(t, reg.Set("m.x", 6))
	_, err := reg.Read("m.y", true)
	require.NoError(t, err)

	// Nothing is read-only: overriding the produced value breaks the cache
	// until the next upstream change.
	require.NoError(t, reg.Set("m.y", 1000))
	y, err := reg.Read("m.y", true)
	require.NoError(t, err)
	assert.Equal(t, 1000, y)
	assert.Equal(t, 1, runs)

	require.NoError(t, reg.Set("m.x", 8))
	y, err = reg.Read("m.y", true)
	require.NoError(t, err)
	assert.Equal(t, 64, y)
	assert.Equal(t, 2, runs)
}

func TestEnsure_allocateThenFill(t *testing.T) {
	reg := NewRegistry()
	spec := DynamicArraySpec(DTypeF32, func(reg *Registry) ([]int, error) {
		buf, err := reg.Read("m.pts", false)
		if err != nil {
			return nil, err
		}
		return []int{buf.(*Array).Len()}, nil
	})
	prod, err := NewFuncProducer("norms", []string{"m.norms"}, func(reg *Registry) error {
		pts, err := reg.Read("m.pts", false)
		if err != nil {
			return err
		}
		n := pts.(*Array).Len()
		cur, err := reg.Read("m.norms", false)
		if err != nil {
			return err
		}
		arr, ok := cur.(*Array)
		if !ok || !slices.Equal(arr.Shape, []int{n}) {
			arr = NewArray(DTypeF32, []int{n}, make([]float32, n))
			if err := reg.SetBuffer("m.norms", arr, false, false); err != nil {
				return err
			}
		}
		for i, v := range pts.(*Array).Data.([]float32) {
			arr.Data.([]float32)[i] = v * v
		}
		return reg.Commit("m.norms")
	})
	require.NoError(t, err)
	require.NoError(t, reg.Declare("m.pts", Decl{}))
	require.NoError(t, reg.Declare("m.norms", Decl{Deps: []string{"m.pts"}, Producer: prod, Spec: spec}))

	require.NoError(t, reg.Set("m.pts", NewArray(DTypeF32, []int{3}, []float32{1, 2, 3})))
	buf, err := reg.Read("m.norms", true)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 4, 9}, buf.(*Array).Data)
	assert.Equal(t, 1, reg.resources["m.norms"].version)
	assert.Equal(t, []depVersion{{name: "m.pts", version: 1}}, reg.resources["m.norms"].depSig)

	// Growing the input reallocates and refills.
	require.NoError(t, reg.Set("m.pts", NewArray(DTypeF32, []int{4}, []float32{1, 2, 3, 4})))
	buf, err = reg.Read("m.norms", true)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 4, 9, 16}, buf.(*Array).Data)
	assert.Equal(t, 2, reg.resources["m.norms"].version)
}

func TestEnsure_staleNoProducerWithDeps(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Declare("m.x", Decl{}))
	require.NoError(t, reg.Declare("m.y", Decl{Deps: []string{"m.x"}}))
	require.NoError(t, reg.Set("m.x", 1))
	require.NoError(t, reg.Set("m.y", 2))
	require.NoError(t, reg.Ensure("m.y"))

	// Once the upstream advances there is nothing that can refresh m.y.
	require.NoError(t, reg.Set("m.x", 3))
	err := reg.Ensure("m.y")
	assert.True(t, IsKind(err, ErrUninitializedInput))
	assert.ErrorContains(t, err, "no producer")
}

func TestEnsure_bumpKeepsProducerReRunning(t *testing.T) {
	reg := NewRegistry()
	runs := 0
	prod, err := NewFuncProducer("bumper", []string{"m.y"}, func(reg *Registry) error {
		runs++
		if runs == 1 {
			return reg.Set("m.y", 1)
		}
		// An in-place update that keeps the old upstream baseline.
		return reg.Bump("m.y")
	})
	require.NoError(t, err)
	require.NoError(t, reg.Declare("m.x", Decl{}))
	require.NoError(t, reg.Declare("m.y", Decl{Deps: []string{"m.x"}, Producer: prod}))
	require.NoError(t, reg.Set("m.x", 1))

	require.NoError(t, reg.Ensure("m.y"))
	assert.Equal(t, 1, runs)

	require.NoError(t, reg.Set("m.x", 2))
	require.NoError(t, reg.Ensure("m.y"))
	assert.Equal(t, 2, runs)

	// The bump satisfied commit enforcement but did not refresh the
	// baseline, so the next pass runs the producer again.
	require.NoError(t, reg.Ensure("m.y"))
	assert.Equal(t, 3, runs)
}
