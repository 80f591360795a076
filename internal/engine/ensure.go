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
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// ensurePass is the per-pass bookkeeping of one top-level Ensure call. The
// visiting set detects cycles, ensured memoizes finished subtrees, and ran
// guarantees each producer executes at most once per pass even when several
// of its outputs are demanded.
type ensurePass struct {
	visiting map[string]bool
	stack    []string
	ensured  map[string]bool
	ran      map[Producer]bool
}

func newEnsurePass() *ensurePass {
	return &ensurePass{
		visiting: make(map[string]bool),
		ensured:  make(map[string]bool),
		ran:      make(map[Producer]bool),
	}
}

// Ensure makes the named resource fresh, recursively ensuring its deps and
// running stale producers, or fails with a typed error.
func (g *Registry) Ensure(name string) error {
	return g.ensure(newEnsurePass(), name)
}

// EnsureMany ensures each name in order within a single pass, so shared
// producers run at most once across the whole list.
func (g *Registry) EnsureMany(names []string) error {
	pass := newEnsurePass()
	for _, name := range names {
		if err := g.ensure(pass, name); err != nil {
			return err
		}
	}
	return nil
}

func (g *Registry) ensure(pass *ensurePass, name string) error {
	if pass.ensured[name] {
		return nil
	}
	if pass.visiting[name] {
		i := slices.Index(pass.stack, name)
		path := append(slices.Clone(pass.stack[i:]), name)
		return &Error{Kind: ErrResourceCycle, Name: name, Path: path}
	}
	r, err := g.lookup(name)
	if err != nil {
		return err
	}
	pass.visiting[name] = true
	pass.stack = append(pass.stack, name)

	for _, dep := range r.deps {
		if err := g.ensure(pass, dep); err != nil {
			return err
		}
	}

	if g.stale(r) {
		if err := g.refresh(pass, r); err != nil {
			return err
		}
	}

	pass.stack = pass.stack[:len(pass.stack)-1]
	delete(pass.visiting, name)
	pass.ensured[name] = true
	return nil
}

// refresh makes a stale resource fresh by running its producer, or fails
// when there is nothing to run.
func (g *Registry) refresh(pass *ensurePass, r *resource) error {
	if r.producer == nil {
		if r.version == 0 {
			return newError(ErrUninitializedInput, r.name, "set the input before ensuring it")
		}
		return newError(ErrUninitializedInput, r.name,
			fmt.Sprintf("no producer can refresh it: %s", g.staleReason(r)))
	}

	if pass.ran[r.producer] {
		// The producer already ran in this pass, so this output should have
		// been committed then.
		if g.stale(r) {
			return newError(ErrProducerDidNotCommit, r.name,
				fmt.Sprintf("producer %s ran earlier in this pass without committing this output", describeProducer(r.producer)))
		}
		return nil
	}

	outputs := r.producer.Outputs()

	// The producer runs once for all of its outputs, so the union of the
	// deps across the whole output set must be fresh first.
	pre := make(map[string]int, len(outputs))
	for _, out := range outputs {
		or, err := g.lookup(out)
		if err != nil {
			return err
		}
		if or.producer != r.producer {
			return newError(ErrProducerOutputNotOwned, out,
				fmt.Sprintf("declared with a different producer than %s", describeProducer(r.producer)))
		}
		for _, dep := range or.deps {
			if err := g.ensure(pass, dep); err != nil {
				return err
			}
		}
		pre[out] = or.version
	}

	// Ensuring the union of deps may itself have demanded one of our
	// outputs and run the producer through recursion.
	if pass.ran[r.producer] {
		if g.stale(r) {
			return newError(ErrProducerDidNotCommit, r.name,
				fmt.Sprintf("producer %s ran earlier in this pass without committing this output", describeProducer(r.producer)))
		}
		return nil
	}

	slog.Debug(fmt.Sprintf("Running producer %s", describeProducer(r.producer)), "target", r.name)
	if err := r.producer.Compute(g); err != nil {
		return fmt.Errorf("producer %s failed while refreshing '%s': %w", describeProducer(r.producer), r.name, err)
	}
	pass.ran[r.producer] = true

	var delinquent []string
	for _, out := range outputs {
		if g.resources[out].version <= pre[out] {
			delinquent = append(delinquent, out)
		}
	}
	if len(delinquent) > 0 {
		return newError(ErrProducerDidNotCommit, r.name,
			fmt.Sprintf("producer %s returned without committing: %s", describeProducer(r.producer), strings.Join(delinquent, ", ")))
	}
	return nil
}
