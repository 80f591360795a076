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
	"slices"
)

// Producer is a computation node owning a fixed set of output resources.
// Compute must commit every output (via Set, Commit, or Bump) before
// returning without error; the registry verifies this after each run.
type Producer interface {
	// Outputs returns the full names of the resources this producer may
	// commit. The slice is fixed at construction: non-empty, all distinct.
	Outputs() []string
	// Compute reads its inputs from the registry without re-ensuring them
	// and writes its outputs. It is called at most once per ensure pass.
	Compute(reg *Registry) error
}

// Describer is optionally implemented by producers that can identify
// themselves in diagnostics.
type Describer interface {
	Describe() string
}

func describeProducer(p Producer) string {
	if d, ok := p.(Describer); ok {
		return d.Describe()
	}
	return fmt.Sprintf("%T", p)
}

func checkOutputs(outputs []string) error {
	if len(outputs) == 0 {
		return validationError("", "producer declares no outputs")
	}
	for i, name := range outputs {
		if name == "" {
			return validationError("", "producer output %d has an empty name", i)
		}
		if slices.Index(outputs, name) != i {
			return validationError(name, "producer declares duplicate output")
		}
	}
	return nil
}

// FuncProducer adapts a plain function into a Producer.
type FuncProducer struct {
	name    string
	outputs []string
	fn      func(reg *Registry) error
}

// NewFuncProducer wraps fn as a producer committing the given outputs. The
// name is only used in diagnostics.
func NewFuncProducer(name string, outputs []string, fn func(reg *Registry) error) (*FuncProducer, error) {
	if err := checkOutputs(outputs); err != nil {
		return nil, err
	}
	return &FuncProducer{name: name, outputs: slices.Clone(outputs), fn: fn}, nil
}

func (p *FuncProducer) Outputs() []string {
	return p.outputs
}

func (p *FuncProducer) Compute(reg *Registry) error {
	return p.fn(reg)
}

func (p *FuncProducer) Describe() string {
	return p.name
}
