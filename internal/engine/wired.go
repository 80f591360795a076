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

import "fmt"

// IO is implemented by wired IO records: structs whose fields are refs, a
// designated subset of which are the producer's outputs. Outputs returns the
// marked output handles in declaration order.
type IO interface {
	Outputs() []Handle
}

// Wired binds a producer to a typed IO record. The output names are derived
// from the record's marked output handles at construction, so producer code
// never constructs resource names. Inside Compute, inputs are read through
// io.<field>.Peek() (the registry guarantees they are fresh by the time the
// producer runs) and outputs are written through io.<field>.Set, SetBuffer
// plus Commit, or Bump.
type Wired[T IO] struct {
	IO      T
	outputs []string
	compute func(io T, reg *Registry) error
}

// NewWired derives the output set from the IO record and validates it:
// non-empty, all names distinct.
func NewWired[T IO](io T, compute func(io T, reg *Registry) error) (*Wired[T], error) {
	handles := io.Outputs()
	outputs := make([]string, 0, len(handles))
	for _, h := range handles {
		outputs = append(outputs, h.Name())
	}
	if err := checkOutputs(outputs); err != nil {
		return nil, err
	}
	return &Wired[T]{IO: io, outputs: outputs, compute: compute}, nil
}

func (w *Wired[T]) Outputs() []string {
	return w.outputs
}

func (w *Wired[T]) Compute(reg *Registry) error {
	return w.compute(w.IO, reg)
}

func (w *Wired[T]) Describe() string {
	return fmt.Sprintf("wired[%T]", w.IO)
}
