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

package execprod

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"gopkg.in/yaml.v3"

	"github.com/fluxion-dev/fluxion/internal/engine"
)

// Spec is the decoded exec producer from a graph manifest. An exec producer
// delegates the computation to an external binary: it receives the params
// and dependency buffers as JSON on stdin and must print a JSON object with
// one entry per declared output.
type Spec struct {
	Uri     string   `yaml:"uri"`
	Bin     string   `yaml:"bin"`
	Args    []string `yaml:"args,omitempty"`
	Deps    []string `yaml:"deps,omitempty"`
	Outputs []string `yaml:"outputs"`

	Params map[string]interface{} `yaml:"params,omitempty"`
}

// Parse decodes a raw manifest entry into a Spec with strict field checking.
func Parse(raw map[string]interface{}) (*Spec, error) {
	s := new(Spec)
	intermediate, _ := yaml.Marshal(raw)
	dec := yaml.NewDecoder(bytes.NewReader(intermediate))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	if s.Uri == "" {
		return nil, fmt.Errorf("uri not set")
	} else if s.Bin == "" {
		return nil, fmt.Errorf("bin not set")
	} else if len(s.Outputs) == 0 {
		return nil, fmt.Errorf("outputs not set")
	}
	return s, nil
}

// Producer binds a Spec to a module namespace.
type Producer struct {
	spec    *Spec
	deps    []string
	outputs []string
	qualify func(attr string) string
}

func New(spec *Spec, qualify func(attr string) string) *Producer {
	p := &Producer{spec: spec, qualify: qualify}
	for _, dep := range spec.Deps {
		p.deps = append(p.deps, qualify(dep))
	}
	for _, out := range spec.Outputs {
		p.outputs = append(p.outputs, qualify(out))
	}
	return p
}

func (p *Producer) Outputs() []string {
	return p.outputs
}

// Deps returns the qualified dependency names shared by every output.
func (p *Producer) Deps() []string {
	return p.deps
}

func (p *Producer) Describe() string {
	return p.spec.Uri
}

// input is the JSON document piped to the binary.
type input struct {
	Uri    string                 `json:"uri"`
	Params map[string]interface{} `json:"params"`
	Deps   map[string]interface{} `json:"deps"`
}

func (p *Producer) Compute(reg *engine.Registry) error {
	in := input{Uri: p.spec.Uri, Params: p.spec.Params, Deps: make(map[string]interface{}, len(p.spec.Deps))}
	for _, attr := range p.spec.Deps {
		buf, err := reg.Read(p.qualify(attr), false)
		if err != nil {
			return err
		}
		in.Deps[attr] = buf
	}
	rawInput, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode json input: %w", err)
	}

	outputBuffer := new(bytes.Buffer)
	cmd := exec.Command(p.spec.Bin, p.spec.Args...)
	slog.Debug(fmt.Sprintf("Executing '%s %v' for exec producer", p.spec.Bin, p.spec.Args))
	cmd.Stdin = bytes.NewReader(rawInput)
	cmd.Stdout = outputBuffer
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to execute producer binary: %w", err)
	}

	var values map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(outputBuffer.Bytes()))
	if err := dec.Decode(&values); err != nil {
		slog.Debug("Output from exec producer:\n" + outputBuffer.String())
		return fmt.Errorf("failed to decode output from producer binary: %w", err)
	}

	names := make([]string, 0, len(p.spec.Outputs))
	buffers := make(map[string]interface{}, len(p.spec.Outputs))
	for _, attr := range p.spec.Outputs {
		value, ok := values[attr]
		if !ok {
			return fmt.Errorf("producer binary did not return output '%s'", attr)
		}
		full := p.qualify(attr)
		names = append(names, full)
		buffers[full] = value
	}
	return reg.CommitMany(names, buffers)
}
