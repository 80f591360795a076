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

package templateprod

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/go-viper/mapstructure/v2"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/fluxion-dev/fluxion/internal/engine"
	"github.com/fluxion-dev/fluxion/internal/util"
)

// Spec is the decoded template producer from a graph manifest.
// A template producer computes its outputs by evaluating a series of Go
// text/templates that have access to the producer params and the current
// buffers of its dependencies. The values template is expected to return a
// YAML mapping with one entry per declared output.
type Spec struct {
	Uri         string  `yaml:"uri"`
	Description *string `yaml:"description,omitempty"`

	// Deps are the module-local attributes this producer reads. They are
	// qualified against the module prefix when the producer is bound.
	Deps []string `yaml:"deps,omitempty"`
	// Outputs are the module-local attributes this producer commits.
	Outputs []string `yaml:"outputs"`

	// Params are free-form inputs available to the templates.
	Params map[string]interface{} `yaml:"params,omitempty"`

	// InitTemplate is evaluated first and is used as temporary or working
	// set data that may be needed in the values template.
	InitTemplate string `yaml:"init,omitempty"`
	// ValuesTemplate generates the output values, one mapping entry per
	// declared output attribute.
	ValuesTemplate string `yaml:"values"`
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
	} else if len(s.Outputs) == 0 {
		return nil, fmt.Errorf("outputs not set")
	} else if strings.TrimSpace(s.ValuesTemplate) == "" {
		return nil, fmt.Errorf("values template not set")
	}
	return s, nil
}

// Producer binds a Spec to a module namespace. It implements
// engine.Producer over fully qualified names.
type Producer struct {
	spec    *Spec
	deps    []string
	outputs []string
	qualify func(attr string) string
}

// New qualifies the spec's deps and outputs with the given function,
// usually a module's Qualify.
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

// Data is the structure sent to each template during rendering.
type Data struct {
	Uri    string
	Params map[string]interface{}
	Deps   map[string]interface{}
	Init   map[string]interface{}
}

func templateFuncs() template.FuncMap {
	funcs := sprig.FuncMap()
	// jsonquery extracts a value from a structured document using a gjson
	// path expression.
	funcs["jsonquery"] = func(path string, doc interface{}) (interface{}, error) {
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode document: %w", err)
		}
		return gjson.GetBytes(raw, path).Value(), nil
	}
	return funcs
}

func renderTemplateAndDecode(raw string, data interface{}, out interface{}) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	prepared, err := template.New("").Funcs(templateFuncs()).Parse(raw)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	buff := new(bytes.Buffer)
	if err := prepared.Execute(buff, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	buffContents := buff.String()
	if strings.TrimSpace(buffContents) == "" {
		return nil
	}
	var intermediate interface{}
	if err := yaml.Unmarshal([]byte(buffContents), &intermediate); err != nil {
		slog.Debug(fmt.Sprintf("template output was '%s' from template '%s'", buffContents, raw))
		return fmt.Errorf("failed to decode output: %w", err)
	}
	if err := mapstructure.Decode(intermediate, &out); err != nil {
		return fmt.Errorf("failed to decode output: %w", err)
	}
	return nil
}

// Compute renders the init and values templates against the current
// dependency buffers and commits every declared output.
func (p *Producer) Compute(reg *engine.Registry) error {
	data := Data{
		Uri:    p.spec.Uri,
		Params: p.spec.Params,
		Deps:   make(map[string]interface{}, len(p.spec.Deps)),
	}
	for _, attr := range p.spec.Deps {
		// Deps are fresh by the time the producer runs.
		buf, err := reg.Read(p.qualify(attr), false)
		if err != nil {
			return err
		}
		data.Deps[attr] = buf
	}

	init := make(map[string]interface{})
	if err := renderTemplateAndDecode(p.spec.InitTemplate, &data, &init); err != nil {
		return fmt.Errorf("init template failed: %w", err)
	}
	// The working set starts from the params and is patched by the init
	// template output.
	data.Init = util.PatchMap(p.spec.Params, init)

	values := make(map[string]interface{})
	if err := renderTemplateAndDecode(p.spec.ValuesTemplate, &data, &values); err != nil {
		return fmt.Errorf("values template failed: %w", err)
	}

	names := make([]string, 0, len(p.spec.Outputs))
	buffers := make(map[string]interface{}, len(p.spec.Outputs))
	for _, attr := range p.spec.Outputs {
		value, ok := values[attr]
		if !ok {
			return fmt.Errorf("values template did not return output '%s'", attr)
		}
		full := p.qualify(attr)
		names = append(names, full)
		buffers[full] = value
	}
	return reg.CommitMany(names, buffers)
}
