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

// Package manifest loads declarative graph manifests and builds a world
// from them. A manifest declares one module: its value inputs plus the
// template and exec producers that derive further resources from them.
package manifest

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/fluxion-dev/fluxion/internal/engine"
	"github.com/fluxion-dev/fluxion/internal/patching"
	"github.com/fluxion-dev/fluxion/internal/producers/execprod"
	"github.com/fluxion-dev/fluxion/internal/producers/templateprod"
	"github.com/fluxion-dev/fluxion/internal/version"
)

const DefaultSuffix = ".graph.yaml"

// Input is one user-settable value resource of the manifest module.
type Input struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Value       interface{} `yaml:"value,omitempty"`
	AllowNull   bool        `yaml:"allow_null,omitempty"`
}

// Manifest is the decoded graph manifest.
type Manifest struct {
	// Module names the namespace prefix all resources live under.
	Module string
	// Requires is an optional engine version constraint such as ">=0.2".
	Requires string
	// Inputs are declared before any producer.
	Inputs []Input

	Templates []*templateprod.Spec
	Execs     []*execprod.Spec
}

// rawManifest is the strict YAML shape; producers stay raw maps until their
// uri scheme selects a parser.
type rawManifest struct {
	Module    string                   `yaml:"module"`
	Requires  string                   `yaml:"requires,omitempty"`
	Defaults  map[string]interface{}   `yaml:"defaults,omitempty"`
	Inputs    []Input                  `yaml:"inputs,omitempty"`
	Producers []map[string]interface{} `yaml:"producers,omitempty"`
}

// Load decodes a manifest from raw yaml contents, applying any overlay
// patch templates first. Manifest-level default params are merged under
// each producer's own params.
func Load(raw []byte, overlays ...string) (*Manifest, error) {
	var doc map[string]interface{}
	if err := yaml.NewDecoder(bytes.NewReader(raw)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode file: %w", err)
	}
	for i, overlay := range overlays {
		patched, err := patching.PatchManifest(doc, overlay)
		if err != nil {
			return nil, fmt.Errorf("overlay %d: %w", i+1, err)
		}
		doc = patched
	}

	intermediate, _ := yaml.Marshal(doc)
	var rm rawManifest
	dec := yaml.NewDecoder(bytes.NewReader(intermediate))
	dec.KnownFields(true)
	if err := dec.Decode(&rm); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if rm.Module == "" {
		return nil, fmt.Errorf("module not set")
	}
	if rm.Requires != "" {
		if err := version.AssertVersion(rm.Requires, version.Version); err != nil {
			return nil, err
		}
	}

	out := &Manifest{Module: rm.Module, Requires: rm.Requires, Inputs: rm.Inputs}
	for i, m := range rm.Producers {
		uri, _ := m["uri"].(string)
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("%d: invalid uri '%s'", i, uri)
		} else if u.Scheme == "" {
			return nil, fmt.Errorf("%d: missing uri scheme '%s'", i, uri)
		}
		if rm.Defaults != nil {
			params, _ := m["params"].(map[string]interface{})
			if params == nil {
				params = make(map[string]interface{})
			}
			if err := mergo.Merge(&params, rm.Defaults); err != nil {
				return nil, fmt.Errorf("%d: failed to merge default params: %w", i, err)
			}
			m["params"] = params
		}
		switch u.Scheme {
		case "template":
			p, err := templateprod.Parse(m)
			if err != nil {
				return nil, fmt.Errorf("%d: %s: failed to parse: %w", i, uri, err)
			}
			slog.Debug(fmt.Sprintf("Loaded producer %s", p.Uri))
			out.Templates = append(out.Templates, p)
		case "exec":
			p, err := execprod.Parse(m)
			if err != nil {
				return nil, fmt.Errorf("%d: %s: failed to parse: %w", i, uri, err)
			}
			slog.Debug(fmt.Sprintf("Loaded producer %s", p.Uri))
			out.Execs = append(out.Execs, p)
		default:
			return nil, fmt.Errorf("%d: unsupported scheme '%s'", i, u.Scheme)
		}
	}
	return out, nil
}

// Graph is the module built from a manifest.
type Graph struct {
	engine.ModuleBase
	// Inputs maps the manifest input names to their refs.
	Inputs map[string]engine.Ref[interface{}]
	// Targets are the full names of every produced resource.
	Targets []string
}

// Build constructs the manifest's module in the world. The module is
// memoized per scope like any other; building the same manifest twice in
// one scope returns the first instance.
func (m *Manifest) Build(world *engine.World, scope string) (*Graph, error) {
	return engine.Require(world, scope, func(world *engine.World, scope string) (*Graph, error) {
		g := &Graph{
			ModuleBase: engine.NewModuleBase(world, scope, m.Module),
			Inputs:     make(map[string]engine.Ref[interface{}], len(m.Inputs)),
		}
		for _, in := range m.Inputs {
			spec := &engine.Spec{Kind: engine.KindValue, AllowNull: in.AllowNull}
			ref, err := engine.DeclareResource[interface{}](&g.ModuleBase, in.Name, spec, engine.Decl{
				Description: in.Description,
			})
			if err != nil {
				return nil, fmt.Errorf("input '%s': %w", in.Name, err)
			}
			if in.Value != nil {
				if err := ref.Set(in.Value); err != nil {
					return nil, fmt.Errorf("input '%s': %w", in.Name, err)
				}
			}
			g.Inputs[in.Name] = ref
		}

		declare := func(prod interface {
			engine.Producer
			Deps() []string
		}) error {
			for _, out := range prod.Outputs() {
				err := world.Registry().Declare(out, engine.Decl{
					Deps:     prod.Deps(),
					Producer: prod,
					Spec:     &engine.Spec{Kind: engine.KindValue, AllowNull: true},
				})
				if err != nil {
					return err
				}
				g.Targets = append(g.Targets, out)
			}
			return nil
		}
		for _, spec := range m.Templates {
			if err := declare(templateprod.New(spec, g.Qualify)); err != nil {
				return nil, err
			}
		}
		for _, spec := range m.Execs {
			if err := declare(execprod.New(spec, g.Qualify)); err != nil {
				return nil, err
			}
		}
		return g, nil
	})
}
