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

package patching

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

// PatchOperation is one edit applied to the manifest document before the
// world is built. Overlay files are templates that render to a list of
// these.
type PatchOperation struct {
	Op          string      `json:"op"`
	Path        string      `json:"path"`
	Value       interface{} `json:"value,omitempty"`
	Description string      `json:"description,omitempty"`
}

type patchTemplateInput struct {
	Manifest map[string]interface{}
}

// ValidatePatchTemplate checks that the overlay parses as a template
// without executing it.
func ValidatePatchTemplate(content string) error {
	if _, err := template.New("").Funcs(sprig.FuncMap()).Parse(content); err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return nil
}

// PatchManifest renders the overlay template against the manifest document
// and applies the resulting set/delete operations, returning a new document.
func PatchManifest(manifest map[string]interface{}, rawTemplate string) (map[string]interface{}, error) {
	tmpl, err := template.New("").Funcs(sprig.FuncMap()).Parse(rawTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	buff := &bytes.Buffer{}
	if err := tmpl.Execute(buff, patchTemplateInput{Manifest: manifest}); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	templatedPatches := strings.TrimSpace(buff.String())
	if templatedPatches == "" {
		return manifest, nil
	}

	var patches []PatchOperation
	yamlDecoder := yaml.NewDecoder(strings.NewReader(templatedPatches))
	yamlDecoder.KnownFields(true)
	if err := yamlDecoder.Decode(&patches); err != nil {
		slog.Debug("Raw patch output", slog.String("raw", templatedPatches))
		return nil, fmt.Errorf("failed to unmarshal patches from template execution output: %w", err)
	}

	jsonInput, _ := json.Marshal(manifest)
	for i, p := range patches {
		if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
			slog.Debug("Applying patch", slog.String("operation", p.Op), slog.String("path", p.Path), slog.Any("value", p.Value), slog.Any("description", p.Description))
		} else {
			desc := p.Description
			if desc != "" {
				desc = " (" + desc + ")"
			}
			slog.Info(fmt.Sprintf("Applying patch to %s%s", p.Path, desc))
		}
		switch p.Op {
		case "set":
			jsonInput, err = sjson.SetBytes(jsonInput, p.Path, p.Value)
		case "delete":
			jsonInput, err = sjson.DeleteBytes(jsonInput, p.Path)
		default:
			err = fmt.Errorf("unknown operation: %s", p.Op)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to perform patch operation %d: '%s' '%s': %w", i+1, p.Op, p.Path, err)
		}
	}

	var output map[string]interface{}
	if err := json.Unmarshal(jsonInput, &output); err != nil {
		return nil, fmt.Errorf("failed to unmarshal patched output: %w", err)
	}
	return output, nil
}
