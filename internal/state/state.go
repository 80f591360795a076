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

// Package state persists committed value buffers between CLI invocations.
// Only plain values survive a round trip; arrays and opaque buffers are
// process-local and are recomputed on demand.
package state

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/fluxion-dev/fluxion/internal/engine"
)

const DirectoryName = ".fluxion"
const FileName = "state.yaml"

// ResourceState is the persisted slice of one resource: the version at
// capture time plus its value buffer.
type ResourceState struct {
	Version int         `yaml:"version"`
	Value   interface{} `yaml:"value"`
}

// Snapshot is the persisted state of a world built from a manifest.
type Snapshot struct {
	Module    string                   `yaml:"module"`
	Resources map[string]ResourceState `yaml:"resources"`
}

// Load reads the snapshot from the state directory under dir. The boolean
// is false when no state has been written yet.
func Load(dir string) (*Snapshot, bool, error) {
	content, err := os.ReadFile(filepath.Join(dir, DirectoryName, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read state file: %w", err)
	}
	var s Snapshot
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, true, fmt.Errorf("failed to decode state file: %w", err)
	}
	return &s, true, nil
}

// Save writes the snapshot under dir, creating the state directory when
// needed. The write goes through a temp file and a rename.
func (s *Snapshot) Save(dir string) error {
	d := filepath.Join(dir, DirectoryName)
	if err := os.Mkdir(d, 0755); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	out := new(bytes.Buffer)
	enc := yaml.NewEncoder(out)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(d, FileName+".temp"), out.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	} else if err := os.Rename(filepath.Join(d, FileName+".temp"), filepath.Join(d, FileName)); err != nil {
		return fmt.Errorf("failed to move state file into place: %w", err)
	}
	return nil
}

// Capture collects every committed plain-value resource from the registry.
func Capture(module string, reg *engine.Registry) *Snapshot {
	s := &Snapshot{Module: module, Resources: make(map[string]ResourceState)}
	for _, name := range reg.Names() {
		info, err := reg.Info(name)
		if err != nil || info.Version == 0 {
			continue
		}
		buf, err := reg.Read(name, false)
		if err != nil {
			continue
		}
		if !persistable(buf) {
			continue
		}
		s.Resources[name] = ResourceState{Version: info.Version, Value: buf}
	}
	return s
}

func persistable(buf interface{}) bool {
	if _, ok := buf.(*engine.Array); ok {
		return false
	}
	if _, ok := buf.(engine.Opaque); ok {
		return false
	}
	return true
}

// Restore commits the captured values back into a freshly built registry.
// Values are committed in dependency order so that restored resources come
// up fresh; versions restart per process, only the committed values carry
// over. Values for resources the current manifest no longer declares are
// dropped.
func (s *Snapshot) Restore(reg *engine.Registry) error {
	pending := make(map[string]bool)
	for _, name := range reg.Names() {
		if _, ok := s.Resources[name]; ok {
			pending[name] = true
		}
	}
	for name := range s.Resources {
		if !reg.Has(name) {
			slog.Debug(fmt.Sprintf("Dropping state for unknown resource '%s'", name))
		}
	}

	restore := func(name string) error {
		if err := reg.Set(name, s.Resources[name].Value); err != nil {
			return fmt.Errorf("failed to restore '%s': %w", name, err)
		}
		delete(pending, name)
		return nil
	}
	for len(pending) > 0 {
		progressed := false
		for _, name := range sortedNames(pending) {
			info, err := reg.Info(name)
			if err != nil {
				return err
			}
			blocked := false
			for _, dep := range info.Deps {
				if pending[dep] {
					blocked = true
					break
				}
			}
			if blocked {
				continue
			}
			if err := restore(name); err != nil {
				return err
			}
			progressed = true
		}
		if !progressed {
			// A dep cycle in the snapshot; commit the remainder as is.
			for _, name := range sortedNames(pending) {
				if err := restore(name); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func sortedNames(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
