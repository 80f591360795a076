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
	"sort"
)

// Registry is the name-keyed store holding every resource of a world. It is
// the single owner of the freshness model: all reads, writes, and ensure
// passes route through it. Single-threaded use only; the calling goroutine
// owns the registry.
type Registry struct {
	resources map[string]*resource
}

func NewRegistry() *Registry {
	return &Registry{resources: make(map[string]*resource)}
}

// Decl carries the optional wiring of a resource declaration.
type Decl struct {
	// Buffer is an initial buffer to store. Declaration does not commit:
	// the version stays 0 even when a buffer is given.
	Buffer interface{}
	// Deps are the full names of the resources this one depends on. They may
	// be declared later; an unresolved dep becomes fatal at ensure or commit
	// time.
	Deps []string
	// Producer owns this resource. Its Outputs must include the name being
	// declared.
	Producer Producer
	// Description is a human-oriented note shown in listings.
	Description string
	// Spec, if set, validates every non-unsafe write to this resource.
	Spec *Spec
}

// Declare adds a resource under a unique name with version 0 and an empty
// dependency signature.
func (g *Registry) Declare(name string, d Decl) error {
	if name == "" {
		return validationError(name, "resource name must not be empty")
	}
	if _, ok := g.resources[name]; ok {
		return newError(ErrDuplicateDeclaration, name, "")
	}
	if d.Spec != nil {
		if err := d.Spec.check(name); err != nil {
			return err
		}
	}
	if d.Producer != nil && !slices.Contains(d.Producer.Outputs(), name) {
		return newError(ErrProducerOutputNotOwned, name,
			fmt.Sprintf("producer %s does not list this resource as an output", describeProducer(d.Producer)))
	}
	if d.Buffer != nil && d.Spec != nil {
		if err := d.Spec.Validate(name, d.Buffer, g); err != nil {
			return err
		}
	}
	g.resources[name] = &resource{
		name:        name,
		buffer:      d.Buffer,
		deps:        slices.Clone(d.Deps),
		producer:    d.Producer,
		description: d.Description,
		spec:        d.Spec,
	}
	slog.Debug(fmt.Sprintf("Declared resource '%s'", name), "deps", d.Deps)
	return nil
}

// Has reports whether the name is declared.
func (g *Registry) Has(name string) bool {
	_, ok := g.resources[name]
	return ok
}

// Names returns all declared names in sorted order.
func (g *Registry) Names() []string {
	out := make([]string, 0, len(g.resources))
	for name := range g.resources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Info returns the read-only view of a resource.
func (g *Registry) Info(name string) (ResourceInfo, error) {
	r, err := g.lookup(name)
	if err != nil {
		return ResourceInfo{}, err
	}
	info := ResourceInfo{
		Name:        r.name,
		Description: r.description,
		Version:     r.version,
		Fresh:       !g.stale(r),
		Deps:        slices.Clone(r.deps),
	}
	if r.producer != nil {
		info.Producer = describeProducer(r.producer)
	}
	return info, nil
}

func (g *Registry) lookup(name string) (*resource, error) {
	r, ok := g.resources[name]
	if !ok {
		return nil, newError(ErrUnknownResource, name, "")
	}
	return r, nil
}

// Read returns the current buffer, optionally after ensuring freshness.
func (g *Registry) Read(name string, ensure bool) (interface{}, error) {
	if ensure {
		if err := g.Ensure(name); err != nil {
			return nil, err
		}
	}
	r, err := g.lookup(name)
	if err != nil {
		return nil, err
	}
	return r.buffer, nil
}

// Version returns the current version of a resource.
func (g *Registry) Version(name string) (int, error) {
	r, err := g.lookup(name)
	if err != nil {
		return 0, err
	}
	return r.version, nil
}

// stale reports whether the resource needs recomputation: never committed,
// or a dependency advanced past the version recorded in the dep signature.
func (g *Registry) stale(r *resource) bool {
	if r.version == 0 {
		return true
	}
	for _, dv := range r.depSig {
		cur, ok := g.resources[dv.name]
		if !ok || cur.version != dv.version {
			return true
		}
	}
	return false
}

// staleReason describes the first check that makes the resource stale, for
// diagnostics. Empty when fresh.
func (g *Registry) staleReason(r *resource) string {
	if r.version == 0 {
		return "never committed"
	}
	for _, dv := range r.depSig {
		cur, ok := g.resources[dv.name]
		if !ok {
			return fmt.Sprintf("dep '%s' is gone", dv.name)
		}
		if cur.version != dv.version {
			return fmt.Sprintf("dep '%s' at version %d, committed against %d", dv.name, cur.version, dv.version)
		}
	}
	return ""
}

// commit bumps the version and snapshots the current versions of the
// declared deps. Every dep must be declared by commit time.
func (g *Registry) commit(r *resource) error {
	sig := make([]depVersion, 0, len(r.deps))
	for _, dep := range r.deps {
		d, ok := g.resources[dep]
		if !ok {
			return newError(ErrUnknownResource, dep,
				fmt.Sprintf("dep of '%s' is not declared at commit time", r.name))
		}
		sig = append(sig, depVersion{name: dep, version: d.version})
	}
	r.version++
	r.depSig = sig
	return nil
}

// SetBuffer validates and replaces the buffer. With bump, the write also
// commits; without it, the version and dep signature stay untouched so the
// buffer can be filled before a later Commit. Validation is skipped when
// unsafe is set.
func (g *Registry) SetBuffer(name string, buffer interface{}, bump bool, unsafe bool) error {
	r, err := g.lookup(name)
	if err != nil {
		return err
	}
	if !unsafe && r.spec != nil {
		if err := r.spec.Validate(name, buffer, g); err != nil {
			return err
		}
	}
	r.buffer = buffer
	if bump {
		return g.commit(r)
	}
	return nil
}

// Set validates, replaces the buffer, and commits in one step.
func (g *Registry) Set(name string, buffer interface{}) error {
	return g.SetBuffer(name, buffer, true, false)
}

// Commit bumps the version and refreshes the dep signature without touching
// the buffer.
func (g *Registry) Commit(name string) error {
	r, err := g.lookup(name)
	if err != nil {
		return err
	}
	return g.commit(r)
}

// CommitMany commits a whole output set at once, optionally replacing
// buffers first. Validation runs for every entry before any version is
// bumped, so a rejected buffer leaves the registry untouched.
func (g *Registry) CommitMany(names []string, buffers map[string]interface{}) error {
	rs := make([]*resource, 0, len(names))
	for _, name := range names {
		r, err := g.lookup(name)
		if err != nil {
			return err
		}
		if buffers != nil {
			if buf, ok := buffers[name]; ok && r.spec != nil {
				if err := r.spec.Validate(name, buf, g); err != nil {
					return err
				}
			}
		}
		for _, dep := range r.deps {
			if _, ok := g.resources[dep]; !ok {
				return newError(ErrUnknownResource, dep,
					fmt.Sprintf("dep of '%s' is not declared at commit time", name))
			}
		}
		rs = append(rs, r)
	}
	for _, r := range rs {
		if buffers != nil {
			if buf, ok := buffers[r.name]; ok {
				r.buffer = buf
			}
		}
		if err := g.commit(r); err != nil {
			return err
		}
	}
	return nil
}

// Bump bumps the version while keeping the recorded dep signature as the
// upstream baseline. Producers use it to signal an in-place update without
// declaring the current upstream versions canonical.
func (g *Registry) Bump(name string) error {
	r, err := g.lookup(name)
	if err != nil {
		return err
	}
	r.version++
	return nil
}
