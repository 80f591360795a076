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

// Handle is the untyped view of a ref: just enough for IO records to
// enumerate their outputs without knowing the buffer types.
type Handle interface {
	Name() string
}

// Key identifies a resource by full name together with its declared spec.
// The type parameter only flows the expected buffer type to call sites.
type Key[T any] struct {
	name string
	spec *Spec
}

func (k Key[T]) Name() string {
	return k.name
}

func (k Key[T]) Spec() *Spec {
	return k.spec
}

// Ref is a typed, non-owning handle to a resource: a registry back-reference
// plus a key. Refs resolve by name on every call, so they are safe to copy
// and remain valid for the lifetime of the registry. Two refs are the same
// handle iff their full names are equal.
type Ref[T any] struct {
	reg *Registry
	key Key[T]
}

// NewRef binds a key to a registry. The name does not have to be declared
// yet; see Declare for late wiring.
func NewRef[T any](reg *Registry, name string, spec *Spec) Ref[T] {
	return Ref[T]{reg: reg, key: Key[T]{name: name, spec: spec}}
}

func (r Ref[T]) Name() string {
	return r.key.name
}

func (r Ref[T]) Key() Key[T] {
	return r.key
}

func (r Ref[T]) Registry() *Registry {
	return r.reg
}

// Declare wires a ref that was reserved earlier. The ref's own spec is used
// when the declaration does not carry one.
func (r Ref[T]) Declare(d Decl) error {
	if d.Spec == nil {
		d.Spec = r.key.spec
	}
	return r.reg.Declare(r.key.name, d)
}

// Ensure makes the resource fresh.
func (r Ref[T]) Ensure() error {
	return r.reg.Ensure(r.key.name)
}

// Get ensures the resource and returns its buffer.
func (r Ref[T]) Get() (T, error) {
	var zero T
	buf, err := r.reg.Read(r.key.name, true)
	if err != nil {
		return zero, err
	}
	return r.cast(buf)
}

// Peek returns the current buffer without ensuring; the value may be nil or
// stale. Producers read their wired inputs this way, since the registry has
// already ensured them by the time Compute runs.
func (r Ref[T]) Peek() (T, error) {
	var zero T
	buf, err := r.reg.Read(r.key.name, false)
	if err != nil {
		return zero, err
	}
	return r.cast(buf)
}

func (r Ref[T]) cast(buf interface{}) (T, error) {
	var zero T
	if buf == nil {
		return zero, nil
	}
	v, ok := buf.(T)
	if !ok {
		return zero, validationError(r.key.name, "buffer is %T, not %T", buf, zero)
	}
	return v, nil
}

// Set validates the value against the spec, replaces the buffer, and
// commits.
func (r Ref[T]) Set(v T) error {
	return r.reg.Set(r.key.name, v)
}

// SetBuffer replaces the buffer; with bump it also commits, without it the
// version and dep signature stay untouched for allocate-then-fill writes.
func (r Ref[T]) SetBuffer(v T, bump bool) error {
	return r.reg.SetBuffer(r.key.name, v, bump, false)
}

// SetBufferUnsafe replaces the buffer without spec validation. Callers using
// it accept responsibility for the contract.
func (r Ref[T]) SetBufferUnsafe(v T, bump bool) error {
	return r.reg.SetBuffer(r.key.name, v, bump, true)
}

// Commit bumps the version and records the current upstream versions as the
// new baseline, leaving the buffer as is.
func (r Ref[T]) Commit() error {
	return r.reg.Commit(r.key.name)
}

// Touch is an alias of Commit.
func (r Ref[T]) Touch() error {
	return r.Commit()
}

// Bump bumps the version without refreshing the dep signature.
func (r Ref[T]) Bump() error {
	return r.reg.Bump(r.key.name)
}

// Version returns the current version.
func (r Ref[T]) Version() (int, error) {
	return r.reg.Version(r.key.name)
}

func (r Ref[T]) String() string {
	return fmt.Sprintf("ref(%s)", r.key.name)
}
