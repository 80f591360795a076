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

// ModuleBase carries the scoped namespace of a module: a non-owning world
// back-reference plus the prefix under which the module's resources live.
// Module types embed it and build their resource graph in their constructor
// through DefineResource, DeclareResource, and Require.
type ModuleBase struct {
	world  *World
	scope  string
	name   string
	prefix string
}

// NewModuleBase computes the prefix "<scope>.<name>", or "<name>" when the
// scope is empty.
func NewModuleBase(world *World, scope string, name string) ModuleBase {
	prefix := name
	if scope != "" {
		prefix = scope + "." + name
	}
	return ModuleBase{world: world, scope: scope, name: name, prefix: prefix}
}

func (m *ModuleBase) World() *World {
	return m.world
}

func (m *ModuleBase) Scope() string {
	return m.scope
}

func (m *ModuleBase) ModuleName() string {
	return m.name
}

func (m *ModuleBase) Prefix() string {
	return m.prefix
}

// Qualify turns a module-local attribute into a full registry name.
func (m *ModuleBase) Qualify(attr string) string {
	return m.prefix + "." + attr
}

// DefineResource reserves a typed ref under the module prefix without
// declaring it. The caller wires it later through Ref.Declare once the
// producer and deps are known.
func DefineResource[T any](m *ModuleBase, attr string, spec *Spec) Ref[T] {
	return NewRef[T](m.world.Registry(), m.Qualify(attr), spec)
}

// DeclareResource declares a resource under the module prefix and returns
// its typed ref.
func DeclareResource[T any](m *ModuleBase, attr string, spec *Spec, d Decl) (Ref[T], error) {
	ref := DefineResource[T](m, attr, spec)
	if err := ref.Declare(d); err != nil {
		return Ref[T]{}, err
	}
	return ref, nil
}

// RequireFrom requires another module within this module's scope. Nested
// requires during construction are how module graphs compose; cycles are
// detected by the world.
func RequireFrom[M any](m *ModuleBase, ctor Ctor[M]) (*M, error) {
	return Require(m.world, m.scope, ctor)
}
