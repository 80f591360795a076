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
	"reflect"
	"slices"
)

// World owns one registry plus the module cache. Modules are memoized per
// (scope, module Go type), so requiring the same module twice in a scope
// returns the same instance and construction is never re-entered. Two worlds
// are fully isolated; there is no process-wide state.
type World struct {
	registry     *Registry
	modules      map[moduleKey]interface{}
	constructing []moduleEntry
}

type moduleKey struct {
	scope string
	typ   reflect.Type
}

type moduleEntry struct {
	key     moduleKey
	display string
}

func NewWorld() *World {
	return &World{
		registry: NewRegistry(),
		modules:  make(map[moduleKey]interface{}),
	}
}

func (w *World) Registry() *Registry {
	return w.registry
}

// Ctor constructs a module instance in the given world and scope. The module
// type serves as the identity under which the instance is memoized.
type Ctor[M any] func(world *World, scope string) (*M, error)

// Require returns the memoized module for (scope, M), constructing it on
// first use. Constructors may require further modules; the constructing
// stack evolves like a call stack, and revisiting a key on it is a module
// cycle reported with the full path.
func Require[M any](w *World, scope string, ctor Ctor[M]) (*M, error) {
	key := moduleKey{scope: scope, typ: reflect.TypeFor[M]()}
	if inst, ok := w.modules[key]; ok {
		return inst.(*M), nil
	}

	display := scope + ":" + key.typ.Name()
	if i := slices.IndexFunc(w.constructing, func(e moduleEntry) bool { return e.key == key }); i >= 0 {
		path := make([]string, 0, len(w.constructing)-i+1)
		for _, e := range w.constructing[i:] {
			path = append(path, e.display)
		}
		path = append(path, display)
		return nil, &Error{Kind: ErrModuleCycle, Name: display, Path: path}
	}

	w.constructing = append(w.constructing, moduleEntry{key: key, display: display})
	m, err := ctor(w, scope)
	w.constructing = w.constructing[:len(w.constructing)-1]
	if err != nil {
		return nil, err
	}
	w.modules[key] = m
	return m, nil
}
