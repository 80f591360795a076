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
	"strings"
)

// ExplainNode is one line of the dependency tree produced by Explain.
type ExplainNode struct {
	Name        string         `json:"name" yaml:"name"`
	Version     int            `json:"version" yaml:"version"`
	Fresh       bool           `json:"fresh" yaml:"fresh"`
	Producer    string         `json:"producer,omitempty" yaml:"producer,omitempty"`
	StaleReason string         `json:"stale_reason,omitempty" yaml:"stale_reason,omitempty"`
	Deps        []*ExplainNode `json:"deps,omitempty" yaml:"deps,omitempty"`
}

// Explain walks the transitive dependencies of a resource down to the given
// depth and reports, per node, the version, freshness, owning producer, and
// the dep-sig entry that triggers staleness. It never mutates the registry;
// the output text is a debugging aid, not an API contract. A negative depth
// means unlimited.
func (g *Registry) Explain(name string, depth int) (*ExplainNode, error) {
	return g.explain(name, depth, make(map[string]bool))
}

func (g *Registry) explain(name string, depth int, onPath map[string]bool) (*ExplainNode, error) {
	r, err := g.lookup(name)
	if err != nil {
		return nil, err
	}
	node := &ExplainNode{
		Name:        r.name,
		Version:     r.version,
		Fresh:       !g.stale(r),
		StaleReason: g.staleReason(r),
	}
	if r.producer != nil {
		node.Producer = describeProducer(r.producer)
	}
	if depth == 0 || onPath[name] {
		return node, nil
	}
	onPath[name] = true
	for _, dep := range r.deps {
		child, err := g.explain(dep, depth-1, onPath)
		if err != nil {
			if IsKind(err, ErrUnknownResource) {
				child = &ExplainNode{Name: dep, StaleReason: "not declared"}
			} else {
				return nil, err
			}
		}
		node.Deps = append(node.Deps, child)
	}
	delete(onPath, name)
	return node, nil
}

// String renders the tree with two-space indentation.
func (n *ExplainNode) String() string {
	sb := new(strings.Builder)
	n.render(sb, 0)
	return sb.String()
}

func (n *ExplainNode) render(sb *strings.Builder, indent int) {
	sb.WriteString(strings.Repeat("  ", indent))
	state := "fresh"
	if !n.Fresh {
		state = "stale"
	}
	fmt.Fprintf(sb, "%s v%d [%s]", n.Name, n.Version, state)
	if n.Producer != "" {
		fmt.Fprintf(sb, " producer=%s", n.Producer)
	}
	if n.StaleReason != "" {
		fmt.Fprintf(sb, " (%s)", n.StaleReason)
	}
	sb.WriteString("\n")
	for _, dep := range n.Deps {
		dep.render(sb, indent+1)
	}
}
