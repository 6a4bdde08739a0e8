// Package modgraph describes the modules of a bundle: their numeric ids,
// how their dependency specifiers resolve and what they export.
package modgraph

import (
	"fmt"
	"sort"

	"github.com/hoistjs/hoist/internal/errorList"
)

// Provider answers the questions scope hoisting asks about modules.
type Provider interface {
	// ResolveDependency returns the id of the module the specifier name
	// resolves to from module id.
	ResolveDependency(id int, name string) (int, bool)
	// ExportsOf returns the declared export names of module id.
	ExportsOf(id int) []string
	// WildcardsOf returns the specifiers of module id's wildcard re-exports,
	// in declaration order.
	WildcardsOf(id int) []string
}

// Module is the record of a single module.
type Module struct {
	ID        int
	Deps      map[string]int // Specifier to module id.
	Exports   []string
	Wildcards []string // Specifiers, each also present in Deps.
}

// Graph is an in-memory Provider.
type Graph struct {
	modules map[int]*Module
}

var _ Provider = (*Graph)(nil)

// New returns a graph of the given modules.
func New(modules ...*Module) (*Graph, error) {
	g := &Graph{modules: map[int]*Module{}}
	for _, m := range modules {
		if err := g.Add(m); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Add registers a module. Ids must be unique.
func (g *Graph) Add(m *Module) error {
	if g.modules == nil {
		g.modules = map[int]*Module{}
	}
	if _, ok := g.modules[m.ID]; ok {
		return fmt.Errorf("duplicate module id %d", m.ID)
	}
	g.modules[m.ID] = m
	return nil
}

// Module returns the record of module id, or nil.
func (g *Graph) Module(id int) *Module { return g.modules[id] }

// IDs returns the ids of all modules in ascending order.
func (g *Graph) IDs() []int {
	ids := make([]int, 0, len(g.modules))
	for id := range g.modules {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (g *Graph) ResolveDependency(id int, name string) (int, bool) {
	m := g.modules[id]
	if m == nil {
		return 0, false
	}
	dep, ok := m.Deps[name]
	return dep, ok
}

func (g *Graph) ExportsOf(id int) []string {
	if m := g.modules[id]; m != nil {
		return m.Exports
	}
	return nil
}

func (g *Graph) WildcardsOf(id int) []string {
	if m := g.modules[id]; m != nil {
		return m.Wildcards
	}
	return nil
}

// Validate checks that every dependency and wildcard re-export points at a
// known module.
func (g *Graph) Validate() error {
	var errs errorList.ErrorList
	for _, id := range g.IDs() {
		m := g.modules[id]
		specs := make([]string, 0, len(m.Deps))
		for spec := range m.Deps {
			specs = append(specs, spec)
		}
		sort.Strings(specs)
		for _, spec := range specs {
			if _, ok := g.modules[m.Deps[spec]]; !ok {
				errs = errs.Append(fmt.Errorf("module %d: dependency %q resolves to unknown module %d", id, spec, m.Deps[spec]))
			}
		}
		for _, spec := range m.Wildcards {
			if _, ok := m.Deps[spec]; !ok {
				errs = errs.Append(fmt.Errorf("module %d: wildcard re-export %q is not a dependency", id, spec))
			}
		}
	}
	return errs.ErrOrNil()
}
