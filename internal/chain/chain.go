package chain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolved is returned when no target provides a dependency.
	ErrUnresolved = errors.New("unresolved dependencies")
	// ErrCycle is returned when provisions depend on themselves.
	ErrCycle = errors.New("dependency cycle")
)

// Chain is the resolved set of provisions for a list of dependencies.
type Chain struct {
	dependencies []Dependency
	resolved     map[string][]*Provision
	ordered      []*Provision
}

// Resolve finds the provisions for every dependency reachable from names.
func Resolve(targets []*Target, names ...string) (*Chain, error) {
	deps := make([]Dependency, len(names))
	for i, n := range names {
		deps[i] = Dependency{Name: n}
	}
	return ResolveDependencies(targets, deps...)
}

// ResolveDependencies is Resolve for already declared dependencies.
func ResolveDependencies(targets []*Target, deps ...Dependency) (*Chain, error) {
	index := map[string][]*Provision{}
	for _, t := range targets {
		for _, p := range t.Provisions {
			index[p.Name] = append(index[p.Name], p)
		}
	}

	c := &Chain{resolved: map[string][]*Provision{}}
	r := resolver{chain: c, index: index, visiting: map[string]bool{}}
	for _, d := range deps {
		if err := r.visit(d, nil); err != nil {
			return nil, err
		}
	}
	if len(r.unresolved) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnresolved, strings.Join(r.unresolved, ", "))
	}
	for _, d := range deps {
		c.dependencies = append(c.dependencies, c.Normalize(d))
	}
	return c, nil
}

type resolver struct {
	chain      *Chain
	index      map[string][]*Provision
	visiting   map[string]bool
	unresolved []string
}

func (r *resolver) visit(d Dependency, path []string) error {
	if _, ok := r.chain.resolved[d.Name]; ok {
		return nil
	}
	path = append(path[:len(path):len(path)], d.Name)
	if r.visiting[d.Name] {
		return fmt.Errorf("%w: %s", ErrCycle, strings.Join(path, " -> "))
	}
	provisions, ok := r.index[d.Name]
	if !ok {
		for _, u := range r.unresolved {
			if u == d.Name {
				return nil
			}
		}
		r.unresolved = append(r.unresolved, d.Name)
		return nil
	}

	r.visiting[d.Name] = true
	for _, p := range provisions {
		for _, nested := range p.EachDependency() {
			if err := r.visit(nested, path); err != nil {
				return err
			}
		}
	}
	delete(r.visiting, d.Name)

	r.chain.resolved[d.Name] = provisions
	r.chain.ordered = append(r.chain.ordered, provisions...)
	return nil
}

// Dependencies returns the requested dependencies in order.
func (c *Chain) Dependencies() []Dependency {
	return append([]Dependency(nil), c.dependencies...)
}

// Provisions returns the provisions satisfying d.
func (c *Chain) Provisions(d Dependency) []*Provision {
	return append([]*Provision(nil), c.resolved[d.Name]...)
}

// Ordered returns every resolved provision, dependencies first.
func (c *Chain) Ordered() []*Provision {
	return append([]*Provision(nil), c.ordered...)
}

// Normalize marks d as an alias when every provision satisfying it is one.
func (c *Chain) Normalize(d Dependency) Dependency {
	provisions := c.resolved[d.Name]
	if len(provisions) == 0 {
		return d
	}
	for _, p := range provisions {
		if !p.IsAlias() {
			return d
		}
	}
	d.Alias = true
	return d
}
