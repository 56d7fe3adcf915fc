package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/environment"
	"github.com/specialistvlad/buildgrid/internal/rule"
)

// Dependency names something a target or provision needs.
type Dependency struct {
	Name string
	// Alias dependencies only forward the environments of their own
	// dependencies and build nothing.
	Alias bool
	// Private dependencies are not propagated past their direct dependent.
	Private bool
}

// Public reports whether the dependency's environment propagates upward.
func (d Dependency) Public() bool { return !d.Private }

func (d Dependency) String() string {
	var flags []string
	if d.Alias {
		flags = append(flags, "alias")
	}
	if d.Private {
		flags = append(flags, "private")
	}
	if len(flags) == 0 {
		return fmt.Sprintf("depends %q", d.Name)
	}
	return fmt.Sprintf("depends %q (%s)", d.Name, strings.Join(flags, ", "))
}

// DependencyOption adjusts a declared dependency.
type DependencyOption func(*Dependency)

// Private keeps the dependency's environment from propagating.
func Private() DependencyOption {
	return func(d *Dependency) { d.Private = true }
}

// AsAlias marks the dependency as a pass-through.
func AsAlias() DependencyOption {
	return func(d *Dependency) { d.Alias = true }
}

// BuildFunc is the build action of a plain target.
type BuildFunc func(ctx context.Context, scope rule.Scope, args ...any) error

// Provision is something a target supplies under a dependency name.
type Provision struct {
	Name     string
	Provider *Target
	// Value populates the environment built for the provision.
	Value environment.Constructor
	// Aliases are the dependencies an alias provision forwards to.
	Aliases []Dependency
}

// IsAlias reports whether the provision only forwards other dependencies.
func (p *Provision) IsAlias() bool { return p.Aliases != nil }

// EachDependency returns the dependencies that must be built before the
// provision: its aliases, or else the dependencies of its target.
func (p *Provision) EachDependency() []Dependency {
	if p.IsAlias() {
		return append([]Dependency(nil), p.Aliases...)
	}
	if p.Provider == nil {
		return nil
	}
	return append([]Dependency(nil), p.Provider.Dependencies...)
}

func (p *Provision) String() string {
	if p.IsAlias() {
		names := make([]string, len(p.Aliases))
		for i, d := range p.Aliases {
			names[i] = d.Name
		}
		return fmt.Sprintf("provides %q => %v", p.Name, names)
	}
	return fmt.Sprintf("provides %q", p.Name)
}

// Target is a named unit of a build definition.
type Target struct {
	Name         string
	Dependencies []Dependency
	Provisions   []*Provision
	// Build is run by target nodes; it may be nil for chain-only targets.
	Build BuildFunc
}

// NewTarget creates an empty target.
func NewTarget(name string) *Target {
	return &Target{Name: name}
}

// Depends declares a dependency shared by every provision of the target.
func (t *Target) Depends(name string, opts ...DependencyOption) *Target {
	d := Dependency{Name: name}
	for _, opt := range opts {
		opt(&d)
	}
	t.Dependencies = append(t.Dependencies, d)
	return t
}

// Provides declares a provision built by fn.
func (t *Target) Provides(name string, fn environment.Constructor) *Target {
	t.Provisions = append(t.Provisions, &Provision{Name: name, Provider: t, Value: fn})
	return t
}

// ProvidesAlias declares a provision forwarding to other dependencies.
func (t *Target) ProvidesAlias(name string, dependencies ...string) *Target {
	aliases := make([]Dependency, len(dependencies))
	for i, d := range dependencies {
		aliases[i] = Dependency{Name: d}
	}
	t.Provisions = append(t.Provisions, &Provision{Name: name, Provider: t, Aliases: aliases})
	return t
}

func (t *Target) String() string {
	return fmt.Sprintf("target %q", t.Name)
}
