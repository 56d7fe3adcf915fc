package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/specialistvlad/buildgrid/internal/buildfile"
	"github.com/specialistvlad/buildgrid/internal/chain"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
)

// Load reads the configured buildfile.
func (a *App) Load(ctx context.Context) (*buildfile.Buildfile, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	b, err := buildfile.Load(ctx, a.config.Buildfile)
	if err != nil {
		return nil, fmt.Errorf("failed to load buildfile: %w", err)
	}
	a.logger.Debug("Buildfile loaded.", "files", b.Files, "targets", len(b.Targets), "chains", len(b.Chains))
	return b, nil
}

// plan is what a build runs: the requested dependencies and the targets
// whose own build steps were requested. Both resolve in one chain, so
// dependencies they share are built once.
type plan struct {
	chain *chain.Chain
	// requested is false when the chain only serves targets.
	requested bool
	targets   []*chain.Target
}

// plan turns requested names into a plan. Without names every chain block
// is built, and without chain blocks every target. A name is a dependency
// when some target provides it, and a target run when the target of that
// name has build steps; it may be both.
func (a *App) plan(b *buildfile.Buildfile, names []string) (*plan, error) {
	if len(names) == 0 {
		for _, c := range b.Chains {
			names = append(names, c.Name)
		}
	}
	if len(names) == 0 {
		for _, t := range b.Targets {
			if t.Build != nil {
				names = append(names, t.Name)
			}
			for _, p := range t.Provisions {
				names = append(names, p.Name)
			}
		}
	}

	p := &plan{}
	var deps []chain.Dependency
	seen := map[string]bool{}
	depend := func(d chain.Dependency) {
		if !seen[d.Name] {
			seen[d.Name] = true
			deps = append(deps, d)
		}
	}
	for _, n := range b.Expand(names...) {
		if t, ok := b.Target(n); ok && t.Build != nil {
			if !slices.Contains(p.targets, t) {
				p.targets = append(p.targets, t)
			}
			for _, d := range t.Dependencies {
				depend(d)
			}
			if !b.Provided(n) {
				continue
			}
		}
		p.requested = true
		depend(chain.Dependency{Name: n})
	}

	if len(deps) > 0 {
		resolved, err := chain.ResolveDependencies(b.Targets, deps...)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %v: %w", names, err)
		}
		p.chain = resolved
		a.logger.Debug("Dependencies resolved.", "requested", names, "provisions", len(resolved.Ordered()))
	}
	return p, nil
}

// resolve turns dependency names into a chain.
func (a *App) resolve(b *buildfile.Buildfile, names []string) (*chain.Chain, error) {
	resolved, err := b.Resolve(names...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %v: %w", names, err)
	}
	a.logger.Debug("Dependencies resolved.", "requested", names, "provisions", len(resolved.Ordered()))
	return resolved, nil
}
