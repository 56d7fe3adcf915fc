package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/buildgrid/internal/build"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/environment"
)

// List writes every target of the buildfile with its provisions and
// dependencies.
func (a *App) List(ctx context.Context, w io.Writer) error {
	b, err := a.Load(ctx)
	if err != nil {
		return err
	}
	for _, t := range b.Targets {
		fmt.Fprintf(w, "%s\n", t.Name)
		for _, d := range t.Dependencies {
			fmt.Fprintf(w, "  %s\n", d)
		}
		for _, p := range t.Provisions {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	for _, c := range b.Chains {
		fmt.Fprintf(w, "chain %s: %s\n", c.Name, strings.Join(c.Dependencies, ", "))
	}
	return nil
}

// Environment builds name and writes the public environment it provides
// as YAML.
func (a *App) Environment(ctx context.Context, w io.Writer, name string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	b, err := a.Load(ctx)
	if err != nil {
		return err
	}
	resolved, err := a.resolve(b, []string{name})
	if err != nil {
		return err
	}
	c, err := a.controller(b, &plan{chain: resolved, requested: true})
	if err != nil {
		return err
	}
	if err := c.Run(ctx); err != nil {
		return err
	}

	values := map[string]any{}
	for _, d := range resolved.Dependencies() {
		out, ok := c.Output(build.NewDependencyNode(resolved, d, b.Environment))
		if !ok {
			return fmt.Errorf("no environment built for %s", d.Name)
		}
		provided, err := out.Flatten()
		if err != nil {
			return err
		}
		// Provided values may read root values, so evaluate them in place.
		scoped, err := environment.Combine(b.Environment, out)
		if err != nil {
			return err
		}
		evaluated, err := scoped.Evaluate()
		if err != nil {
			return err
		}
		for _, k := range provided.Keys() {
			values[k], _ = evaluated.Get(k)
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(values); err != nil {
		return fmt.Errorf("encoding environment: %w", err)
	}
	return enc.Close()
}

// Graph builds the named dependencies and writes the files the build read
// and wrote as a Graphviz digraph. The graph is written even when the
// build fails.
func (a *App) Graph(ctx context.Context, w io.Writer, names ...string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	b, err := a.Load(ctx)
	if err != nil {
		return err
	}
	p, err := a.plan(b, names)
	if err != nil {
		return err
	}
	c, err := a.controller(b, p)
	if err != nil {
		return err
	}
	runErr := c.Run(ctx)
	if err := c.Walker().WriteDot(w); err != nil {
		return fmt.Errorf("writing graph: %w", err)
	}
	return runErr
}
