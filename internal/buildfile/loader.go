package buildfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/buildgrid/internal/chain"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/environment"
	"github.com/specialistvlad/buildgrid/internal/files"
)

// ErrNoBuildfiles is returned when the given paths hold no .hcl files.
var ErrNoBuildfiles = errors.New("no buildfiles found")

// Chain is a named list of dependencies to build together.
type Chain struct {
	Name         string
	Dependencies []string
}

// Buildfile is the merged content of every loaded file.
type Buildfile struct {
	// Environment is the root environment: top-level environment blocks and
	// rules.
	Environment *environment.Environment
	Targets     []*chain.Target
	Chains      []*Chain
	Files       []string
}

// Target returns the target with the given name.
func (b *Buildfile) Target(name string) (*chain.Target, bool) {
	i := slices.IndexFunc(b.Targets, func(t *chain.Target) bool { return t.Name == name })
	if i < 0 {
		return nil, false
	}
	return b.Targets[i], true
}

// Chain returns the chain block with the given name.
func (b *Buildfile) Chain(name string) (*Chain, bool) {
	i := slices.IndexFunc(b.Chains, func(c *Chain) bool { return c.Name == name })
	if i < 0 {
		return nil, false
	}
	return b.Chains[i], true
}

// Expand replaces names of chain blocks with the chain's dependencies.
func (b *Buildfile) Expand(names ...string) []string {
	var expanded []string
	for _, n := range names {
		if c, ok := b.Chain(n); ok {
			expanded = append(expanded, c.Dependencies...)
			continue
		}
		expanded = append(expanded, n)
	}
	return expanded
}

// Provided reports whether some target provides name.
func (b *Buildfile) Provided(name string) bool {
	for _, t := range b.Targets {
		for _, p := range t.Provisions {
			if p.Name == name {
				return true
			}
		}
	}
	return false
}

// Resolve resolves dependency names against the loaded targets. A name
// matching a chain block stands for that chain's dependencies.
func (b *Buildfile) Resolve(names ...string) (*chain.Chain, error) {
	return chain.Resolve(b.Targets, b.Expand(names...)...)
}

// Load reads every .hcl file in paths, descending into directories, and
// translates them into one Buildfile.
func Load(ctx context.Context, paths ...string) (*Buildfile, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Buildfile loader started.", "path_count", len(paths))

	found, err := findBuildfiles(paths)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoBuildfiles, paths)
	}
	logger.Debug("Discovered buildfiles.", "count", len(found))

	b := &Buildfile{
		Environment: environment.New(environment.WithName("root")),
		Files:       found,
	}
	rules := map[string]string{}
	parser := hclparse.NewParser()

	for _, file := range found {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		s := &scope{functions: functions(filepath.Dir(file))}
		for _, eb := range root.Environments {
			if err := s.translateEnvironment(b.Environment, eb); err != nil {
				return nil, fmt.Errorf("%s: environment: %w", file, err)
			}
		}
		for _, rb := range root.Rules {
			if prev, ok := rules[rb.Name]; ok {
				return nil, fmt.Errorf("%s: rule %q already defined in %s", file, rb.Name, prev)
			}
			bp, err := s.translateRule(rb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			rules[rb.Name] = file
			b.Environment.Define(rb.Name, bp)
		}
		for _, tb := range root.Targets {
			if _, ok := b.Target(tb.Name); ok {
				return nil, fmt.Errorf("%s: target %q defined twice", file, tb.Name)
			}
			t, err := s.translateTarget(tb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			b.Targets = append(b.Targets, t)
		}
		for _, cb := range root.Chains {
			if _, ok := b.Chain(cb.Name); ok {
				return nil, fmt.Errorf("%s: chain %q defined twice", file, cb.Name)
			}
			b.Chains = append(b.Chains, &Chain{Name: cb.Name, Dependencies: cb.Dependencies})
		}
	}

	logger.Debug("Buildfile loading complete.",
		"files", len(found),
		"rules", len(rules),
		"targets", len(b.Targets),
		"chains", len(b.Chains),
	)
	return b, nil
}

// findBuildfiles returns the .hcl files named by or contained in paths,
// each once, in discovery order.
func findBuildfiles(paths []string) ([]string, error) {
	var all []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" && !slices.Contains(all, path) {
				all = append(all, path)
			}
			continue
		}
		matches, err := files.Glob(path, "**/*.hcl")
		if err != nil {
			return nil, err
		}
		for _, m := range matches.Paths() {
			if !slices.Contains(all, m) {
				all = append(all, m)
			}
		}
	}
	return all, nil
}
