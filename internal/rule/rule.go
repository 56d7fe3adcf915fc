// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package rule

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/files"
)

var (
	// ErrFrozen is the panic value when a built rule is modified.
	ErrFrozen = errors.New("rule is frozen")
	// ErrNoApplicableRule matches every NoApplicableRuleError.
	ErrNoApplicableRule = errors.New("no applicable rule")
)

var nonWord = regexp.MustCompile(`\W`)

// ApplyFunc is the build action of a rule.
type ApplyFunc func(ctx context.Context, scope Scope, args Arguments) error

// Blueprint populates a rule under construction. Environments store
// blueprints; rulebooks turn them into frozen rules.
type Blueprint func(r *Rule)

// Rule is a named, parameterized build action.
type Rule struct {
	name       string
	process    string
	parameters []*Parameter
	primary    *Parameter
	apply      ApplyFunc
	frozen     bool
}

// New starts a rule for process and kind. The name keeps both as given;
// dashes become underscores only in the process name used for dispatch.
func New(process, kind string) *Rule {
	name := process
	if kind != "" {
		name += "." + kind
	}
	return &Rule{
		name:    name,
		process: strings.ReplaceAll(process, "-", "_"),
	}
}

// Build creates a frozen rule from a "process.type" name and a blueprint.
func Build(name string, blueprint Blueprint) *Rule {
	process, kind, _ := strings.Cut(name, ".")
	r := New(process, kind)
	if blueprint != nil {
		blueprint(r)
	}
	return r.Freeze()
}

func (r *Rule) mutate() {
	if r.frozen {
		panic(fmt.Errorf("%w: %s", ErrFrozen, r.Name()))
	}
}

func (r *Rule) declare(direction Direction, name string, opts []Option) *Rule {
	r.mutate()
	p := newParameter(direction, name, opts...)
	r.parameters = append(r.parameters, p)
	if p.Output() && r.primary == nil {
		r.primary = p
	}
	return r
}

// Input declares a file the rule reads.
func (r *Rule) Input(name string, opts ...Option) *Rule {
	return r.declare(Input, name, opts)
}

// Output declares a file the rule writes. The first output is the primary
// output reported by Result.
func (r *Rule) Output(name string, opts ...Option) *Rule {
	return r.declare(Output, name, opts)
}

// Parameter declares an argument that is not a file.
func (r *Rule) Parameter(name string, opts ...Option) *Rule {
	return r.declare(Argument, name, opts)
}

// Apply sets the build action.
func (r *Rule) Apply(fn ApplyFunc) *Rule {
	r.mutate()
	r.apply = fn
	return r
}

// Freeze prevents further modification.
func (r *Rule) Freeze() *Rule {
	r.frozen = true
	return r
}

// Frozen reports whether the rule can still be modified.
func (r *Rule) Frozen() bool { return r.frozen }

// Name is "process.type", or just the process for rules without a type.
func (r *Rule) Name() string { return r.name }

// ProcessName is the dispatch key shared by alternative rules.
func (r *Rule) ProcessName() string { return r.process }

// FullName is the name with every non-word character replaced by '_'.
func (r *Rule) FullName() string { return nonWord.ReplaceAllString(r.Name(), "_") }

func (r *Rule) String() string { return r.Name() }

// Parameters returns the declared parameters in declaration order.
func (r *Rule) Parameters() []*Parameter { return slices.Clone(r.parameters) }

// PrimaryOutput returns the first declared output, or nil.
func (r *Rule) PrimaryOutput() *Parameter { return r.primary }

// Applicable reports whether every non-implicit parameter accepts args.
func (r *Rule) Applicable(args Arguments) bool {
	for _, p := range r.parameters {
		if p.Implicit() {
			continue
		}
		if !p.Applicable(args) {
			return false
		}
	}
	return true
}

// Normalize computes every parameter in declaration order. The result has
// an entry for each declared parameter, even when its value is nil, and
// nothing else.
func (r *Rule) Normalize(args Arguments, ctx Context) (Arguments, error) {
	out := make(Arguments, len(r.parameters))
	for _, p := range r.parameters {
		value, err := p.Compute(ctx, args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Name(), err)
		}
		out[p.Name()] = value
	}
	return out, nil
}

// Files partitions the parameter values by direction.
func (r *Rule) Files(args Arguments) (inputs, outputs files.List) {
	var in, out []any
	for _, p := range r.parameters {
		switch p.Direction() {
		case Input:
			in = append(in, args[p.Name()])
		case Output:
			out = append(out, args[p.Name()])
		}
	}
	return files.Of(in...), files.Of(out...)
}

// Invoke runs the build action, if any, against scope.
func (r *Rule) Invoke(ctx context.Context, scope Scope, args Arguments) error {
	if r.apply == nil {
		return nil
	}
	return r.apply(ctx, scope, args)
}

// Result returns the value of the primary output, or nil without one.
func (r *Rule) Result(args Arguments) any {
	if r.primary == nil {
		return nil
	}
	return args[r.primary.Name()]
}

// NoApplicableRuleError reports that no rule for a process accepts the
// given arguments.
type NoApplicableRuleError struct {
	Process   string
	Arguments Arguments
}

func (e *NoApplicableRuleError) Error() string {
	return fmt.Sprintf("no applicable rule with name %s.* for parameters: %v", e.Process, e.Arguments)
}

func (e *NoApplicableRuleError) Is(target error) bool {
	return target == ErrNoApplicableRule
}
