// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package rule

import (
	"fmt"
	"regexp"
)

// Direction classifies a parameter for the dirty check.
type Direction int

const (
	// Argument parameters take no part in file tracking.
	Argument Direction = iota
	// Input parameters name files the rule reads.
	Input
	// Output parameters name files the rule writes.
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return "argument"
	}
}

// ImplicitFunc computes a parameter from the full raw argument set.
type ImplicitFunc func(ctx Context, args Arguments) (any, error)

// DynamicFunc computes a parameter from the caller's raw value, which may be
// nil, and the full raw argument set.
type DynamicFunc func(ctx Context, value any, args Arguments) (any, error)

// Option configures a Parameter.
type Option func(*Parameter)

// Default sets the value used when the computed value is absent.
func Default(v any) Option {
	return func(p *Parameter) {
		p.defaultValue = v
		p.hasDefault = true
	}
}

// Optional marks the parameter as not required for applicability.
func Optional() Option {
	return func(p *Parameter) { p.optional = true }
}

// Implicit computes the parameter unless the caller supplies it.
func Implicit(fn ImplicitFunc) Option {
	return func(p *Parameter) {
		p.implicit = true
		p.compute = func(ctx Context, value any, args Arguments) (any, error) {
			if value != nil {
				return value, nil
			}
			return fn(ctx, args)
		}
	}
}

// Dynamic always computes the parameter from the caller's raw value.
func Dynamic(fn DynamicFunc) Option {
	return func(p *Parameter) {
		p.implicit = false
		p.compute = func(ctx Context, value any, args Arguments) (any, error) {
			return fn(ctx, value, args)
		}
	}
}

// Pattern constrains acceptable values. Every item of a list value must match.
func Pattern(re *regexp.Regexp) Option {
	return func(p *Parameter) { p.pattern = re }
}

// Parameter is one declared slot of a rule.
type Parameter struct {
	direction    Direction
	name         string
	defaultValue any
	hasDefault   bool
	optional     bool
	implicit     bool
	pattern      *regexp.Regexp
	compute      func(ctx Context, value any, args Arguments) (any, error)
}

func newParameter(direction Direction, name string, opts ...Option) *Parameter {
	p := &Parameter{direction: direction, name: name}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parameter) Name() string         { return p.name }
func (p *Parameter) Direction() Direction { return p.direction }
func (p *Parameter) Input() bool          { return p.direction == Input }
func (p *Parameter) Output() bool         { return p.direction == Output }
func (p *Parameter) Implicit() bool       { return p.implicit }
func (p *Parameter) Dynamic() bool        { return p.compute != nil && !p.implicit }

// Default returns the declared default and whether one was declared.
func (p *Parameter) Default() (any, bool) {
	return p.defaultValue, p.hasDefault
}

// Optional reports whether the parameter may be absent from the arguments.
// Implicit and defaulted parameters are optional as well.
func (p *Parameter) Optional() bool {
	return p.optional || p.implicit || p.hasDefault
}

// Applicable reports whether the raw arguments satisfy this parameter.
func (p *Parameter) Applicable(args Arguments) bool {
	value, ok := args[p.name]
	if !ok || value == nil {
		return p.Optional()
	}
	return p.matches(value)
}

func (p *Parameter) matches(value any) bool {
	if p.pattern == nil {
		return true
	}
	for _, item := range items(value) {
		if !p.pattern.MatchString(fmt.Sprint(item)) {
			return false
		}
	}
	return true
}

// Compute returns the effective value of the parameter. A nil result falls
// back to the default; an explicit false is kept.
func (p *Parameter) Compute(ctx Context, args Arguments) (any, error) {
	value := args[p.name]
	if p.compute != nil {
		computed, err := p.compute(ctx, value, args)
		if err != nil {
			return nil, fmt.Errorf("computing %s %q: %w", p.direction, p.name, err)
		}
		value = computed
	}
	if value == nil && p.hasDefault {
		value = p.defaultValue
	}
	return value, nil
}

func (p *Parameter) String() string {
	return fmt.Sprintf("%s %s", p.direction, p.name)
}

func items(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}
