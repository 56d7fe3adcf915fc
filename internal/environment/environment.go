// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package environment

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/name"
	"github.com/specialistvlad/buildgrid/internal/rule"
)

var (
	// ErrCyclicParent is returned when a parent chain loops back on itself.
	ErrCyclicParent = errors.New("cyclic environment parent chain")
	// ErrCyclicValue is returned when lazy values depend on each other.
	ErrCyclicValue = errors.New("cyclic environment value")
)

// maxDepth bounds parent chains independently of the visited set.
const maxDepth = 1024

// Environment is one level of a layered build environment.
type Environment struct {
	parent       *Environment
	name         string
	keys         []string
	values       map[string]any
	definitions  []Definition
	constructors []Constructor
}

// Option adjusts a new or duplicated environment.
type Option func(*Environment)

// WithParent sets the parent level. A nil parent detaches the environment.
func WithParent(parent *Environment) Option {
	return func(e *Environment) { e.parent = parent }
}

// WithName sets the environment name.
func WithName(n string) Option {
	return func(e *Environment) { e.name = n }
}

// New creates an empty environment level.
func New(opts ...Option) *Environment {
	e := &Environment{values: map[string]any{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the environment name, which may be empty.
func (e *Environment) Name() string { return e.name }

// Parent returns the parent level, or nil.
func (e *Environment) Parent() *Environment { return e.parent }

// Set assigns a value on this level. The value may be Default, Replace,
// Append or Lazy.
func (e *Environment) Set(key string, value any) *Environment {
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
	return e
}

// Default sets key only if no earlier level set it.
func (e *Environment) Default(key string, value any) *Environment {
	return e.Set(key, Default{Value: value})
}

// Replace sets key, overriding lists instead of extending them.
func (e *Environment) Replace(key string, value any) *Environment {
	return e.Set(key, Replace{Value: value})
}

// Append extends the list stored under key.
func (e *Environment) Append(key string, values ...any) *Environment {
	return e.Set(key, Append{Values: values})
}

// Lazy defers computing key until evaluation.
func (e *Environment) Lazy(key string, fn func(ev *Evaluator) (any, error)) *Environment {
	return e.Set(key, Lazy(fn))
}

// Define registers a rule blueprint under "process.type".
func (e *Environment) Define(ruleName string, blueprint rule.Blueprint) *Environment {
	e.definitions = append(e.definitions, Definition{Name: ruleName, Blueprint: blueprint})
	return e
}

// Build attaches a constructor run when the environment is applied as a
// top-level build node.
func (e *Environment) Build(fn Constructor) *Environment {
	e.constructors = append(e.constructors, fn)
	return e
}

// Get returns the value set on this level only.
func (e *Environment) Get(key string) (any, bool) {
	v, ok := e.values[key]
	return v, ok
}

// Lookup is Get; on an evaluated environment it sees every resolved value.
func (e *Environment) Lookup(key string) (any, bool) {
	return e.Get(key)
}

// Keys returns this level's keys in assignment order.
func (e *Environment) Keys() []string { return slices.Clone(e.keys) }

// Values returns a copy of this level's values.
func (e *Environment) Values() map[string]any { return maps.Clone(e.values) }

// Defined returns this level's definitions in registration order.
func (e *Environment) Defined() []Definition { return slices.Clone(e.definitions) }

// Constructors returns this level's constructors.
func (e *Environment) Constructors() []Constructor { return slices.Clone(e.constructors) }

// Dup copies this level, optionally rebinding parent or name. The original
// is not affected.
func (e *Environment) Dup(opts ...Option) *Environment {
	d := &Environment{
		parent:       e.parent,
		name:         e.name,
		keys:         slices.Clone(e.keys),
		values:       maps.Clone(e.values),
		definitions:  slices.Clone(e.definitions),
		constructors: slices.Clone(e.constructors),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Levels returns the chain of levels root-first.
func (e *Environment) Levels() ([]*Environment, error) {
	var chain []*Environment
	seen := map[*Environment]bool{}
	for level := e; level != nil; level = level.parent {
		if seen[level] || len(chain) >= maxDepth {
			return nil, fmt.Errorf("%w: %s", ErrCyclicParent, e)
		}
		seen[level] = true
		chain = append(chain, level)
	}
	slices.Reverse(chain)
	return chain, nil
}

// Walk calls fn once per level, root-first.
func (e *Environment) Walk(fn func(level *Environment) error) error {
	levels, err := e.Levels()
	if err != nil {
		return err
	}
	for _, level := range levels {
		if err := fn(level); err != nil {
			return err
		}
	}
	return nil
}

// Flatten folds the level chain into a single level. Lazy values are kept
// unresolved.
func (e *Environment) Flatten() (*Environment, error) {
	flat := New(WithName(e.name))
	err := e.Walk(func(level *Environment) error {
		for _, key := range level.keys {
			prev, present := flat.values[key]
			flat.Set(key, merge(prev, present, level.values[key]))
		}
		for _, def := range level.definitions {
			i := slices.IndexFunc(flat.definitions, func(d Definition) bool { return d.Name == def.Name })
			if i >= 0 {
				flat.definitions[i] = def
			} else {
				flat.definitions = append(flat.definitions, def)
			}
		}
		flat.constructors = append(flat.constructors, level.constructors...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flat, nil
}

// Evaluate folds the level chain and resolves every lazy value. The result
// is a detached single level, named after e unless opts say otherwise.
// Evaluating an evaluated environment yields the same values.
func (e *Environment) Evaluate(opts ...Option) (*Environment, error) {
	flat, err := e.Flatten()
	if err != nil {
		return nil, err
	}
	ev := newEvaluator(flat.values)
	for _, key := range flat.keys {
		v, err := ev.Get(key)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s: %w", e, err)
		}
		flat.values[key] = v
	}
	for _, opt := range opts {
		opt(flat)
	}
	return flat, nil
}

// Construct runs fn with scope as the acting context and e as the
// environment being populated.
func (e *Environment) Construct(ctx context.Context, scope rule.Scope, fn Constructor, args ...any) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, scope, e, args...)
}

// Export evaluates the environment into variables for spawned commands:
// keys in macro form, lists joined with spaces, nil values skipped.
func (e *Environment) Export() (map[string]string, error) {
	evaluated, err := e.Evaluate()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(evaluated.keys))
	for _, key := range evaluated.keys {
		v := evaluated.values[key]
		if v == nil {
			continue
		}
		out[name.New(key).Macro()] = exportValue(v)
	}
	return out, nil
}

func exportValue(v any) string {
	if isList(v) {
		items := toList(v)
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, " ")
	}
	return fmt.Sprint(v)
}

func (e *Environment) String() string {
	if e.name == "" {
		return "Environment"
	}
	return fmt.Sprintf("Environment(%s)", e.name)
}

// Inspect renders this level's raw values, for debugging.
func (e *Environment) Inspect() string {
	var b strings.Builder
	b.WriteString(e.String())
	for _, key := range e.keys {
		fmt.Fprintf(&b, "\n  %s: %s", key, describe(e.values[key]))
	}
	return b.String()
}

// Combine chains the levels of every environment in order, so later
// environments take precedence. Nil environments are skipped; with none
// left the result is nil.
func Combine(envs ...*Environment) (*Environment, error) {
	var top *Environment
	for _, env := range envs {
		if env == nil {
			continue
		}
		err := env.Walk(func(level *Environment) error {
			top = level.Dup(WithParent(top))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return top, nil
}
