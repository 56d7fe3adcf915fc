package buildfile

import (
	"context"
	"fmt"
	"regexp"
	"slices"

	"github.com/hashicorp/hcl/v2"

	"github.com/specialistvlad/buildgrid/internal/chain"
	"github.com/specialistvlad/buildgrid/internal/environment"
	"github.com/specialistvlad/buildgrid/internal/rule"
)

// translateRule validates a rule block and returns the blueprint that
// declares it.
func (s *scope) translateRule(rb *ruleBlock) (rule.Blueprint, error) {
	type declared struct {
		direction rule.Direction
		name      string
		opts      []rule.Option
	}
	var params []declared
	groups := []struct {
		direction rule.Direction
		blocks    []*parameterBlock
	}{
		{rule.Input, rb.Inputs},
		{rule.Output, rb.Outputs},
		{rule.Argument, rb.Parameters},
	}
	for _, g := range groups {
		for _, pb := range g.blocks {
			opts, err := s.parameterOptions(pb)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %s %q: %w", rb.Name, g.direction, pb.Name, err)
			}
			params = append(params, declared{g.direction, pb.Name, opts})
		}
	}

	steps := orderSteps(rb.Actions, rb.Invokes)
	if err := validateSteps(steps); err != nil {
		return nil, fmt.Errorf("rule %q: %w", rb.Name, err)
	}

	return func(r *rule.Rule) {
		for _, p := range params {
			switch p.direction {
			case rule.Input:
				r.Input(p.name, p.opts...)
			case rule.Output:
				r.Output(p.name, p.opts...)
			default:
				r.Parameter(p.name, p.opts...)
			}
		}
		if len(steps) > 0 {
			r.Apply(func(ctx context.Context, sc rule.Scope, args rule.Arguments) error {
				return s.run(ctx, sc, steps, args, nil)
			})
		}
	}, nil
}

func (s *scope) parameterOptions(pb *parameterBlock) ([]rule.Option, error) {
	var opts []rule.Option
	if isExprDefined(pb.Default) {
		ectx, err := s.evalContext(nil, nil)
		if err != nil {
			return nil, err
		}
		v, err := s.value(pb.Default, ectx)
		if err != nil {
			return nil, fmt.Errorf("invalid default value: %w", err)
		}
		opts = append(opts, rule.Default(v))
	}
	if pb.Optional != nil && *pb.Optional {
		opts = append(opts, rule.Optional())
	}
	if pb.Pattern != nil {
		re, err := regexp.Compile(*pb.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		opts = append(opts, rule.Pattern(re))
	}
	if isExprDefined(pb.Implicit) {
		expr := pb.Implicit
		opts = append(opts, rule.Implicit(func(ctx rule.Context, args rule.Arguments) (any, error) {
			var env map[string]any
			if ctx != nil {
				env = ctx.Values()
			}
			ectx, err := s.evalContext(args, env)
			if err != nil {
				return nil, err
			}
			return s.value(expr, ectx)
		}))
	}
	return opts, nil
}

// environmentContent splits an environment block into its attributes, in
// source order, and its action blocks.
func environmentContent(eb *environmentBlock) ([]*hcl.Attribute, []*actionBlock, error) {
	content, remain, diags := eb.Body.PartialContent(environmentSchema)
	if diags.HasErrors() {
		return nil, nil, diags
	}
	var actions []*actionBlock
	for _, blk := range content.Blocks {
		actions = append(actions, &actionBlock{Kind: blk.Labels[0], Body: blk.Body})
	}
	attrMap, diags := remain.JustAttributes()
	if diags.HasErrors() {
		return nil, nil, diags
	}
	attrs := make([]*hcl.Attribute, 0, len(attrMap))
	for _, a := range attrMap {
		attrs = append(attrs, a)
	}
	slices.SortFunc(attrs, func(a, b *hcl.Attribute) int { return a.Range.Start.Byte - b.Range.Start.Byte })
	return attrs, actions, nil
}

// populate assigns attrs to env. Attributes reading the environment
// become lazy values; the rest are evaluated now.
func (s *scope) populate(env *environment.Environment, attrs []*hcl.Attribute) error {
	for _, attr := range attrs {
		refs := environmentRefs(attr.Expr)
		if len(refs) == 0 {
			ectx, err := s.evalContext(nil, nil)
			if err != nil {
				return err
			}
			v, err := s.value(attr.Expr, ectx)
			if err != nil {
				return fmt.Errorf("%s: %w", attr.Name, err)
			}
			env.Set(attr.Name, v)
			continue
		}

		expr, key := attr.Expr, attr.Name
		env.Lazy(key, func(ev *environment.Evaluator) (any, error) {
			values := make(map[string]any, len(refs))
			for _, ref := range refs {
				if !ev.Has(ref) {
					continue
				}
				v, err := ev.Get(ref)
				if err != nil {
					return nil, err
				}
				values[ref] = v
			}
			ectx, err := s.evalContext(nil, values)
			if err != nil {
				return nil, err
			}
			v, err := s.value(expr, ectx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			return v, nil
		})
	}
	return nil
}

// translateEnvironment applies a top-level environment block to root.
func (s *scope) translateEnvironment(root *environment.Environment, eb *environmentBlock) error {
	attrs, actions, err := environmentContent(eb)
	if err != nil {
		return err
	}
	if err := s.populate(root, attrs); err != nil {
		return err
	}
	steps := orderSteps(actions, nil)
	if err := validateSteps(steps); err != nil {
		return err
	}
	if len(steps) > 0 {
		root.Build(func(ctx context.Context, sc rule.Scope, _ *environment.Environment, _ ...any) error {
			return s.run(ctx, sc, steps, nil, nil)
		})
	}
	return nil
}

func (s *scope) translateTarget(tb *targetBlock) (*chain.Target, error) {
	target := chain.NewTarget(tb.Name)
	for _, d := range tb.Depends {
		var opts []chain.DependencyOption
		if d.Private != nil && *d.Private {
			opts = append(opts, chain.Private())
		}
		target.Depends(d.Name, opts...)
	}

	for _, pb := range tb.Provides {
		if pb.Alias != nil {
			target.ProvidesAlias(pb.Name, pb.Alias...)
			continue
		}
		constructor, err := s.translateProvision(pb)
		if err != nil {
			return nil, fmt.Errorf("target %q: provides %q: %w", tb.Name, pb.Name, err)
		}
		target.Provides(pb.Name, constructor)
	}

	steps := orderSteps(tb.Actions, tb.Invokes)
	if err := validateSteps(steps); err != nil {
		return nil, fmt.Errorf("target %q: %w", tb.Name, err)
	}
	if len(steps) > 0 {
		target.Build = func(ctx context.Context, sc rule.Scope, _ ...any) error {
			return s.run(ctx, sc, steps, nil, nil)
		}
	}
	return target, nil
}

func (s *scope) translateProvision(pb *providesBlock) (environment.Constructor, error) {
	var attrs []*hcl.Attribute
	actions := slices.Clone(pb.Actions)
	for _, eb := range pb.Environment {
		a, acts, err := environmentContent(eb)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a...)
		actions = append(actions, acts...)
	}

	type definition struct {
		name      string
		blueprint rule.Blueprint
	}
	var defs []definition
	for _, rb := range pb.Rules {
		bp, err := s.translateRule(rb)
		if err != nil {
			return nil, err
		}
		defs = append(defs, definition{rb.Name, bp})
	}

	steps := orderSteps(actions, pb.Invokes)
	if err := validateSteps(steps); err != nil {
		return nil, err
	}

	return func(ctx context.Context, sc rule.Scope, env *environment.Environment, _ ...any) error {
		if err := s.populate(env, attrs); err != nil {
			return err
		}
		for _, d := range defs {
			env.Define(d.name, d.blueprint)
		}
		if len(steps) == 0 {
			return nil
		}
		// Steps see the values the provision just assigned.
		evaluated, err := env.Evaluate()
		if err != nil {
			return err
		}
		return s.run(ctx, sc, steps, nil, evaluated.Values())
	}, nil
}
