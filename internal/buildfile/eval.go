package buildfile

import (
	"context"
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/specialistvlad/buildgrid/internal/rule"
)

const (
	parametersVar  = "parameters"
	environmentVar = "environment"
)

// scope evaluates the expressions of one buildfile.
type scope struct {
	functions map[string]function.Function
}

// evalContext exposes parameters and environment values to expressions.
func (s *scope) evalContext(params, env map[string]any) (*hcl.EvalContext, error) {
	p, err := objectOf(params)
	if err != nil {
		return nil, fmt.Errorf("converting parameters: %w", err)
	}
	e, err := objectOf(env)
	if err != nil {
		return nil, fmt.Errorf("converting environment: %w", err)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			parametersVar:  p,
			environmentVar: e,
		},
		Functions: s.functions,
	}, nil
}

// value evaluates expr into a Go value.
func (s *scope) value(expr hcl.Expression, ectx *hcl.EvalContext) (any, error) {
	v, diags := expr.Value(ectx)
	if diags.HasErrors() {
		return nil, diags
	}
	return FromCty(v)
}

// environmentRefs returns the environment keys expr reads.
func environmentRefs(expr hcl.Expression) []string {
	var keys []string
	for _, traversal := range expr.Variables() {
		if traversal.RootName() != environmentVar || len(traversal) < 2 {
			continue
		}
		if attr, ok := traversal[1].(hcl.TraverseAttr); ok && !slices.Contains(keys, attr.Name) {
			keys = append(keys, attr.Name)
		}
	}
	return keys
}

// step is an action or invoke block, in source order.
type step struct {
	start  int
	action *actionBlock
	invoke *invokeBlock
}

func orderSteps(actions []*actionBlock, invokes []*invokeBlock) []step {
	steps := make([]step, 0, len(actions)+len(invokes))
	for _, a := range actions {
		steps = append(steps, step{start: bodyStart(a.Body), action: a})
	}
	for _, i := range invokes {
		steps = append(steps, step{start: bodyStart(i.Body), invoke: i})
	}
	slices.SortStableFunc(steps, func(a, b step) int { return a.start - b.start })
	return steps
}

var actionSchemas = map[string]*hcl.BodySchema{
	"run":     {Attributes: []hcl.AttributeSchema{{Name: "command", Required: true}}},
	"spawn":   {Attributes: []hcl.AttributeSchema{{Name: "command", Required: true}}},
	"touch":   {Attributes: []hcl.AttributeSchema{{Name: "path", Required: true}}},
	"remove":  {Attributes: []hcl.AttributeSchema{{Name: "path", Required: true}}},
	"mkpath":  {Attributes: []hcl.AttributeSchema{{Name: "path", Required: true}}},
	"copy":    {Attributes: []hcl.AttributeSchema{{Name: "source", Required: true}, {Name: "destination", Required: true}}},
	"install": {Attributes: []hcl.AttributeSchema{{Name: "source", Required: true}, {Name: "destination", Required: true}}},
	"write":   {Attributes: []hcl.AttributeSchema{{Name: "path", Required: true}, {Name: "content", Required: true}}},
}

// validateSteps checks the shape of every step without evaluating anything.
func validateSteps(steps []step) error {
	for _, st := range steps {
		if st.invoke != nil {
			if _, diags := st.invoke.Body.JustAttributes(); diags.HasErrors() {
				return fmt.Errorf("invoke %q: %w", st.invoke.Process, diags)
			}
			continue
		}
		schema, ok := actionSchemas[st.action.Kind]
		if !ok {
			return fmt.Errorf("unknown action kind %q", st.action.Kind)
		}
		if _, diags := st.action.Body.Content(schema); diags.HasErrors() {
			return fmt.Errorf("action %q: %w", st.action.Kind, diags)
		}
	}
	return nil
}

// run executes steps against sc. Expressions see params and values as the
// environment, or the acting environment's values when values is nil.
func (s *scope) run(ctx context.Context, sc rule.Scope, steps []step, params rule.Arguments, values map[string]any) error {
	if len(steps) == 0 {
		return nil
	}
	if values == nil {
		values = sc.Values()
	}
	ectx, err := s.evalContext(params, values)
	if err != nil {
		return err
	}
	for _, st := range steps {
		if st.invoke != nil {
			err = s.invoke(ctx, sc, st.invoke, ectx)
		} else {
			err = s.action(ctx, sc, st.action, ectx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *scope) invoke(ctx context.Context, sc rule.Scope, blk *invokeBlock, ectx *hcl.EvalContext) error {
	attrs, diags := blk.Body.JustAttributes()
	if diags.HasErrors() {
		return diags
	}
	args := make(rule.Arguments, len(attrs))
	for _, key := range sortedKeys(attrs) {
		v, err := s.value(attrs[key].Expr, ectx)
		if err != nil {
			return fmt.Errorf("invoke %q: %s: %w", blk.Process, key, err)
		}
		args[key] = v
	}
	_, err := sc.Invoke(ctx, blk.Process, args)
	return err
}

func (s *scope) action(ctx context.Context, sc rule.Scope, blk *actionBlock, ectx *hcl.EvalContext) error {
	content, diags := blk.Body.Content(actionSchemas[blk.Kind])
	if diags.HasErrors() {
		return diags
	}
	strs := func(name string) ([]string, error) {
		v, diags := content.Attributes[name].Expr.Value(ectx)
		if diags.HasErrors() {
			return nil, diags
		}
		if v.Type() == cty.String {
			return []string{v.AsString()}, nil
		}
		list, err := convert.Convert(v, cty.List(cty.String))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		var out []string
		for it := list.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			out = append(out, ev.AsString())
		}
		return out, nil
	}
	str := func(name string) (string, error) {
		v, diags := content.Attributes[name].Expr.Value(ectx)
		if diags.HasErrors() {
			return "", diags
		}
		v, err := convert.Convert(v, cty.String)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		return v.AsString(), nil
	}

	switch blk.Kind {
	case "run", "spawn":
		argv, err := strs("command")
		if err != nil {
			return err
		}
		if blk.Kind == "run" {
			return sc.Run(ctx, argv...)
		}
		return sc.Spawn(ctx, argv...)
	case "touch", "remove", "mkpath":
		paths, err := strs("path")
		if err != nil {
			return err
		}
		for _, p := range paths {
			switch blk.Kind {
			case "touch":
				err = sc.Touch(p)
			case "remove":
				err = sc.Remove(p)
			default:
				err = sc.MakePath(p)
			}
			if err != nil {
				return err
			}
		}
		return nil
	case "copy", "install":
		src, err := str("source")
		if err != nil {
			return err
		}
		dst, err := str("destination")
		if err != nil {
			return err
		}
		if blk.Kind == "copy" {
			return sc.Copy(src, dst)
		}
		return sc.Install(src, dst)
	case "write":
		path, err := str("path")
		if err != nil {
			return err
		}
		data, err := str("content")
		if err != nil {
			return err
		}
		return sc.Write(path, []byte(data))
	}
	return fmt.Errorf("unknown action kind %q", blk.Kind)
}
