package environment

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/buildgrid/internal/rule"
)

func evaluated(t *testing.T, e *Environment) map[string]any {
	t.Helper()
	out, err := e.Evaluate()
	require.NoError(t, err)
	return out.Values()
}

func TestEvaluate_MergeRules(t *testing.T) {
	root := New(WithName("root")).
		Set("cflags", []string{"-O2"}).
		Set("cc", "gcc").
		Set("mode", "debug")
	child := New(WithParent(root), WithName("child")).
		Set("cflags", []string{"-Wall"}).
		Set("cc", "clang").
		Default("mode", "release").
		Default("arch", "x86_64").
		Append("libs", "m")
	leaf := New(WithParent(child)).
		Set("cflags", "-g").
		Append("libs", "pthread").
		Replace("cc", "tcc")

	assert.Equal(t, map[string]any{
		"cflags": []string{"-O2", "-Wall", "-g"},
		"cc":     "tcc",
		"mode":   "debug",
		"arch":   "x86_64",
		"libs":   []any{"m", "pthread"},
	}, evaluated(t, leaf))
}

func TestEvaluate_ReplaceOverridesList(t *testing.T) {
	root := New().Set("flags", []string{"a", "b"})
	child := New(WithParent(root)).Replace("flags", []string{"c"})

	assert.Equal(t, []string{"c"}, evaluated(t, child)["flags"])
}

func TestEvaluate_Lazy(t *testing.T) {
	root := New().
		Set("prefix", "/usr").
		Lazy("bin", func(ev *Evaluator) (any, error) {
			p, err := ev.Get("prefix")
			return fmt.Sprintf("%v/bin", p), err
		})
	child := New(WithParent(root)).Set("prefix", "/opt")

	values := evaluated(t, child)
	assert.Equal(t, "/opt/bin", values["bin"])
}

func TestEvaluate_LazyAppendsToList(t *testing.T) {
	root := New().Set("flags", []string{"-O2"})
	child := New(WithParent(root)).Lazy("flags", func(ev *Evaluator) (any, error) {
		return "-g", nil
	})

	assert.Equal(t, []string{"-O2", "-g"}, evaluated(t, child)["flags"])
}

func TestEvaluate_CyclicLazyValues(t *testing.T) {
	e := New().
		Lazy("a", func(ev *Evaluator) (any, error) { return ev.Get("b") }).
		Lazy("b", func(ev *Evaluator) (any, error) { return ev.Get("a") })

	_, err := e.Evaluate()
	assert.ErrorIs(t, err, ErrCyclicValue)
}

func TestEvaluate_Idempotent(t *testing.T) {
	root := New().Set("flags", []string{"-O2"}).Default("mode", "debug")
	child := New(WithParent(root), WithName("child")).
		Append("flags", "-g").
		Lazy("greeting", func(ev *Evaluator) (any, error) { return "hello", nil })

	once, err := child.Evaluate()
	require.NoError(t, err)
	twice, err := once.Evaluate()
	require.NoError(t, err)

	assert.Equal(t, once.Values(), twice.Values())
	assert.Equal(t, once.Keys(), twice.Keys())
	assert.Equal(t, "child", twice.Name())
	assert.Nil(t, twice.Parent())
}

func TestCombine(t *testing.T) {
	a := New(WithName("a")).Set("x", 1).Set("list", []string{"a"})
	b := New(WithName("b")).Set("x", 2).Set("y", "b").Set("list", []string{"b"})
	c := New(WithParent(New().Set("z", true)), WithName("c")).Set("y", "c")

	abc, err := Combine(a, b, c)
	require.NoError(t, err)
	ab, err := Combine(a, b)
	require.NoError(t, err)
	abThenC, err := Combine(ab, c)
	require.NoError(t, err)

	expected := map[string]any{"x": 2, "y": "c", "z": true, "list": []string{"a", "b"}}
	assert.Equal(t, expected, evaluated(t, abc))
	assert.Equal(t, expected, evaluated(t, abThenC))

	// The inputs are untouched.
	assert.Nil(t, a.Parent())
	assert.Nil(t, b.Parent())
}

func TestCombine_Empty(t *testing.T) {
	e, err := Combine()
	require.NoError(t, err)
	assert.Nil(t, e)

	e, err = Combine(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestWalk_RootFirst(t *testing.T) {
	root := New(WithName("root"))
	mid := New(WithParent(root), WithName("mid"))
	leaf := New(WithParent(mid), WithName("leaf"))

	var names []string
	require.NoError(t, leaf.Walk(func(level *Environment) error {
		names = append(names, level.Name())
		return nil
	}))
	assert.Equal(t, []string{"root", "mid", "leaf"}, names)
}

func TestWalk_RejectsCyclicParents(t *testing.T) {
	a := New(WithName("a"))
	b := New(WithParent(a), WithName("b"))
	a.parent = b

	_, err := b.Evaluate()
	assert.ErrorIs(t, err, ErrCyclicParent)
	_, err = Combine(b)
	assert.ErrorIs(t, err, ErrCyclicParent)
}

func TestDup(t *testing.T) {
	parent := New().Set("a", 1)
	e := New(WithParent(parent), WithName("orig")).Set("b", 2)

	d := e.Dup(WithParent(nil), WithName("copy"))
	d.Set("c", 3)

	assert.Nil(t, d.Parent())
	assert.Equal(t, "copy", d.Name())
	assert.Equal(t, map[string]any{"b": 2, "c": 3}, d.Values())
	assert.Same(t, parent, e.Parent())
	assert.Equal(t, map[string]any{"b": 2}, e.Values())
}

func TestDefinitions(t *testing.T) {
	noop := func(r *rule.Rule) {}
	root := New().Define("copy.file", noop).Define("make.file", noop)
	child := New(WithParent(root)).Define("copy.file", func(r *rule.Rule) { r.Input("source") })

	assert.Len(t, child.Defined(), 1)

	e, err := child.Evaluate()
	require.NoError(t, err)
	defs := e.Defined()
	require.Len(t, defs, 2)
	assert.Equal(t, "copy.file", defs[0].Name)
	assert.Equal(t, "make.file", defs[1].Name)
	assert.Len(t, rule.Build(defs[0].Name, defs[0].Blueprint).Parameters(), 1)
}

func TestExport(t *testing.T) {
	e := New().
		Set("cflags", []string{"-O2", "-g"}).
		Set("build prefix", "/tmp/build").
		Set("jobs", 4).
		Set("unset", nil)

	exported, err := e.Export()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"CFLAGS":       "-O2 -g",
		"BUILD_PREFIX": "/tmp/build",
		"JOBS":         "4",
	}, exported)
}

func TestConstruct(t *testing.T) {
	e := New(WithName("output"))
	fn := func(ctx context.Context, scope rule.Scope, env *Environment, args ...any) error {
		env.Set("built", args[0])
		return nil
	}

	require.NoError(t, e.Construct(context.Background(), nil, fn, "yes"))
	require.NoError(t, e.Construct(context.Background(), nil, nil))

	v, ok := e.Get("built")
	assert.True(t, ok)
	assert.Equal(t, "yes", v)
}
