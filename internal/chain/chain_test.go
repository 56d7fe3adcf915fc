package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/buildgrid/internal/environment"
	"github.com/specialistvlad/buildgrid/internal/rule"
)

func noop(context.Context, rule.Scope, *environment.Environment, ...any) error { return nil }

func names(provisions []*Provision) []string {
	out := make([]string, len(provisions))
	for i, p := range provisions {
		out[i] = p.Provider.Name + ":" + p.Name
	}
	return out
}

func TestResolve_OrdersDependenciesFirst(t *testing.T) {
	compiler := NewTarget("compiler").Provides("compiler", noop)
	platform := NewTarget("platform").Provides("platform", noop)
	lib := NewTarget("lib").
		Depends("compiler").
		Depends("platform", Private()).
		Provides("library/lib", noop)
	app := NewTarget("app").Depends("library/lib").Provides("app", noop)

	c, err := Resolve([]*Target{app, lib, platform, compiler}, "app")
	require.NoError(t, err)

	assert.Equal(t, []string{"compiler:compiler", "platform:platform", "lib:library/lib", "app:app"}, names(c.Ordered()))
	assert.Equal(t, []Dependency{{Name: "app"}}, c.Dependencies())

	deps := c.Provisions(Dependency{Name: "library/lib"})[0].EachDependency()
	assert.Equal(t, []Dependency{{Name: "compiler"}, {Name: "platform", Private: true}}, deps)
	assert.False(t, deps[1].Public())
}

func TestResolve_MultipleProvidersKeepTargetOrder(t *testing.T) {
	a := NewTarget("a").Provides("platform", noop)
	b := NewTarget("b").Provides("platform", noop)

	c, err := Resolve([]*Target{b, a}, "platform")
	require.NoError(t, err)

	assert.Equal(t, []string{"b:platform", "a:platform"}, names(c.Provisions(Dependency{Name: "platform"})))
}

func TestResolve_Aliases(t *testing.T) {
	lib := NewTarget("lib").Provides("lib", noop)
	docs := NewTarget("docs").Provides("docs", noop)
	all := NewTarget("all").ProvidesAlias("everything", "lib", "docs")

	c, err := Resolve([]*Target{lib, docs, all}, "everything")
	require.NoError(t, err)

	assert.True(t, c.Dependencies()[0].Alias)
	p := c.Provisions(Dependency{Name: "everything"})[0]
	assert.True(t, p.IsAlias())
	assert.Equal(t, []Dependency{{Name: "lib"}, {Name: "docs"}}, p.EachDependency())
	assert.False(t, c.Normalize(Dependency{Name: "lib"}).Alias)
}

func TestResolve_Unresolved(t *testing.T) {
	app := NewTarget("app").Depends("missing").Depends("also-missing").Provides("app", noop)

	_, err := Resolve([]*Target{app}, "app", "missing")
	require.ErrorIs(t, err, ErrUnresolved)
	assert.Contains(t, err.Error(), "missing, also-missing")
}

func TestResolve_Cycle(t *testing.T) {
	a := NewTarget("a").Depends("b").Provides("a", noop)
	b := NewTarget("b").Depends("a").Provides("b", noop)

	_, err := Resolve([]*Target{a, b}, "a")
	require.ErrorIs(t, err, ErrCycle)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestDependencyString(t *testing.T) {
	assert.Equal(t, `depends "x"`, Dependency{Name: "x"}.String())
	assert.Equal(t, `depends "x" (alias, private)`, Dependency{Name: "x", Alias: true, Private: true}.String())
}
