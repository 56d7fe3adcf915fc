package buildfile

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/buildgrid/internal/testutil"
)

func eval(t *testing.T, s *scope, src string, params, env map[string]any) any {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors(), diags.Error())
	ectx, err := s.evalContext(params, env)
	require.NoError(t, err)
	v, err := s.value(expr, ectx)
	require.NoError(t, err)
	return v
}

func TestFunctions(t *testing.T) {
	ws := testutil.NewWorkspace(t, map[string]string{
		"src/a.c":     "",
		"src/sub/b.c": "",
		"src/c.h":     "",
	})
	s := &scope{functions: functions(ws.Dir)}

	assert.Equal(t, "FOO_BAR", eval(t, s, `macro("foo-bar")`, nil, nil))
	assert.Equal(t, "b.c", eval(t, s, `basename("/x/b.c")`, nil, nil))
	assert.Equal(t, ".c", eval(t, s, `extension(parameters.src)`, map[string]any{"src": "a.c"}, nil))
	assert.Equal(t, "-O2 -g", eval(t, s, `join(" ", environment.cflags)`, nil, map[string]any{"cflags": []string{"-O2", "-g"}}))
	assert.Equal(t,
		[]string{ws.Path("src/a.c"), ws.Path("src/sub/b.c")},
		eval(t, s, `glob("src/**/*.c")`, nil, nil),
	)
}

func TestFunctions_Getenv(t *testing.T) {
	t.Setenv("BUILDGRID_TEST_CC", "clang")
	s := &scope{functions: functions(".")}

	assert.Equal(t, "clang", eval(t, s, `getenv("BUILDGRID_TEST_CC")`, nil, nil))
	assert.Equal(t, "gcc", eval(t, s, `getenv("BUILDGRID_TEST_UNSET", "gcc")`, nil, nil))
	assert.Equal(t, "", eval(t, s, `getenv("BUILDGRID_TEST_UNSET")`, nil, nil))
}

func TestEnvironmentRefs(t *testing.T) {
	expr, diags := hclsyntax.ParseTemplate([]byte(`${environment.user}-${parameters.x}-${environment.host}-${environment.user}`), "t.hcl", hcl.Pos{Line: 1, Column: 1})
	require.False(t, diags.HasErrors())

	assert.Equal(t, []string{"user", "host"}, environmentRefs(expr))
}
