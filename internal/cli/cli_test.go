package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/buildgrid/internal/app"
	"github.com/specialistvlad/buildgrid/internal/testutil"
)

const buildfile = `
	target "greeting" {
	  provides "greeting" {
	    environment {
	      word = "hello"
	    }
	    action "write" {
	      path    = "greeting.txt"
	      content = environment.word
	    }
	  }
	}

	target "fails" {
	  provides "fails" {
	    action "spawn" { command = ["false"] }
	  }
	}

	target "package" {
	  depends "greeting" {}
	  action "copy" {
	    source      = "greeting.txt"
	    destination = "package.txt"
	  }
	  action "write" {
	    path    = "word.txt"
	    content = environment.word
	  }
	}

	chain "default" { dependencies = ["greeting"] }
`

func setup(t *testing.T) (*testutil.Workspace, *testutil.FakeGroup) {
	t.Helper()
	ws := testutil.NewWorkspace(t, map[string]string{"project/Buildfile.hcl": testutil.Unindent(buildfile)})
	t.Chdir(ws.Dir)
	group := &testutil.FakeGroup{Status: func(argv []string) int {
		if argv[0] == "false" {
			return 1
		}
		return 0
	}}
	return ws, group
}

func execute(t *testing.T, group *testutil.FakeGroup, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := Execute(context.Background(), args, &out, &errOut, app.WithGroup(group))
	return out.String(), errOut.String(), err
}

func TestExecute_DefaultBuild(t *testing.T) {
	ws, group := setup(t)

	_, _, err := execute(t, group, "-C", "project")
	require.NoError(t, err)

	assert.Equal(t, "hello", ws.ReadFile("project/greeting.txt"))
}

func TestExecute_BuildCommandWithFile(t *testing.T) {
	ws, group := setup(t)

	_, _, err := execute(t, group, "build", "--file", filepath.Join(ws.Dir, "project"), "greeting")
	require.NoError(t, err)

	assert.True(t, ws.Exists("greeting.txt"), "actions run in the working directory")
}

func TestExecute_BuildTargetSteps(t *testing.T) {
	ws, group := setup(t)

	_, _, err := execute(t, group, "-C", "project", "build", "package")
	require.NoError(t, err)

	assert.Equal(t, "hello", ws.ReadFile("project/package.txt"))
	assert.Equal(t, "hello", ws.ReadFile("project/word.txt"))
}

func TestExecute_BuildFailure(t *testing.T) {
	_, group := setup(t)

	_, _, err := execute(t, group, "-C", "project", "build", "fails")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitFailure, exitErr.Code)
	assert.Contains(t, exitErr.Message, "build failed")
	assert.Equal(t, []string{"false"}, group.Lines())
}

func TestExecute_List(t *testing.T) {
	_, group := setup(t)

	out, _, err := execute(t, group, "-C", "project", "list")
	require.NoError(t, err)

	assert.Contains(t, out, "greeting\n  provides \"greeting\"\n")
	assert.Contains(t, out, "chain default: greeting\n")
}

func TestExecute_Environment(t *testing.T) {
	_, group := setup(t)

	out, _, err := execute(t, group, "-C", "project", "environment", "greeting")
	require.NoError(t, err)

	assert.Equal(t, "word: hello\n", out)
}

func TestExecute_Graph(t *testing.T) {
	_, group := setup(t)

	out, _, err := execute(t, group, "-C", "project", "graph", "greeting")
	require.NoError(t, err)

	assert.Contains(t, out, "digraph G {")
}

func TestExecute_LogFlags(t *testing.T) {
	_, group := setup(t)

	_, logs, err := execute(t, group, "-C", "project", "--log-level", "debug", "--log-format", "json")
	require.NoError(t, err)

	assert.Contains(t, logs, `"level":"DEBUG"`)
}

func TestExecute_UsageErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown flag", args: []string{"--bogus"}, want: "unknown flag"},
		{name: "invalid level", args: []string{"--log-level", "loud"}, want: "invalid log level"},
		{name: "invalid limit", args: []string{"-j", "0"}, want: "limit must be at least 1"},
		{name: "missing directory", args: []string{"-C", "nowhere"}, want: "changing directory"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, group := setup(t)

			_, _, err := execute(t, group, tc.args...)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, ExitUsage, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}

func TestExecute_ConfigFile(t *testing.T) {
	ws, group := setup(t)
	ws.WriteFile("settings.yaml", "directory: project\nlog:\n  format: json\n")

	_, logs, err := execute(t, group, "--config", "settings.yaml", "--log-level", "debug")
	require.NoError(t, err)

	assert.True(t, ws.Exists("project/greeting.txt"))
	assert.Contains(t, logs, `"msg":`)
}

func TestExecute_EnvironmentNeedsOneArgument(t *testing.T) {
	_, group := setup(t)

	_, _, err := execute(t, group, "environment")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitFailure, exitErr.Code)
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	root := NewRootCommand(os.Stdout, os.Stderr)
	for _, name := range []string{"config", "file", "directory", "limit", "log-level", "log-format", "healthcheck-port"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "f", root.PersistentFlags().Lookup("file").Shorthand)
	assert.Equal(t, "C", root.PersistentFlags().Lookup("directory").Shorthand)
	assert.Equal(t, "j", root.PersistentFlags().Lookup("limit").Shorthand)
}
