package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/buildgrid/internal/build"
	"github.com/specialistvlad/buildgrid/internal/cli"
	"github.com/specialistvlad/buildgrid/internal/testutil"
)

// TestErrorHandling_InvalidHCLIsRejected validates that syntax errors stop
// the run before anything is built.
func TestErrorHandling_InvalidHCLIsRejected(t *testing.T) {
	result := runIntegrationTest(t, scenario{
		files: map[string]string{"Buildfile.hcl": `
			target "broken" {
			  provides "broken" {
		`},
	})

	var exitErr *cli.ExitError
	require.ErrorAs(t, result.err, &exitErr)
	assert.Equal(t, cli.ExitFailure, exitErr.Code)
	assert.Contains(t, exitErr.Message, "failed to parse")
	assert.Empty(t, result.group.Commands())
}

// TestErrorHandling_UnknownRule validates the message for an invocation no
// rule accepts.
func TestErrorHandling_UnknownRule(t *testing.T) {
	result := runIntegrationTest(t, scenario{
		files: map[string]string{"Buildfile.hcl": `
			target "x" {
			  provides "x" {
			    invoke "compile" { source = "main.c" }
			  }
			}
		`},
	})

	require.Error(t, result.err)
	assert.Contains(t, result.err.Error(), "no applicable rule with name compile.* for parameters")
}

// TestErrorHandling_DependencyCycle validates that cyclic targets are
// rejected while resolving.
func TestErrorHandling_DependencyCycle(t *testing.T) {
	result := runIntegrationTest(t, scenario{
		files: map[string]string{"Buildfile.hcl": `
			target "a" {
			  depends "b" {}
			  provides "a" {}
			}
			target "b" {
			  depends "a" {}
			  provides "b" {}
			}
		`},
		args: []string{"build", "a"},
	})

	require.Error(t, result.err)
	assert.Contains(t, result.err.Error(), "dependency cycle: a -> b -> a")
}

// TestErrorHandling_FailureIsIsolated validates that a failing dependency
// stops its dependents but not unrelated dependencies.
func TestErrorHandling_FailureIsIsolated(t *testing.T) {
	result := runIntegrationTest(t, scenario{
		files: map[string]string{"Buildfile.hcl": `
			target "broken" {
			  provides "broken" {
			    action "spawn" { command = ["false"] }
			  }
			}
			target "dependent" {
			  depends "broken" {}
			  provides "dependent" {
			    action "touch" { path = "dependent.txt" }
			  }
			}
			target "unrelated" {
			  provides "unrelated" {
			    action "touch" { path = "unrelated.txt" }
			  }
			}
			chain "default" { dependencies = ["dependent", "unrelated"] }
		`},
		status: func(argv []string) int {
			if argv[0] == "false" {
				return 1
			}
			return 0
		},
	})

	require.Error(t, result.err)
	assert.ErrorIs(t, result.err, build.ErrTransient)
	assert.False(t, result.ws.Exists("dependent.txt"))
	assert.True(t, result.ws.Exists("unrelated.txt"))
	testutil.AssertLogged(t, result.logs, "exited with status 1")
}
