package integration_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fanProject = `
	target "a" {
	  provides "a" {
	    action "spawn" { command = ["build", "A"] }
	  }
	}
	target "b" {
	  depends "a" {}
	  provides "b" {
	    action "spawn" { command = ["build", "B"] }
	  }
	}
	target "c" {
	  depends "a" {}
	  provides "c" {
	    action "spawn" { command = ["build", "C"] }
	  }
	}
	target "d" {
	  depends "a" {}
	  provides "d" {
	    action "spawn" { command = ["build", "D"] }
	  }
	}
	target "e" {
	  depends "b" {}
	  depends "c" {}
	  depends "d" {}
	  provides "e" {
	    action "spawn" { command = ["build", "E"] }
	  }
	}
`

// TestDagConcurrency_FanOutExecution validates that independent
// dependencies run concurrently once their shared dependency is done.
func TestDagConcurrency_FanOutExecution(t *testing.T) {
	// --- Arrange & Act ---
	result := runIntegrationTest(t, scenario{
		files: map[string]string{"Buildfile.hcl": fanProject},
		args:  []string{"build", "b", "c", "d"},
		delay: 100 * time.Millisecond,
	})

	// --- Assert ---
	require.NoError(t, result.err)
	require.Len(t, result.group.Commands(), 4)

	a := result.command(t, "build A")
	b := result.command(t, "build B")
	c := result.command(t, "build C")
	d := result.command(t, "build D")

	for _, dependent := range []string{"build B", "build C", "build D"} {
		assert.False(t, result.command(t, dependent).Start.Before(a.End), "%s started before A finished", dependent)
	}
	assert.True(t, overlap(b, c), "steps B and C did not run in parallel")
	assert.True(t, overlap(c, d), "steps C and D did not run in parallel")
}

// TestDagConcurrency_FanInSynchronization validates that a dependent waits
// for every one of its dependencies.
func TestDagConcurrency_FanInSynchronization(t *testing.T) {
	result := runIntegrationTest(t, scenario{
		files: map[string]string{"Buildfile.hcl": fanProject},
		args:  []string{"build", "e"},
		delay: 50 * time.Millisecond,
	})

	require.NoError(t, result.err)
	e := result.command(t, "build E")
	for _, line := range []string{"build B", "build C", "build D"} {
		assert.False(t, e.Start.Before(result.command(t, line).End), "E started before %s finished", line)
	}
}
