package integration_tests

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/buildgrid/internal/app"
	"github.com/specialistvlad/buildgrid/internal/cli"
	"github.com/specialistvlad/buildgrid/internal/metrics"
	"github.com/specialistvlad/buildgrid/internal/testutil"
)

// scenario describes one CLI invocation.
type scenario struct {
	// files are written into the workspace, which becomes the working
	// directory. Content is unindented.
	files map[string]string
	args  []string
	// status decides the exit status of spawned commands.
	status func(argv []string) int
	// delay is how long every spawned command takes.
	delay time.Duration
}

// result is what a scenario left behind.
type result struct {
	ws      *testutil.Workspace
	group   *testutil.FakeGroup
	metrics *metrics.Metrics
	out     string
	logs    *testutil.SafeBuffer
	err     error
}

// runIntegrationTest sets up the workspace of s and runs it once.
func runIntegrationTest(t *testing.T, s scenario) *result {
	t.Helper()
	files := make(map[string]string, len(s.files))
	for name, content := range s.files {
		files[name] = testutil.Unindent(content)
	}
	ws := testutil.NewWorkspace(t, files)
	t.Chdir(ws.Dir)
	return rerun(t, ws, s)
}

// rerun runs s again in an existing workspace with fresh collectors.
func rerun(t *testing.T, ws *testutil.Workspace, s scenario) *result {
	t.Helper()
	logs := &testutil.SafeBuffer{}
	t.Cleanup(func() { testutil.DumpLogs(t, logs) })

	r := &result{
		ws:      ws,
		group:   &testutil.FakeGroup{Status: s.status, Delay: s.delay},
		metrics: metrics.New(),
		logs:    logs,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	args := append([]string{"--log-level=debug", "--log-format=text"}, s.args...)
	r.err = cli.Execute(ctx, args, &out, logs,
		app.WithGroup(r.group),
		app.WithMetrics(r.metrics),
		app.WithCommandOutput(logs, logs),
	)
	r.out = out.String()
	return r
}

// command returns the recorded command with the given line.
func (r *result) command(t *testing.T, line string) testutil.Command {
	t.Helper()
	for _, c := range r.group.Commands() {
		if c.Line() == line {
			return c
		}
	}
	t.Fatalf("command %q was not run; got %v", line, r.group.Lines())
	return testutil.Command{}
}

// overlap reports whether two recorded commands ran at the same time.
func overlap(a, b testutil.Command) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}
