package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/specialistvlad/buildgrid/internal/process"
)

// FakeGroup records spawned commands instead of running them. It satisfies
// the process group interface of the build package.
type FakeGroup struct {
	// Status decides the exit status of a command. Nil means success.
	Status func(argv []string) int
	// Delay is how long each command pretends to run.
	Delay time.Duration

	mu       sync.Mutex
	commands []Command
	wg       sync.WaitGroup
}

// Command is one recorded spawn.
type Command struct {
	Argv []string
	Env  map[string]string
	ExecutionRecord
}

// Line joins the argument vector with spaces.
func (c Command) Line() string { return strings.Join(c.Argv, " ") }

// Spawn records argv and returns the configured status.
func (g *FakeGroup) Spawn(ctx context.Context, argv []string, opts process.Options) (int, error) {
	g.wg.Add(1)
	defer g.wg.Done()

	start := time.Now()
	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	status := 0
	if g.Status != nil {
		status = g.Status(argv)
	}

	g.mu.Lock()
	g.commands = append(g.commands, Command{
		Argv:            append([]string(nil), argv...),
		Env:             opts.Env,
		ExecutionRecord: ExecutionRecord{Start: start, End: time.Now()},
	})
	g.mu.Unlock()
	return status, nil
}

// Wait blocks until every in-flight Spawn returned.
func (g *FakeGroup) Wait() {
	g.wg.Wait()
}

// Commands returns the recorded commands in completion order.
func (g *FakeGroup) Commands() []Command {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Command(nil), g.commands...)
}

// Lines returns the recorded command lines in completion order.
func (g *FakeGroup) Lines() []string {
	var lines []string
	for _, c := range g.Commands() {
		lines = append(lines, c.Line())
	}
	return lines
}
