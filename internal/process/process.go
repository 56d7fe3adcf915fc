// Package process runs external commands on behalf of build tasks. A Group
// bounds how many commands may run at once and lets the caller wait for all
// of them to drain.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Options adjust how a single command is started.
type Options struct {
	// Env is added to the current process environment.
	Env map[string]string
	// Dir is the working directory. Empty means the current directory.
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// Group is a set of spawned processes with a concurrency limit. It is safe
// for concurrent use.
type Group struct {
	limit  int
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	active atomic.Int32
}

// NewGroup creates a group allowing limit processes to run at once. A limit
// below one defaults to the number of CPUs.
func NewGroup(limit int) *Group {
	if limit < 1 {
		limit = runtime.NumCPU()
	}
	return &Group{
		limit: limit,
		sem:   semaphore.NewWeighted(int64(limit)),
	}
}

// Limit returns the maximum number of concurrently running processes.
func (g *Group) Limit() int {
	return g.limit
}

// Spawn runs argv and blocks until it exits, returning its exit status. A
// non-zero status is not an error; errors are reserved for commands that
// could not be started. A single argument containing whitespace is run
// through the shell.
func (g *Group) Spawn(ctx context.Context, argv []string, opts Options) (int, error) {
	if len(argv) == 0 {
		return 0, errors.New("spawn: empty argument vector")
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return 0, fmt.Errorf("spawn %q: %w", argv[0], err)
	}
	g.wg.Add(1)
	defer g.wg.Done()
	defer g.sem.Release(1)
	g.active.Add(1)
	defer g.active.Add(-1)

	cmd := command(ctx, argv)
	cmd.Dir = opts.Dir
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if len(opts.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, fmt.Errorf("spawn %q: %w", argv[0], err)
	}
	return 0, nil
}

// Active returns the number of processes currently running.
func (g *Group) Active() int {
	return int(g.active.Load())
}

// Wait blocks until every process spawned so far has exited.
func (g *Group) Wait() {
	g.wg.Wait()
}

func command(ctx context.Context, argv []string) *exec.Cmd {
	if len(argv) == 1 && strings.ContainsAny(argv[0], " \t\n") {
		return exec.CommandContext(ctx, "/bin/sh", "-c", argv[0])
	}
	return exec.CommandContext(ctx, argv[0], argv[1:]...)
}
