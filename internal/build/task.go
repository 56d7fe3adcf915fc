package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/environment"
	"github.com/specialistvlad/buildgrid/internal/graph"
	"github.com/specialistvlad/buildgrid/internal/metrics"
	"github.com/specialistvlad/buildgrid/internal/process"
	"github.com/specialistvlad/buildgrid/internal/rule"
	"github.com/specialistvlad/buildgrid/internal/rulebook"
)

// Group runs external commands with bounded concurrency.
type Group interface {
	Spawn(ctx context.Context, argv []string, opts process.Options) (int, error)
	Wait()
}

// Node is a graph node that knows how to apply itself to a build task.
type Node interface {
	graph.Node
	Name() string
	// Kind labels the node in metrics.
	Kind() string
	Apply(ctx context.Context, t *Task) error
}

// shared is the state shared by every task of a controller.
type shared struct {
	group   Group
	logger  *slog.Logger
	metrics *metrics.Metrics
	stdout  io.Writer
	stderr  io.Writer
}

func (rt *shared) bind(node Node, dispatcher *rulebook.Dispatcher, env *environment.Environment) graph.BindFunc {
	return func(gt *graph.Task) graph.Visitor {
		return &Task{
			Task:        gt,
			node:        node,
			rt:          rt,
			dispatcher:  dispatcher,
			environment: env,
		}
	}
}

// Task is the build context of one node. It implements rule.Scope.
type Task struct {
	*graph.Task
	node Node
	rt   *shared

	dispatcher  *rulebook.Dispatcher
	environment *environment.Environment

	shellOnce sync.Once
	shellEnv  map[string]string
	shellErr  error

	mu     sync.Mutex
	output *environment.Environment
}

var _ rule.Scope = (*Task)(nil)

// Update applies the task's node.
func (t *Task) Update(ctx context.Context) error {
	return t.node.Apply(ctx, t)
}

// Name is the node's name.
func (t *Task) Name() string { return t.node.Name() }

// Logger returns the logger tasks report to.
func (t *Task) Logger() *slog.Logger { return t.rt.logger }

// Environment returns the evaluated environment the task runs in.
func (t *Task) Environment() *environment.Environment { return t.environment }

// Dispatcher returns the rule dispatcher bound to the task, if any.
func (t *Task) Dispatcher() *rulebook.Dispatcher { return t.dispatcher }

// use binds the task to a rulebook and environment. Children invoked
// afterwards inherit them.
func (t *Task) use(env *environment.Environment) error {
	rb, err := rulebook.For(env)
	if err != nil {
		return err
	}
	t.dispatcher = rb.Bind(env.Values())
	t.environment = env
	return nil
}

// Output returns the environment the task published, or nil.
func (t *Task) Output() *environment.Environment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.output
}

// SetOutput publishes the environment the task produced.
func (t *Task) SetOutput(env *environment.Environment) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.output = env
}

// Lookup reads a value of the state the task's rulebook is bound to, which
// is its evaluated environment.
func (t *Task) Lookup(key string) (any, bool) {
	switch {
	case t.dispatcher != nil:
		return t.dispatcher.State(key)
	case t.environment != nil:
		return t.environment.Lookup(key)
	}
	return nil, false
}

// Values returns the bound state of the task, see Lookup.
func (t *Task) Values() map[string]any {
	switch {
	case t.dispatcher != nil:
		return t.dispatcher.States()
	case t.environment != nil:
		return t.environment.Values()
	}
	return map[string]any{}
}

// InvokeNode invokes a child node and returns once the child has finished
// or is suspended on an external process or another task. The task waits
// for all of its children before it finishes.
func (t *Task) InvokeNode(ctx context.Context, node Node) (*Task, error) {
	child, err := t.Walker().Invoke(ctx, t.Task, node, t.rt.bind(node, t.dispatcher, t.environment))
	return child.Visitor().(*Task), err
}

// Invoke runs the first rule of process applicable to args and returns the
// rule's primary output.
func (t *Task) Invoke(ctx context.Context, process string, args rule.Arguments) (any, error) {
	if t.dispatcher == nil {
		return nil, &rule.NoApplicableRuleError{Process: process, Arguments: args}
	}
	r, err := t.dispatcher.Resolve(process, args)
	if err != nil {
		return nil, err
	}
	return t.InvokeRule(ctx, r, args, nil)
}

// InvokeRule normalizes args for r, invokes a RuleNode for it and returns
// the rule's primary output. The callback, if any, runs after the rule's
// own action.
func (t *Task) InvokeRule(ctx context.Context, r *rule.Rule, args rule.Arguments, callback Callback) (any, error) {
	normalized, err := r.Normalize(args, t)
	if err != nil {
		return nil, err
	}
	logger := t.rt.logger
	logger.Debug(fmt.Sprintf("-> %s(%v)", r, normalized), "task", t.Name())

	child, err := t.InvokeNode(ctx, NewRuleNode(r, normalized, callback))
	if err != nil {
		return nil, err
	}
	if child.Failed() {
		return nil, fmt.Errorf("%w: %s: %w", graph.ErrChildrenFailed, child, child.Err())
	}

	result := r.Result(normalized)
	logger.Debug(fmt.Sprintf("<- %s(...) -> %v", r, result), "task", t.Name())
	return result, nil
}

func (t *Task) action(name string, argv ...string) {
	t.rt.logger.Info("Running action.", "task", t.Name(), ctxlog.Shell(argv, ""))
	t.rt.metrics.ObserveAction(name)
	t.MarkUpdated()
}

func (t *Task) shellEnvironment() (map[string]string, error) {
	t.shellOnce.Do(func() {
		if t.environment != nil {
			t.shellEnv, t.shellErr = t.environment.Export()
		}
	})
	return t.shellEnv, t.shellErr
}

// Spawn runs argv and fails with a CommandFailure on a non-zero status.
func (t *Task) Spawn(ctx context.Context, argv ...string) error {
	return t.spawn(ctx, argv, nil)
}

// Run is Spawn with the task's environment exported to the command.
func (t *Task) Run(ctx context.Context, argv ...string) error {
	if !t.Wet() {
		return nil
	}
	env, err := t.shellEnvironment()
	if err != nil {
		return fmt.Errorf("exporting environment for %s: %w", t.Name(), err)
	}
	return t.spawn(ctx, argv, env)
}

func (t *Task) spawn(ctx context.Context, argv []string, env map[string]string) error {
	if !t.Wet() {
		return nil
	}
	t.action("spawn", argv...)
	t.Suspend()

	start := time.Now()
	status, err := t.rt.group.Spawn(ctx, argv, process.Options{
		Env:    env,
		Stdout: t.rt.stdout,
		Stderr: t.rt.stderr,
	})
	if err != nil {
		return err
	}
	t.rt.metrics.ObserveCommand(status, time.Since(start))
	if status != 0 {
		return &CommandFailure{Task: t, Arguments: argv, Status: status}
	}
	return nil
}

// Touch creates path or updates its modification time.
func (t *Task) Touch(path string) error {
	if !t.Wet() {
		return nil
	}
	t.action("touch", "touch", path)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	now := time.Now()
	return os.Chtimes(path, now, now)
}

// Copy copies a file, keeping its permissions.
func (t *Task) Copy(src, dst string) error {
	if !t.Wet() {
		return nil
	}
	t.action("copy", "cp", src, dst)
	return copyFile(src, dst)
}

// Install copies a file into place, creating parent directories.
func (t *Task) Install(src, dst string) error {
	if !t.Wet() {
		return nil
	}
	t.action("install", "install", src, dst)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return copyFile(src, dst)
}

// Remove deletes path recursively.
func (t *Task) Remove(path string) error {
	if !t.Wet() {
		return nil
	}
	t.action("remove", "rm", "-rf", path)
	return os.RemoveAll(path)
}

// MakePath creates a directory and its parents unless it already exists.
func (t *Task) MakePath(path string) error {
	if !t.Wet() {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	t.action("mkpath", "mkpath", path)
	return os.MkdirAll(path, 0o755)
}

// Write replaces the contents of path with data.
func (t *Task) Write(path string, data []byte) error {
	if !t.Wet() {
		return nil
	}
	t.action("write", "write", path, fmt.Sprintf("%dbytes", len(data)))
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
