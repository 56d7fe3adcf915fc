package graph

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/specialistvlad/buildgrid/internal/files"
)

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithLogger sets the logger for walk records.
func WithLogger(logger *slog.Logger) WalkerOption {
	return func(w *Walker) { w.logger = logger }
}

// WithExitHook registers fn to run as each task finishes.
func WithExitHook(fn func(*Task)) WalkerOption {
	return func(w *Walker) { w.onExit = fn }
}

// Walker creates and runs tasks for invoked nodes.
type Walker struct {
	logger *slog.Logger
	onExit func(*Task)

	mu        sync.Mutex
	tasks     map[string]*Task
	producers map[string]*Task
	written   map[string]bool
	waits     map[*Task][]*Task
	failures  []*Task
}

// NewWalker creates a walker ready for its first walk.
func NewWalker(opts ...WalkerOption) *Walker {
	w := &Walker{logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	w.Reset()
	return w
}

// Reset forgets every task and failure, starting a new walk. Call it only
// when no task is running.
func (w *Walker) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tasks = make(map[string]*Task)
	w.producers = make(map[string]*Task)
	w.written = make(map[string]bool)
	w.waits = make(map[*Task][]*Task)
	w.failures = nil
}

// Failed reports whether any task of the current walk failed.
func (w *Walker) Failed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.failures) > 0
}

// Failures returns the failed tasks of the current walk in failure order.
func (w *Walker) Failures() []*Task {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Task(nil), w.failures...)
}

// Len returns the number of distinct nodes visited in the current walk.
func (w *Walker) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tasks)
}

// Lookup returns the task of the current walk invoked for node's key.
func (w *Walker) Lookup(node Node) (*Task, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.tasks[node.Key()]
	return t, ok
}

// Tasks returns every task of the current walk, ordered by key.
func (w *Walker) Tasks() []*Task {
	w.mu.Lock()
	defer w.mu.Unlock()
	tasks := make([]*Task, 0, len(w.tasks))
	for _, key := range slices.Sorted(maps.Keys(w.tasks)) {
		tasks = append(tasks, w.tasks[key])
	}
	return tasks
}

// Call invokes node on behalf of parent, which is nil for a root. If a node
// with the same key was already invoked in this walk, its task is returned.
// Otherwise a new task is created, its outputs are registered as pending,
// and it starts running in its own goroutine. Call never blocks on the task;
// Invoke does.
func (w *Walker) Call(ctx context.Context, parent *Task, node Node, bind BindFunc) *Task {
	key := node.Key()

	w.mu.Lock()
	existing, ok := w.tasks[key]
	w.mu.Unlock()
	if ok {
		return w.attach(ctx, parent, existing, bind)
	}

	t := newTask(w, parent, node)
	t.visitor = bind(t)

	w.mu.Lock()
	if existing, ok := w.tasks[key]; ok {
		w.mu.Unlock()
		return w.attach(ctx, parent, existing, bind)
	}
	w.tasks[key] = t
	if !node.Inherit() {
		for _, path := range node.Outputs().Paths() {
			if other := w.producers[path]; other != nil {
				w.logger.Warn("Output produced by more than one node.", "path", path, "node", node.String(), "previous", other.String())
			}
			w.producers[path] = t
		}
	}
	if parent != nil {
		parent.children = append(parent.children, t)
	}
	w.mu.Unlock()

	go t.visit(ctx)
	return t
}

// Invoke is Call followed by Settle: it returns once the child has finished
// or suspended. Side effects the child performs before suspending are
// visible to the caller when Invoke returns.
func (w *Walker) Invoke(ctx context.Context, parent *Task, node Node, bind BindFunc) (*Task, error) {
	t := w.Call(ctx, parent, node, bind)
	return t, t.Settle(ctx)
}

// attach makes an already running task a child of parent, unless parent is
// something it waits on.
func (w *Walker) attach(ctx context.Context, parent, existing *Task, bind BindFunc) *Task {
	if parent == nil {
		return existing
	}
	w.mu.Lock()
	if w.reaches(existing, parent) {
		w.mu.Unlock()
		return w.reject(parent, existing.node, bind, fmt.Errorf("%w: %s invoked from %s", ErrCycle, existing.node, parent.node))
	}
	parent.children = append(parent.children, existing)
	w.mu.Unlock()
	return existing
}

// reject creates a task that failed before it started. It is not memoized.
func (w *Walker) reject(parent *Task, node Node, bind BindFunc, err error) *Task {
	t := newTask(w, parent, node)
	t.visitor = bind(t)
	t.err = err
	w.mu.Lock()
	parent.children = append(parent.children, t)
	w.mu.Unlock()
	w.exit(t)
	return t
}

// reaches reports whether from waits, directly or transitively, on to.
// The caller must hold w.mu.
func (w *Walker) reaches(from, to *Task) bool {
	seen := map[*Task]bool{}
	stack := []*Task{from}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if t == to {
			return true
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		stack = append(stack, t.children...)
		stack = append(stack, w.waits[t]...)
	}
	return false
}

// waitForInputs blocks until every pending producer of t's inputs finished.
func (w *Walker) waitForInputs(ctx context.Context, t *Task) error {
	for _, path := range t.node.Inputs().Paths() {
		w.mu.Lock()
		producer := w.producers[path]
		if producer == nil || producer == t {
			w.mu.Unlock()
			continue
		}
		if w.reaches(producer, t) {
			w.mu.Unlock()
			return fmt.Errorf("%w: %s needs %s from %s", ErrCycle, t.node, path, producer.node)
		}
		w.waits[t] = append(w.waits[t], producer)
		w.mu.Unlock()

		if !producer.finished() {
			t.Suspend()
		}
		if err := producer.Wait(ctx); err != nil {
			return err
		}
		if producer.Failed() {
			return fmt.Errorf("%w: %s did not produce %s", ErrDependenciesFailed, producer.node, path)
		}
	}
	return nil
}

// dirty decides whether t must perform its side effects.
func (w *Walker) dirty(t *Task) (bool, error) {
	if t.node.Inherit() {
		return true, nil
	}
	inputs := t.node.Inputs()
	stale, err := files.Stale(inputs, t.node.Outputs())
	if err != nil || stale {
		return stale, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, path := range inputs.Paths() {
		if w.written[path] {
			return true, nil
		}
	}
	return false, nil
}

// exit records the outcome of t and releases its waiters.
func (w *Walker) exit(t *Task) {
	if t.err != nil {
		t.state.Store(int32(Failed))
	} else {
		t.state.Store(int32(Complete))
	}

	w.mu.Lock()
	if t.node.Inherit() {
		var outputs []files.List
		for _, child := range t.children {
			outputs = append(outputs, child.Outputs())
			if child.Updated() {
				t.updated.Store(true)
			}
		}
		t.outputs = files.Union(outputs...)
	} else {
		t.outputs = t.node.Outputs()
		if t.err == nil && t.Wet() {
			t.updated.Store(true)
			for _, path := range t.outputs.Paths() {
				w.written[path] = true
			}
		}
	}
	if t.err != nil {
		w.failures = append(w.failures, t)
	}
	delete(w.waits, t)
	w.mu.Unlock()

	if t.err != nil {
		w.logger.Error("Task failed.", "node", t.node.String(), "error", t.err)
	}
	if w.onExit != nil {
		w.onExit(t)
	}
	t.Suspend()
	close(t.done)
}
