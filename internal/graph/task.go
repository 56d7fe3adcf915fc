package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/buildgrid/internal/files"
)

// Task is one execution of a node within a walk.
type Task struct {
	walker  *Walker
	node    Node
	parent  *Task
	visitor Visitor
	done    chan struct{}

	// Closed the first time the task suspends or finishes.
	settled    chan struct{}
	settleOnce sync.Once

	state   atomic.Int32
	dirty   atomic.Bool
	updated atomic.Bool

	// Written by the task's own goroutine before done is closed.
	err     error
	outputs files.List

	// Guarded by walker.mu.
	children []*Task
}

func newTask(w *Walker, parent *Task, node Node) *Task {
	return &Task{
		walker: w,
		node:   node,
		parent:  parent,
		done:    make(chan struct{}),
		settled: make(chan struct{}),
	}
}

func (t *Task) Node() Node { return t.node }
func (t *Task) Walker() *Walker { return t.walker }
func (t *Task) Visitor() Visitor { return t.visitor }
func (t *Task) State() State { return State(t.state.Load()) }
func (t *Task) Done() <-chan struct{} { return t.done }

// Parent returns the task that first invoked this node, or nil for a root.
func (t *Task) Parent() *Task { return t.parent }

func (t *Task) String() string { return t.node.String() }

// Wet reports whether the task's side effects should really happen.
func (t *Task) Wet() bool { return t.dirty.Load() }

// MarkUpdated records that the task performed a side effect.
func (t *Task) MarkUpdated() { t.updated.Store(true) }

// Updated reports whether the task, or for inheriting nodes any child,
// performed a side effect.
func (t *Task) Updated() bool { return t.updated.Load() }

// Wait blocks until the task has finished or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Suspend hands control back to whoever invoked the task. A task calls it
// before blocking on work that does not run on its own goroutine: an
// external process, a producer of its inputs or a child that has not
// finished.
func (t *Task) Suspend() {
	t.settleOnce.Do(func() { close(t.settled) })
}

// Settle blocks until the task has finished or suspended, or ctx is done.
func (t *Task) Settle(ctx context.Context) error {
	select {
	case <-t.settled:
		return nil
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Err returns the failure of a finished task.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Failed reports whether the task finished with an error.
func (t *Task) Failed() bool { return t.State() == Failed }

// Outputs returns the files the finished task is responsible for.
func (t *Task) Outputs() files.List {
	select {
	case <-t.done:
		return t.outputs
	default:
		return t.node.Outputs()
	}
}

// Children returns the tasks invoked by this task so far.
func (t *Task) Children() []*Task {
	t.walker.mu.Lock()
	defer t.walker.mu.Unlock()
	return append([]*Task(nil), t.children...)
}

// WaitForChildren blocks until every child invoked so far has finished and
// reports ErrChildrenFailed if any of them failed.
func (t *Task) WaitForChildren(ctx context.Context) error {
	var failed []string
	for _, child := range t.Children() {
		if !child.finished() {
			t.Suspend()
		}
		if err := child.Wait(ctx); err != nil {
			return err
		}
		if child.Failed() {
			failed = append(failed, child.String())
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrChildrenFailed, strings.Join(failed, ", "))
	}
	return nil
}

func (t *Task) visit(ctx context.Context) {
	w := t.walker
	defer w.exit(t)
	defer func() {
		if r := recover(); r != nil {
			t.err = fmt.Errorf("panic while visiting %s: %v", t.node, r)
		}
	}()

	t.state.Store(int32(Running))
	if err := w.waitForInputs(ctx, t); err != nil {
		t.err = err
		return
	}
	dirty, err := w.dirty(t)
	if err != nil {
		t.err = err
		return
	}
	t.dirty.Store(dirty)
	w.logger.Debug("Visiting node.", "node", t.node.String(), "dirty", dirty)

	err = t.visitor.Update(ctx)
	childErr := t.WaitForChildren(ctx)
	switch {
	case err != nil:
		t.err = err
	case childErr != nil:
		t.err = childErr
	}
}
