package graph

import (
	"context"
	"errors"

	"github.com/specialistvlad/buildgrid/internal/files"
)

var (
	// ErrDependenciesFailed is returned by tasks whose inputs or dependencies failed.
	ErrDependenciesFailed = errors.New("dependencies failed")
	// ErrChildrenFailed is returned by tasks whose invoked children failed.
	ErrChildrenFailed = errors.New("children failed")
	// ErrCycle is returned when a task would wait on itself.
	ErrCycle = errors.New("dependency cycle")
)

// Node is an immutable unit of buildable work.
type Node interface {
	// Key identifies the node. Nodes with equal keys are interchangeable.
	Key() string
	Inputs() files.List
	Outputs() files.List
	// Inherit reports whether the node's outputs are those of its children.
	Inherit() bool
	String() string
}

// Visitor carries out the work of one task.
type Visitor interface {
	Update(ctx context.Context) error
}

// BindFunc creates the visitor for a newly created task.
type BindFunc func(t *Task) Visitor

// State is the execution state of a task.
type State int32

const (
	Pending State = iota
	Running
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
