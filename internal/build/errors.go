package build

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrTransient matches failures that might succeed if retried.
	ErrTransient = errors.New("transient failure")
	// ErrBuildFailed is returned by Controller.Run when any task failed.
	ErrBuildFailed = errors.New("build failed")
)

// CommandFailure reports an external command that exited non-zero.
type CommandFailure struct {
	Task      *Task
	Arguments []string
	Status    int
}

func (e *CommandFailure) Error() string {
	return fmt.Sprintf("%q exited with status %d", filepath.Base(e.Executable()), e.Status)
}

// Is makes every CommandFailure match ErrTransient.
func (e *CommandFailure) Is(target error) bool {
	return target == ErrTransient
}

// Executable returns the program that was run.
func (e *CommandFailure) Executable() string {
	if len(e.Arguments) == 0 {
		return ""
	}
	if fields := strings.Fields(e.Arguments[0]); len(fields) > 0 {
		return fields[0]
	}
	return e.Arguments[0]
}
