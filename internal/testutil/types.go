package testutil

import "time"

// ExecutionRecord holds the start and end times of a recorded command.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}
