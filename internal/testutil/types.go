package testutil

import "time"

// ExecutionRecord holds the start and end times for a single field's generation.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}
