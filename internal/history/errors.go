package history

import "errors"

var (
	// ErrNotFound is returned when a monitor has no recorded toggle.
	ErrNotFound = errors.New("history: not found")

	// ErrInvalidMonitor is returned when a monitor name is empty.
	ErrInvalidMonitor = errors.New("history: monitor name is required")

	// ErrInvalidSchedule is returned for an unparsable retention schedule.
	ErrInvalidSchedule = errors.New("history: invalid retention schedule")
)
