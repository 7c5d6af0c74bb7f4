package thermal

import "errors"

// Domain-specific errors for the thermal monitor.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConfig is returned by Start when a required property is missing
	// or unusable. The monitor never starts in that case.
	ErrConfig = errors.New("thermal: invalid configuration")

	// ErrSensor wraps sensor read failures. It is recovered inside the poll
	// cycle and only surfaces through Reading.Err and Snapshot.LastError.
	ErrSensor = errors.New("thermal: sensor read failed")

	// ErrScheduler is returned when a poll could not be armed or cancelled.
	ErrScheduler = errors.New("thermal: scheduler failure")

	// ErrNotStarted is returned by toggle operations before Start succeeds.
	ErrNotStarted = errors.New("thermal: monitor not started")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("thermal: monitor already started")

	// ErrStopped is returned by toggle operations after Stop.
	ErrStopped = errors.New("thermal: monitor stopped")

	// ErrInvalidOptions is returned by NewMonitor when a dependency is missing.
	ErrInvalidOptions = errors.New("thermal: invalid monitor options")

	// ErrDuplicateMonitor is returned when a registry already holds the name.
	ErrDuplicateMonitor = errors.New("thermal: duplicate monitor name")
)
