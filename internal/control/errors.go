package control

import "errors"

var (
	// ErrInvalidInput is returned for writes that are not a decimal 0-255.
	ErrInvalidInput = errors.New("control: invalid input")

	// ErrUnknownMonitor is returned when a command names no registered surface.
	ErrUnknownMonitor = errors.New("control: unknown monitor")
)
