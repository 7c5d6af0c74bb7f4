package sensor

import "errors"

var (
	// ErrNoData is returned by the MQTT sensor before any value has arrived.
	ErrNoData = errors.New("sensor: no data received yet")

	// ErrStale is returned when the cached MQTT value is older than its max age.
	ErrStale = errors.New("sensor: reading is stale")

	// ErrParse is returned for payloads or files that do not hold a number.
	ErrParse = errors.New("sensor: cannot parse temperature")

	// ErrUnsupported is returned by New for unknown sensor types.
	ErrUnsupported = errors.New("sensor: unsupported sensor type")
)
