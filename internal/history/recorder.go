package history

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
)

// writeTimeout bounds a single insert made from the poll goroutine.
const writeTimeout = 2 * time.Second

// Logger defines the logging interface used by this package.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder stores every reading it observes.
type Recorder struct {
	store  *Store
	logger Logger
}

// NewRecorder creates a Recorder writing to store. A nil logger discards.
func NewRecorder(store *Store, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{store: store, logger: logger}
}

// ObserveReading implements thermal.Observer. Write failures are logged,
// never propagated into the poll loop.
func (r *Recorder) ObserveReading(reading thermal.Reading) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.store.RecordReading(ctx, reading); err != nil {
		r.logger.Warn("failed to record thermal reading", "monitor", reading.Monitor, "error", err)
	}
}
