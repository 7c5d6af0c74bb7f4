package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-thermal/internal/history"
)

// eventTimeout bounds a single toggle event write or lookup.
const eventTimeout = 2 * time.Second

// SourceRestore marks changes applied by Restore at startup.
const SourceRestore = "restore"

// Change describes an accepted toggle.
type Change struct {
	Monitor string
	Enabled bool
	Source  string
	Status  string
	Time    time.Time
}

// Toggler is the part of thermal.Monitor the control drives.
type Toggler interface {
	Name() string
	Status() string
	SetEnabled(enable bool) error
}

// EventStore persists toggle requests. *history.Store satisfies it.
type EventStore interface {
	RecordToggle(ctx context.Context, monitor string, enabled bool, source string) (history.ToggleEvent, error)
	LastToggle(ctx context.Context, monitor string) (history.ToggleEvent, error)
}

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

// Surface is the show/store control for a single monitor.
//
// Thread Safety:
//   - Safe for concurrent use. Concurrent stores are applied one at a time
//     by the monitor.
type Surface struct {
	target Toggler
	events EventStore
	logger Logger

	listenerMu sync.RWMutex
	listeners  []func(Change)
}

// NewSurface creates a control for target. events and logger may be nil.
func NewSurface(target Toggler, events EventStore, logger Logger) *Surface {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Surface{target: target, events: events, logger: logger}
}

// Name returns the controlled monitor's name.
func (s *Surface) Name() string {
	return s.target.Name()
}

// Show returns the status line.
func (s *Surface) Show() string {
	return s.target.Status()
}

// OnChange registers fn to be called after every accepted store and after
// a restore that disabled the monitor.
func (s *Surface) OnChange(fn func(Change)) {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenerMu.Unlock()
}

// Store applies a control write.
//
// Parameters:
//   - ctx: Bounds the toggle event write
//   - buf: Raw written bytes, see ParseToggle
//   - source: Origin recorded with the event (history.SourceHTTP, ...)
//
// Returns:
//   - int: len(buf) on success
//   - error: ErrInvalidInput (state unchanged), or the monitor's error
//     (thermal.ErrScheduler and friends)
func (s *Surface) Store(ctx context.Context, buf []byte, source string) (int, error) {
	enable, err := ParseToggle(buf)
	if err != nil {
		return 0, err
	}

	if err := s.target.SetEnabled(enable); err != nil {
		s.logger.Error("thermal control write failed",
			"monitor", s.Name(),
			"enable", enable,
			"source", source,
			"error", err,
		)
		return 0, err
	}

	s.recordEvent(ctx, enable, source)
	s.notify(enable, source)
	return len(buf), nil
}

// Restore re-applies the last recorded toggle. Only a recorded disable has
// an effect, since a started monitor is already enabled.
func (s *Surface) Restore(ctx context.Context) error {
	if s.events == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	last, err := s.events.LastToggle(ctx, s.Name())
	if errors.Is(err, history.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if last.Enabled {
		return nil
	}

	if err := s.target.SetEnabled(false); err != nil {
		return err
	}
	s.logger.Info("restored disabled state",
		"monitor", s.Name(),
		"source", last.Source,
		"since", last.RecordedAt,
	)
	s.notify(false, SourceRestore)
	return nil
}

func (s *Surface) recordEvent(ctx context.Context, enable bool, source string) {
	if s.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	if _, err := s.events.RecordToggle(ctx, s.Name(), enable, source); err != nil {
		s.logger.Warn("failed to record toggle event", "monitor", s.Name(), "error", err)
	}
}

func (s *Surface) notify(enabled bool, source string) {
	change := Change{
		Monitor: s.Name(),
		Enabled: enabled,
		Source:  source,
		Status:  s.Show(),
		Time:    time.Now(),
	}

	s.listenerMu.RLock()
	listeners := append([]func(Change){}, s.listeners...)
	s.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(change)
	}
}
