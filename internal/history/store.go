package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
)

const (
	defaultReadingLimit = 50
	maxReadingLimit     = 500

	// timeFormat is fixed-width so stored timestamps sort lexically.
	timeFormat = "2006-01-02T15:04:05.000000Z"
)

// Toggle sources.
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
)

// ReadingRecord is one stored poll cycle.
type ReadingRecord struct {
	ID         int64                `json:"id"`
	Monitor    string               `json:"monitor"`
	Value      *thermal.Temperature `json:"value"`
	Hot        bool                 `json:"hot"`
	IntervalMS int64                `json:"interval_ms"`
	Error      string               `json:"error,omitempty"`
	RecordedAt time.Time            `json:"recorded_at"`
}

// ToggleEvent is one operator enable/disable request.
type ToggleEvent struct {
	ID         string    `json:"id"`
	Monitor    string    `json:"monitor"`
	Enabled    bool      `json:"enabled"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Store is the SQLite repository for readings and toggle events.
//
// Thread Safety:
//   - Safe for concurrent use; serialisation is left to database/sql.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a Store over an open, migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// RecordReading stores the outcome of one poll cycle. A failed read is
// stored with its error and, if one exists, the carried-over value.
//
// Returns:
//   - error: ErrInvalidMonitor, or the underlying database error
func (s *Store) RecordReading(ctx context.Context, r thermal.Reading) error {
	if r.Monitor == "" {
		return ErrInvalidMonitor
	}

	var value any
	if r.HasValue {
		value = int64(r.Value)
	}
	var errText any
	if r.Err != nil {
		errText = r.Err.Error()
	}
	at := r.Time
	if at.IsZero() {
		at = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO temperature_readings (monitor, value, hot, interval_ms, error, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Monitor,
		value,
		r.Hot,
		r.Interval.Milliseconds(),
		errText,
		formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	return nil
}

// Readings returns recent readings for a monitor, newest first.
//
// Parameters:
//   - limit: Maximum entries to return (default 50, max 500)
func (s *Store) Readings(ctx context.Context, monitor string, limit int) ([]ReadingRecord, error) {
	if monitor == "" {
		return nil, ErrInvalidMonitor
	}
	if limit <= 0 {
		limit = defaultReadingLimit
	}
	if limit > maxReadingLimit {
		limit = maxReadingLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, monitor, value, hot, interval_ms, error, recorded_at
		 FROM temperature_readings
		 WHERE monitor = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		monitor,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	records := make([]ReadingRecord, 0, limit)
	for rows.Next() {
		var (
			rec       ReadingRecord
			value     sql.NullInt64
			errText   sql.NullString
			recordedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.Monitor, &value, &rec.Hot, &rec.IntervalMS, &errText, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		if value.Valid {
			v := thermal.Temperature(value.Int64)
			rec.Value = &v
		}
		rec.Error = errText.String
		if rec.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return records, nil
}

// RecordToggle stores an operator toggle and returns the stored event.
func (s *Store) RecordToggle(ctx context.Context, monitor string, enabled bool, source string) (ToggleEvent, error) {
	if monitor == "" {
		return ToggleEvent{}, ErrInvalidMonitor
	}
	ev := ToggleEvent{
		ID:         uuid.NewString(),
		Monitor:    monitor,
		Enabled:    enabled,
		Source:     source,
		RecordedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO control_events (id, monitor, enabled, source, recorded_at) VALUES (?, ?, ?, ?, ?)",
		ev.ID, ev.Monitor, ev.Enabled, ev.Source, formatTime(ev.RecordedAt),
	)
	if err != nil {
		return ToggleEvent{}, fmt.Errorf("inserting control event: %w", err)
	}
	return ev, nil
}

// LastToggle returns the most recent toggle for a monitor.
//
// Returns:
//   - error: ErrNotFound if the monitor was never toggled
func (s *Store) LastToggle(ctx context.Context, monitor string) (ToggleEvent, error) {
	if monitor == "" {
		return ToggleEvent{}, ErrInvalidMonitor
	}

	var (
		ev         ToggleEvent
		recordedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, monitor, enabled, source, recorded_at
		 FROM control_events
		 WHERE monitor = ?
		 ORDER BY recorded_at DESC, rowid DESC
		 LIMIT 1`,
		monitor,
	).Scan(&ev.ID, &ev.Monitor, &ev.Enabled, &ev.Source, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ToggleEvent{}, fmt.Errorf("%w: no toggle for %s", ErrNotFound, monitor)
	}
	if err != nil {
		return ToggleEvent{}, fmt.Errorf("querying control events: %w", err)
	}
	if ev.RecordedAt, err = parseTime(recordedAt); err != nil {
		return ToggleEvent{}, err
	}
	return ev, nil
}

// PruneReadings deletes readings older than olderThan.
//
// Returns:
//   - int64: Number of rows deleted
func (s *Store) PruneReadings(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := formatTime(s.now().Add(-olderThan))
	result, err := s.db.ExecContext(ctx, "DELETE FROM temperature_readings WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting readings: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing recorded_at: %w", err)
	}
	return t, nil
}
