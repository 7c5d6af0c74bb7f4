package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
	"github.com/nerrad567/gray-logic-thermal/migrations"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewStore(db.DB)
}

func TestStore_RecordAndListReadings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	readings := []thermal.Reading{
		{Monitor: "cpu", Value: 50, HasValue: true, Interval: 10 * time.Second, Time: base},
		{Monitor: "cpu", Value: 85, HasValue: true, Hot: true, Interval: 2 * time.Second, Time: base.Add(10 * time.Second)},
		{Monitor: "cpu", Value: 85, HasValue: true, Hot: true, Interval: 2 * time.Second, Err: errors.New("adc busy"), Time: base.Add(12 * time.Second)},
		{Monitor: "skin", Interval: 10 * time.Second, Err: errors.New("no data"), Time: base},
	}
	for _, r := range readings {
		if err := store.RecordReading(ctx, r); err != nil {
			t.Fatalf("RecordReading() error = %v", err)
		}
	}

	got, err := store.Readings(ctx, "cpu", 0)
	if err != nil {
		t.Fatalf("Readings() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	newest := got[0]
	if newest.Error != "adc busy" || !newest.Hot || newest.IntervalMS != 2000 {
		t.Errorf("newest = %+v", newest)
	}
	if newest.Value == nil || *newest.Value != 85 {
		t.Errorf("newest value = %v, want 85", newest.Value)
	}
	if !newest.RecordedAt.Equal(base.Add(12 * time.Second)) {
		t.Errorf("RecordedAt = %v", newest.RecordedAt)
	}
	if got[2].Hot || *got[2].Value != 50 {
		t.Errorf("oldest = %+v", got[2])
	}

	skin, err := store.Readings(ctx, "skin", 10)
	if err != nil {
		t.Fatalf("Readings(skin) error = %v", err)
	}
	if len(skin) != 1 || skin[0].Value != nil {
		t.Errorf("skin readings = %+v, want one without value", skin)
	}
}

func TestStore_ReadingsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r := thermal.Reading{Monitor: "cpu", Value: thermal.Temperature(40 + i), HasValue: true}
		if err := store.RecordReading(ctx, r); err != nil {
			t.Fatalf("RecordReading() error = %v", err)
		}
	}

	got, err := store.Readings(ctx, "cpu", 2)
	if err != nil {
		t.Fatalf("Readings() error = %v", err)
	}
	if len(got) != 2 || *got[0].Value != 44 {
		t.Errorf("Readings(limit=2) = %+v", got)
	}
}

func TestStore_InvalidMonitor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordReading(ctx, thermal.Reading{}); !errors.Is(err, ErrInvalidMonitor) {
		t.Errorf("RecordReading() error = %v, want ErrInvalidMonitor", err)
	}
	if _, err := store.Readings(ctx, "", 1); !errors.Is(err, ErrInvalidMonitor) {
		t.Errorf("Readings() error = %v, want ErrInvalidMonitor", err)
	}
	if _, err := store.RecordToggle(ctx, "", true, SourceHTTP); !errors.Is(err, ErrInvalidMonitor) {
		t.Errorf("RecordToggle() error = %v, want ErrInvalidMonitor", err)
	}
}

func TestStore_LastToggle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.LastToggle(ctx, "cpu"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LastToggle() error = %v, want ErrNotFound", err)
	}

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	first, err := store.RecordToggle(ctx, "cpu", false, SourceHTTP)
	if err != nil {
		t.Fatalf("RecordToggle() error = %v", err)
	}
	if first.ID == "" {
		t.Error("RecordToggle() returned empty id")
	}

	now = now.Add(time.Minute)
	if _, err := store.RecordToggle(ctx, "cpu", true, SourceMQTT); err != nil {
		t.Fatalf("RecordToggle() error = %v", err)
	}
	if _, err := store.RecordToggle(ctx, "skin", false, SourceMQTT); err != nil {
		t.Fatalf("RecordToggle() error = %v", err)
	}

	last, err := store.LastToggle(ctx, "cpu")
	if err != nil {
		t.Fatalf("LastToggle() error = %v", err)
	}
	if !last.Enabled || last.Source != SourceMQTT || !last.RecordedAt.Equal(now) {
		t.Errorf("LastToggle() = %+v", last)
	}
}

func TestStore_PruneReadings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for _, age := range []time.Duration{40 * day, 31 * day, 29 * day, time.Hour} {
		r := thermal.Reading{Monitor: "cpu", Value: 30, HasValue: true, Time: now.Add(-age)}
		if err := store.RecordReading(ctx, r); err != nil {
			t.Fatalf("RecordReading() error = %v", err)
		}
	}

	n, err := store.PruneReadings(ctx, 30*day)
	if err != nil {
		t.Fatalf("PruneReadings() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	if _, err := store.PruneReadings(ctx, 0); err == nil {
		t.Error("PruneReadings(0) error = nil")
	}
}

func TestRecorder_ObserveReading(t *testing.T) {
	store := newTestStore(t)
	rec := NewRecorder(store, nil)

	rec.ObserveReading(thermal.Reading{Monitor: "cpu", Value: 72, HasValue: true, Interval: 10 * time.Second})
	// Invalid readings are logged and dropped.
	rec.ObserveReading(thermal.Reading{})

	got, err := store.Readings(context.Background(), "cpu", 10)
	if err != nil {
		t.Fatalf("Readings() error = %v", err)
	}
	if len(got) != 1 || *got[0].Value != 72 {
		t.Errorf("Readings() = %+v", got)
	}
}

func TestNewPruner(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name    string
		cfg     config.HistoryConfig
		wantErr bool
		wantJob bool
	}{
		{name: "daily", cfg: config.HistoryConfig{RetentionDays: 30, RetentionSchedule: "@daily"}, wantJob: true},
		{name: "cron expression", cfg: config.HistoryConfig{RetentionDays: 7, RetentionSchedule: "15 3 * * *"}, wantJob: true},
		{name: "retention disabled", cfg: config.HistoryConfig{RetentionDays: 0, RetentionSchedule: "garbage"}},
		{name: "bad schedule", cfg: config.HistoryConfig{RetentionDays: 7, RetentionSchedule: "every tuesday"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPruner(store, tt.cfg, nil)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSchedule) {
					t.Errorf("NewPruner() error = %v, want ErrInvalidSchedule", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPruner() error = %v", err)
			}
			if (p.cron != nil) != tt.wantJob {
				t.Errorf("scheduled = %v, want %v", p.cron != nil, tt.wantJob)
			}
			p.Start()
			p.Stop()
		})
	}
}

func TestPruner_PruneNow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := thermal.Reading{Monitor: "cpu", Value: 30, HasValue: true, Time: time.Now().Add(-10 * day)}
	fresh := thermal.Reading{Monitor: "cpu", Value: 31, HasValue: true, Time: time.Now()}
	for _, r := range []thermal.Reading{old, fresh} {
		if err := store.RecordReading(ctx, r); err != nil {
			t.Fatalf("RecordReading() error = %v", err)
		}
	}

	p, err := NewPruner(store, config.HistoryConfig{RetentionDays: 7, RetentionSchedule: "@daily"}, nil)
	if err != nil {
		t.Fatalf("NewPruner() error = %v", err)
	}
	n, err := p.PruneNow(ctx)
	if err != nil {
		t.Fatalf("PruneNow() error = %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}
