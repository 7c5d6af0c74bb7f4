package history

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/config"
)

const (
	day          = 24 * time.Hour
	pruneTimeout = time.Minute
)

// Pruner deletes old readings on a cron schedule.
type Pruner struct {
	store     *Store
	retention time.Duration
	cron      *cron.Cron
	logger    Logger
}

// NewPruner creates a Pruner from the history section of config.yaml.
// A zero retention_days yields a Pruner whose Start and Stop do nothing.
//
// Returns:
//   - error: ErrInvalidSchedule if retention_schedule does not parse
func NewPruner(store *Store, cfg config.HistoryConfig, logger Logger) (*Pruner, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	p := &Pruner{
		store:     store,
		retention: time.Duration(cfg.RetentionDays) * day,
		logger:    logger,
	}
	if p.retention <= 0 {
		return p, nil
	}

	p.cron = cron.New()
	if _, err := p.cron.AddFunc(cfg.RetentionSchedule, p.run); err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, cfg.RetentionSchedule, err)
	}
	return p, nil
}

// Start begins the schedule in the background.
func (p *Pruner) Start() {
	if p.cron == nil {
		return
	}
	p.cron.Start()
	p.logger.Info("history retention scheduled", "retention", p.retention)
}

// Stop halts the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
}

// PruneNow deletes readings older than the retention period.
func (p *Pruner) PruneNow(ctx context.Context) (int64, error) {
	if p.retention <= 0 {
		return 0, nil
	}
	return p.store.PruneReadings(ctx, p.retention)
}

func (p *Pruner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	n, err := p.PruneNow(ctx)
	if err != nil {
		p.logger.Error("history prune failed", "error", err)
		return
	}
	p.logger.Info("history pruned", "deleted", n)
}
