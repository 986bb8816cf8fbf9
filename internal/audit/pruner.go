package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Pruner removes events older than the retention window on a cron schedule.
type Pruner struct {
	store     Store
	retention time.Duration
	logger    *logrus.Logger
	cron      *cron.Cron
	now       func() time.Time
}

// NewPruner creates a pruner keeping retentionDays of history.
func NewPruner(store Store, retentionDays int, logger *logrus.Logger) *Pruner {
	return &Pruner{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger,
		now:       time.Now,
	}
}

// PruneOnce deletes every event older than the retention window.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.retention)
	n, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	p.logger.WithFields(logrus.Fields{
		"removed": n,
		"cutoff":  cutoff.UTC().Format(time.RFC3339),
	}).Info("Audit events pruned")
	return n, nil
}

// Start schedules PruneOnce with a standard cron spec or descriptor such as
// "@daily" or "0 3 * * *".
func (p *Pruner) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := p.PruneOnce(ctx); err != nil {
			p.logger.WithError(err).Warn("Audit prune failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}

	p.cron = c
	c.Start()
	p.logger.WithField("schedule", schedule).Info("Audit pruning scheduled")
	return nil
}

// Stop halts the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
}
