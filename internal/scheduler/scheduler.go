// Package scheduler runs the periodic overdue sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/credit-engine/internal/config"
	"github.com/segyhp/credit-engine/internal/service"
)

const sweepTimeout = 30 * time.Minute

type Sweeper interface {
	SweepOverdue(ctx context.Context) (service.SweepResult, error)
}

// New returns a cron with the overdue sweep scheduled per SCHEDULER_OVERDUE_CRON
// (six fields, seconds first) in the business timezone. A run still in
// progress makes the next one skip.
func New(sweeper Sweeper, cfg *config.Config, log *logrus.Logger) (*cron.Cron, error) {
	cronLog := cron.PrintfLogger(log)
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.GetLocation()),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	_, err := c.AddFunc(cfg.Scheduler.OverdueCron, func() {
		RunSweep(context.Background(), sweeper, log)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule overdue sweep %q: %w", cfg.Scheduler.OverdueCron, err)
	}

	return c, nil
}

// RunSweep runs one overdue sweep and logs its outcome.
func RunSweep(ctx context.Context, sweeper Sweeper, log *logrus.Logger) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	log.Info("running overdue sweep")
	start := time.Now()

	result, err := sweeper.SweepOverdue(ctx)
	entry := log.WithFields(logrus.Fields{
		"marked":       result.Marked,
		"recalculated": result.Recalculated,
		"failed":       result.Failed,
		"duration_ms":  time.Since(start).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("overdue sweep failed")
		return
	}
	if result.Failed > 0 {
		entry.Warn("overdue sweep finished with failures")
	}
}
