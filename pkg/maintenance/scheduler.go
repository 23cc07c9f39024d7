package maintenance

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-riskgraph/pkg/config"
	"github.com/dd0wney/cluso-riskgraph/pkg/logging"
)

// Scheduler runs a controller on a fixed interval.
type Scheduler struct {
	controller *Controller
	interval   time.Duration
	logger     logging.Logger
}

// NewScheduler creates a scheduler. A non-positive interval falls back to
// the controller's configured interval.
func NewScheduler(c *Controller, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = c.cfg.Maintenance.Interval
	}
	if interval <= 0 {
		interval = config.Default().Maintenance.Interval
	}
	return &Scheduler{
		controller: c,
		interval:   interval,
		logger:     c.logger.With(logging.Component("scheduler")),
	}
}

// Run executes one cycle immediately and then one per interval until ctx is
// done. A failed cycle is reported and the next one runs on schedule. Run
// returns the number of cycles executed.
func (s *Scheduler) Run(ctx context.Context) int {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Scheduler started", logging.Duration("interval", s.interval))

	cycles := 0
	for {
		if ctx.Err() != nil {
			s.logger.Info("Scheduler stopped", logging.Count(cycles))
			return cycles
		}

		// Failures are already logged and published by the controller
		s.controller.RunCycle(ctx)
		cycles++

		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped", logging.Count(cycles))
			return cycles
		case <-ticker.C:
		}
	}
}
