package scheduler

import (
	"context"
	"time"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/app/service"
)

// Sweeper runs one fleet-wide rebalance pass.
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepReport, error)
}

// RebalanceJob runs the rebalance sweep with a bounded duration.
type RebalanceJob struct {
	base    context.Context
	sweeper Sweeper
	timeout time.Duration
	log     port.Logger
}

// NewRebalanceJob binds the sweep to base so shutting the process down
// cancels a sweep in flight. timeout <= 0 leaves the sweep unbounded.
func NewRebalanceJob(base context.Context, sweeper Sweeper, timeout time.Duration, l port.Logger) *RebalanceJob {
	return &RebalanceJob{base: base, sweeper: sweeper, timeout: timeout, log: l}
}

func (j *RebalanceJob) Name() string {
	return "rebalance_sweep"
}

func (j *RebalanceJob) Run() error {
	ctx := j.base
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	report, err := j.sweeper.Sweep(ctx)
	if err != nil {
		return err
	}
	j.log.Info("Rebalance sweep finished",
		"wallets", report.Wallets,
		"actions", report.Actions,
		"failures", report.Failures,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return nil
}
