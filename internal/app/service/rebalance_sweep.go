package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
	"starknet_portfolio/internal/pkg/metrics"
)

// SweepReport summarizes one pass over every stored policy.
type SweepReport struct {
	Wallets    int       `json:"wallets"`
	Actions    int       `json:"actions"`
	Failures   int       `json:"failures"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// RebalanceSweeper values and rebalances every wallet that has a policy.
type RebalanceSweeper struct {
	policies   port.PolicyStore
	portfolios port.PortfolioService
	planner    port.RebalancePlanner
	executor   port.ActionExecutor
	ledger     port.ActionLedger
	logger     port.Logger
	metrics    *metrics.Metrics
	maxWallets int
}

// NewRebalanceSweeper creates a sweeper. ledger may be nil.
func NewRebalanceSweeper(
	policies port.PolicyStore,
	portfolios port.PortfolioService,
	planner port.RebalancePlanner,
	executor port.ActionExecutor,
	ledger port.ActionLedger,
	l port.Logger,
	m *metrics.Metrics,
	maxConcurrentWallets int,
) *RebalanceSweeper {
	if maxConcurrentWallets <= 0 {
		maxConcurrentWallets = 1
	}
	return &RebalanceSweeper{
		policies:   policies,
		portfolios: portfolios,
		planner:    planner,
		executor:   executor,
		ledger:     ledger,
		logger:     l,
		metrics:    m,
		maxWallets: maxConcurrentWallets,
	}
}

// Sweep runs one rebalance pass. Wallets are processed independently; a
// failing wallet is logged and counted but never stops the others. The
// returned error is non-nil only when the policies cannot be listed.
func (s *RebalanceSweeper) Sweep(ctx context.Context) (SweepReport, error) {
	report := SweepReport{StartedAt: time.Now().UTC()}

	policies, err := s.policies.ListPolicies(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list allocation policies: %w", err)
	}
	s.logger.Info("Starting rebalance sweep", "wallets", len(policies))

	var actions, failures atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.maxWallets)
	for _, policy := range policies {
		g.Go(func() error {
			n, err := s.RebalanceWallet(ctx, policy)
			actions.Add(int64(n))
			s.metrics.ObserveSweepWallet(err)
			if err != nil {
				failures.Add(1)
				s.logger.Error("Rebalance failed for wallet", "wallet", policy.WalletAddress, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Wallets = len(policies)
	report.Actions = int(actions.Load())
	report.Failures = int(failures.Load())
	report.FinishedAt = time.Now().UTC()
	s.logger.Info("Rebalance sweep finished",
		"wallets", report.Wallets, "actions", report.Actions, "failures", report.Failures,
		"duration", report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

// RebalanceWallet plans against a fresh snapshot and dispatches the actions
// in order. Dispatch stops at the first executor error so no Buy runs before
// the Sells ahead of it went through. It returns the number dispatched.
func (s *RebalanceSweeper) RebalanceWallet(ctx context.Context, policy entity.AllocationPolicy) (int, error) {
	log := s.logger.With("wallet", policy.WalletAddress)
	snapshot, err := s.portfolios.FetchPortfolio(ctx, policy.WalletAddress)
	if err != nil {
		return 0, fmt.Errorf("fetch portfolio: %w", err)
	}

	planned, err := s.planner.PlanRebalance(policy, snapshot)
	if err != nil {
		return 0, fmt.Errorf("plan rebalance: %w", err)
	}
	if len(planned) == 0 {
		log.Debug("Wallet within tolerance", "total_usd", snapshot.TotalValueUSD)
		return 0, nil
	}

	for i, action := range planned {
		if err := s.executor.Execute(ctx, action); err != nil {
			return i, fmt.Errorf("execute %s %s: %w", action.Direction, action.AssetCategory, err)
		}
		s.metrics.ObserveAction(string(action.Direction), string(action.AssetCategory))
		log.Debug("Action dispatched", "id", action.ID, "direction", action.Direction, "category", action.AssetCategory)
		if s.ledger != nil {
			if err := s.ledger.RecordAction(ctx, action); err != nil {
				log.Warn("Failed to record action", "id", action.ID, "error", err)
			}
		}
	}
	return len(planned), nil
}
