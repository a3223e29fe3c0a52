package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
)

// DefaultDepositWindow is how long a deposit's stop loss and profit target apply.
const DefaultDepositWindow = 7 * 24 * time.Hour

// DepositServiceImpl prices deposits into agent wallets and reports how the
// wallets stand against them.
type DepositServiceImpl struct {
	ledger     port.DepositLedger
	oracle     port.PriceOracle
	portfolios port.PortfolioService
	logger     port.Logger
	window     time.Duration
	now        func() time.Time
}

// NewDepositService creates the service. window <= 0 means DefaultDepositWindow.
func NewDepositService(
	ledger port.DepositLedger,
	oracle port.PriceOracle,
	portfolios port.PortfolioService,
	l port.Logger,
	window time.Duration,
) *DepositServiceImpl {
	if window <= 0 {
		window = DefaultDepositWindow
	}
	return &DepositServiceImpl{
		ledger:     ledger,
		oracle:     oracle,
		portfolios: portfolios,
		logger:     l,
		window:     window,
		now:        time.Now,
	}
}

// RecordDeposit values req.Amount at the current oracle price and stores it.
func (s *DepositServiceImpl) RecordDeposit(ctx context.Context, req entity.DepositRequest) (entity.Deposit, error) {
	if err := req.Validate(); err != nil {
		return entity.Deposit{}, err
	}

	price := s.oracle.GetUnitPrice(ctx, req.AssetAddress)
	if !price.OK {
		return entity.Deposit{}, fmt.Errorf("%w: deposit asset %s: %v", entity.ErrPriceUnavailable, req.AssetAddress, price.Err)
	}

	now := s.now().UTC()
	d := entity.Deposit{
		ID:                uuid.NewString(),
		AgentWallet:       entity.NormalizeAddress(req.AgentWallet),
		UserWallet:        entity.NormalizeAddress(req.UserWallet),
		AssetAddress:      entity.NormalizeAddress(req.AssetAddress),
		Amount:            req.Amount,
		AmountUSD:         req.Amount.InexactFloat64() * price.Quote.UnitPriceUSD,
		StopLossUSD:       req.StopLossUSD,
		ExpectedProfitUSD: req.ExpectedProfitUSD,
		Deadline:          now.Add(s.window),
		CreatedAt:         now,
	}
	if err := s.ledger.RecordDeposit(ctx, d); err != nil {
		return entity.Deposit{}, err
	}

	s.logger.Info("Deposit recorded",
		"id", d.ID,
		"agent_wallet", d.AgentWallet,
		"amount_usd", d.AmountUSD,
	)
	return d, nil
}

// AgentTotal loads deposits and values the wallet concurrently.
func (s *DepositServiceImpl) AgentTotal(ctx context.Context, agentWallet string) (entity.AgentTotal, error) {
	var (
		deposits []entity.Deposit
		snapshot entity.PortfolioSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		deposits, err = s.ledger.ListDeposits(gctx, agentWallet)
		return err
	})
	g.Go(func() error {
		var err error
		snapshot, err = s.portfolios.FetchPortfolio(gctx, agentWallet)
		return err
	})
	if err := g.Wait(); err != nil {
		return entity.AgentTotal{}, err
	}

	total := entity.NewAgentTotal(snapshot.WalletAddress, deposits, snapshot)
	if total.StopLossBreached {
		s.logger.Warn("Agent wallet at or below stop loss",
			"wallet", total.WalletAddress,
			"holdings_usd", total.HoldingsUSD,
			"stop_loss_usd", total.StopLossUSD,
		)
	}
	return total, nil
}
