package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
	"starknet_portfolio/internal/pkg/metrics"
)

// PortfolioServiceImpl implements port.PortfolioService.
type PortfolioServiceImpl struct {
	catalog               port.AssetCatalog
	pricer                port.AssetPricer
	balances              port.BalanceReader
	logger                port.Logger
	metrics               *metrics.Metrics
	maxConcurrentRoutines int
	now                   func() time.Time
}

// NewPortfolioService creates a new instance of PortfolioServiceImpl.
func NewPortfolioService(
	catalog port.AssetCatalog,
	pricer port.AssetPricer,
	balances port.BalanceReader,
	l port.Logger,
	m *metrics.Metrics,
	maxRoutines int,
) *PortfolioServiceImpl {
	if maxRoutines <= 0 {
		maxRoutines = 1
	}
	return &PortfolioServiceImpl{
		catalog:               catalog,
		pricer:                pricer,
		balances:              balances,
		logger:                l,
		metrics:               m,
		maxConcurrentRoutines: maxRoutines,
		now:                   time.Now,
	}
}

// FetchPortfolio values walletAddress against the whole catalog. Prices for
// every asset are resolved first; balances are read once all prices are in.
// Per-asset failures end up as nil values in the snapshot; only a catalog
// failure is returned as an error.
func (s *PortfolioServiceImpl) FetchPortfolio(ctx context.Context, walletAddress string) (entity.PortfolioSnapshot, error) {
	start := time.Now()
	defer s.metrics.ObserveFetch(start)

	wallet := entity.NormalizeAddress(walletAddress)
	assets, err := s.catalog.ListSupportedAssets(ctx)
	if err != nil {
		s.logger.Error("Failed to load asset catalog", "error", err)
		if errors.Is(err, entity.ErrCatalogLoadFailure) {
			return entity.PortfolioSnapshot{}, err
		}
		return entity.PortfolioSnapshot{}, fmt.Errorf("%w: %v", entity.ErrCatalogLoadFailure, err)
	}
	s.logger.Debug("Fetching portfolio", "wallet", wallet, "assets", len(assets))

	prices := make([]entity.PriceResult, len(assets))
	var priceGroup errgroup.Group
	priceGroup.SetLimit(s.maxConcurrentRoutines)
	for i, asset := range assets {
		priceGroup.Go(func() error {
			prices[i] = s.pricer.PriceAsset(ctx, asset)
			return nil
		})
	}
	_ = priceGroup.Wait()

	holdings := make([]entity.AssetHolding, len(assets))
	var balanceGroup errgroup.Group
	balanceGroup.SetLimit(s.maxConcurrentRoutines)
	for i, asset := range assets {
		balanceGroup.Go(func() error {
			holdings[i] = s.balances.ReadHolding(ctx, asset, wallet, prices[i])
			return nil
		})
	}
	_ = balanceGroup.Wait()

	snapshot := entity.NewPortfolioSnapshot(wallet, holdings, s.now().UTC())
	if errs := snapshot.Errors(); len(errs) > 0 {
		s.logger.Info("Portfolio built with unvalued holdings", "wallet", wallet, "failed", len(errs), "total_usd", snapshot.TotalValueUSD)
	} else {
		s.logger.Debug("Portfolio built", "wallet", wallet, "total_usd", snapshot.TotalValueUSD)
	}
	return snapshot, nil
}
