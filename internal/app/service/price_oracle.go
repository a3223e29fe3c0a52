package service

import (
	"context"
	"time"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
)

// PriceOracleImpl implements port.PriceOracle on top of a price feed.
type PriceOracleImpl struct {
	feed    port.PriceFeedClient
	timeout time.Duration
	logger  port.Logger
	now     func() time.Time
}

// NewPriceOracle creates a price oracle. Each lookup is bounded by timeout.
func NewPriceOracle(feed port.PriceFeedClient, timeout time.Duration, l port.Logger) *PriceOracleImpl {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PriceOracleImpl{feed: feed, timeout: timeout, logger: l, now: time.Now}
}

// GetUnitPrice returns the latest USD price of a plain token. It never
// returns a zero price for a failed lookup; failures come back with OK=false.
func (o *PriceOracleImpl) GetUnitPrice(ctx context.Context, assetAddress string) entity.PriceResult {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	value, asOf, err := o.feed.LatestPoint(callCtx, assetAddress)
	if err != nil {
		o.logger.Debug("Price unavailable", "asset", assetAddress, "error", err)
		return entity.UnknownPrice(assetAddress, err)
	}
	if asOf.IsZero() {
		asOf = o.now()
	}
	return entity.KnownPrice(assetAddress, value, asOf.UTC())
}
