package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
	"starknet_portfolio/internal/pkg/metrics"
	"starknet_portfolio/internal/pkg/utils"
)

const (
	entrypointGetReserves = "get_reserves"
	entrypointTotalSupply = "total_supply"
	entrypointTokenIndex  = "token_index"

	// lpShareDecimals is the fixed precision of liquidity-pool share tokens.
	lpShareDecimals uint8 = 18
)

// AssetPricerImpl resolves unit prices for every asset kind. Plain tokens go
// straight to the oracle; liquidity pairs and staked positions are derived
// from on-chain state and the prices of their underlying tokens.
type AssetPricerImpl struct {
	chain   port.ChainClient
	oracle  port.PriceOracle
	logger  port.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewAssetPricer creates an AssetPricerImpl.
func NewAssetPricer(chain port.ChainClient, oracle port.PriceOracle, l port.Logger, m *metrics.Metrics) *AssetPricerImpl {
	return &AssetPricerImpl{chain: chain, oracle: oracle, logger: l, metrics: m, now: time.Now}
}

// PriceAsset implements port.AssetPricer.
func (p *AssetPricerImpl) PriceAsset(ctx context.Context, asset entity.SupportedAsset) entity.PriceResult {
	var res entity.PriceResult
	switch asset.Kind {
	case entity.KindLiquidityPair:
		res = p.priceLiquidityPair(ctx, asset)
	case entity.KindStakedPosition:
		res = p.priceStakedPosition(ctx, asset)
	default:
		res = p.oracle.GetUnitPrice(ctx, asset.Address)
	}

	if !res.OK {
		p.logger.Warn("Failed to price asset", "asset", asset.Symbol, "address", asset.Address, "kind", asset.Kind, "error", res.Err)
	}
	p.metrics.ObservePrice(string(asset.Kind), res.OK)
	return res
}

// priceLiquidityPair values one pool share as
// (reserveA*priceA + reserveB*priceB) / totalSupply, all amounts decimal-scaled.
func (p *AssetPricerImpl) priceLiquidityPair(ctx context.Context, asset entity.SupportedAsset) entity.PriceResult {
	if asset.UnderlyingA == nil || asset.UnderlyingB == nil {
		return entity.UnknownPrice(asset.Address, fmt.Errorf("pair %s has unresolved underlying assets", asset.Address))
	}

	results, err := p.chain.CallBatch(ctx, []entity.CallRequest{
		{ContractAddress: asset.Address, Entrypoint: entrypointGetReserves},
		{ContractAddress: asset.Address, Entrypoint: entrypointTotalSupply},
	})
	if err != nil {
		return entity.UnknownPrice(asset.Address, err)
	}
	for _, r := range results {
		if r.Error != nil {
			return entity.UnknownPrice(asset.Address, r.Error)
		}
	}

	reserveA, err := utils.ReadUint256(results[0].Felts, 0)
	if err != nil {
		return entity.UnknownPrice(asset.Address, fmt.Errorf("%w: get_reserves: %v", entity.ErrChainReadFailure, err))
	}
	reserveB, err := utils.ReadUint256(results[0].Felts, 2)
	if err != nil {
		return entity.UnknownPrice(asset.Address, fmt.Errorf("%w: get_reserves: %v", entity.ErrChainReadFailure, err))
	}
	totalSupply, err := utils.ReadUint(results[1].Felts)
	if err != nil {
		return entity.UnknownPrice(asset.Address, fmt.Errorf("%w: total_supply: %v", entity.ErrChainReadFailure, err))
	}

	// An empty pool is worth nothing; this is a real zero, not a failure.
	if totalSupply.Sign() == 0 {
		return entity.KnownPrice(asset.Address, 0, p.now().UTC())
	}

	var priceA, priceB entity.PriceResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		priceA = p.oracle.GetUnitPrice(gctx, asset.UnderlyingA.Address)
		return nil
	})
	g.Go(func() error {
		priceB = p.oracle.GetUnitPrice(gctx, asset.UnderlyingB.Address)
		return nil
	})
	_ = g.Wait()

	if !priceA.OK {
		return entity.UnknownPrice(asset.Address, fmt.Errorf("underlying %s: %w", asset.UnderlyingA.Address, priceA.Err))
	}
	if !priceB.OK {
		return entity.UnknownPrice(asset.Address, fmt.Errorf("underlying %s: %w", asset.UnderlyingB.Address, priceB.Err))
	}

	poolValueUSD := utils.ScaledFloat(reserveA, asset.UnderlyingA.Decimals)*priceA.Quote.UnitPriceUSD +
		utils.ScaledFloat(reserveB, asset.UnderlyingB.Decimals)*priceB.Quote.UnitPriceUSD
	unitPrice := poolValueUSD / utils.ScaledFloat(totalSupply, lpShareDecimals)

	return entity.KnownPrice(asset.Address, unitPrice, earliest(priceA.Quote.AsOf, priceB.Quote.AsOf))
}

// priceStakedPosition values one share as underlyingPrice * index / 10^indexDecimals.
func (p *AssetPricerImpl) priceStakedPosition(ctx context.Context, asset entity.SupportedAsset) entity.PriceResult {
	if asset.Underlying == nil {
		return entity.UnknownPrice(asset.Address, fmt.Errorf("staked position %s has no underlying asset", asset.Address))
	}

	var underlying entity.PriceResult
	var index *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		underlying = p.oracle.GetUnitPrice(gctx, asset.Underlying.Address)
		return nil
	})
	g.Go(func() error {
		felts, err := p.chain.Call(gctx, asset.Address, entrypointTokenIndex)
		if err != nil {
			return err
		}
		index, err = utils.ReadUint(felts)
		if err != nil {
			return fmt.Errorf("%w: token_index: %v", entity.ErrChainReadFailure, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return entity.UnknownPrice(asset.Address, err)
	}
	if !underlying.OK {
		return entity.UnknownPrice(asset.Address, fmt.Errorf("underlying %s: %w", asset.Underlying.Address, underlying.Err))
	}

	conversion := utils.ScaledFloat(index, asset.IndexDecimals)
	return entity.KnownPrice(asset.Address, underlying.Quote.UnitPriceUSD*conversion, underlying.Quote.AsOf)
}

func earliest(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}
