package service

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"starknet_portfolio/internal/domain/entity"
	"starknet_portfolio/internal/pkg/logger"
	"starknet_portfolio/internal/pkg/utils"
)

var pairToken = entity.SupportedAsset{Address: "0x0bbb", Symbol: "BBB", Decimals: 18, Kind: entity.KindPlain}

func lpAsset() entity.SupportedAsset {
	a, b := usdc, pairToken
	return entity.SupportedAsset{
		Address: pairAddr, Name: "USDC/BBB LP", Symbol: "USDC-BBB", Decimals: 18,
		Kind: entity.KindLiquidityPair, UnderlyingA: &a, UnderlyingB: &b,
	}
}

func stakedAsset() entity.SupportedAsset {
	u := strk
	return entity.SupportedAsset{
		Address: stakAddr, Name: "Staked STRK", Symbol: "xSTRK", Decimals: 18,
		Kind: entity.KindStakedPosition, Underlying: &u, IndexDecimals: 18,
	}
}

func setReserves(chain *fakeChain, reserveA, reserveB *big.Int) {
	aLow, aHigh := utils.SplitUint256(reserveA)
	bLow, bHigh := utils.SplitUint256(reserveB)
	chain.set(pairAddr, entrypointGetReserves, aLow, aHigh, bLow, bHigh, big.NewInt(1714521600))
}

func TestPriceLiquidityPair(t *testing.T) {
	chain := newFakeChain()
	setReserves(chain, units(1000, 6), units(500, 18))
	chain.setUint256(pairAddr, entrypointTotalSupply, units(100, 18))
	feed := newFakeFeed(map[string]float64{usdcAddr: 1, pairToken.Address: 2})
	p := NewAssetPricer(chain, NewPriceOracle(feed, time.Second, logger.NewNop()), logger.NewNop(), nil)

	res := p.PriceAsset(context.Background(), lpAsset())
	require.True(t, res.OK, "%v", res.Err)
	assert.InDelta(t, 20.0, res.Quote.UnitPriceUSD, 1e-12)
	assert.Equal(t, pairAddr, res.Quote.AssetAddress)
}

func TestPriceLiquidityPair_SingleFeltTotalSupply(t *testing.T) {
	chain := newFakeChain()
	setReserves(chain, units(1, 6), units(0, 18))
	chain.set(pairAddr, entrypointTotalSupply, units(1, 18))
	feed := newFakeFeed(map[string]float64{usdcAddr: 1, pairToken.Address: 2})
	p := NewAssetPricer(chain, NewPriceOracle(feed, time.Second, logger.NewNop()), logger.NewNop(), nil)

	res := p.PriceAsset(context.Background(), lpAsset())
	require.True(t, res.OK)
	assert.InDelta(t, 1.0, res.Quote.UnitPriceUSD, 1e-12)
}

func TestPriceLiquidityPair_EmptyPoolIsKnownZero(t *testing.T) {
	chain := newFakeChain()
	setReserves(chain, big.NewInt(0), big.NewInt(0))
	chain.setUint256(pairAddr, entrypointTotalSupply, big.NewInt(0))
	oracle := new(mockPriceOracle)
	p := NewAssetPricer(chain, oracle, logger.NewNop(), nil)

	res := p.PriceAsset(context.Background(), lpAsset())
	assert.True(t, res.OK)
	assert.NoError(t, res.Err)
	assert.Equal(t, 0.0, res.Quote.UnitPriceUSD)
	oracle.AssertNotCalled(t, "GetUnitPrice", mock.Anything, mock.Anything)
}

func TestPriceLiquidityPair_Failures(t *testing.T) {
	t.Run("reserves revert", func(t *testing.T) {
		chain := newFakeChain().failOn(pairAddr, entrypointGetReserves)
		chain.setUint256(pairAddr, entrypointTotalSupply, units(1, 18))
		p := NewAssetPricer(chain, new(mockPriceOracle), logger.NewNop(), nil)

		res := p.PriceAsset(context.Background(), lpAsset())
		assert.False(t, res.OK)
		assert.True(t, errors.Is(res.Err, entity.ErrChainReadFailure))
	})

	t.Run("short reserves", func(t *testing.T) {
		chain := newFakeChain().set(pairAddr, entrypointGetReserves, big.NewInt(1), big.NewInt(0))
		chain.setUint256(pairAddr, entrypointTotalSupply, units(1, 18))
		p := NewAssetPricer(chain, new(mockPriceOracle), logger.NewNop(), nil)

		res := p.PriceAsset(context.Background(), lpAsset())
		assert.False(t, res.OK)
		assert.True(t, errors.Is(res.Err, entity.ErrChainReadFailure))
	})

	t.Run("underlying price missing", func(t *testing.T) {
		chain := newFakeChain()
		setReserves(chain, units(1000, 6), units(500, 18))
		chain.setUint256(pairAddr, entrypointTotalSupply, units(100, 18))
		feed := newFakeFeed(map[string]float64{usdcAddr: 1})
		p := NewAssetPricer(chain, NewPriceOracle(feed, time.Second, logger.NewNop()), logger.NewNop(), nil)

		res := p.PriceAsset(context.Background(), lpAsset())
		assert.False(t, res.OK)
		assert.True(t, errors.Is(res.Err, entity.ErrPriceUnavailable))
	})

	t.Run("unresolved underlying", func(t *testing.T) {
		asset := lpAsset()
		asset.UnderlyingB = nil
		p := NewAssetPricer(newFakeChain(), new(mockPriceOracle), logger.NewNop(), nil)

		res := p.PriceAsset(context.Background(), asset)
		assert.False(t, res.OK)
		assert.Error(t, res.Err)
	})
}

func TestPriceStakedPosition(t *testing.T) {
	chain := newFakeChain()
	// 1.05 underlying per share
	chain.set(stakAddr, entrypointTokenIndex, big.NewInt(1_050_000_000_000_000_000))
	feed := newFakeFeed(map[string]float64{strkAddr: 0.5})
	p := NewAssetPricer(chain, NewPriceOracle(feed, time.Second, logger.NewNop()), logger.NewNop(), nil)

	res := p.PriceAsset(context.Background(), stakedAsset())
	require.True(t, res.OK, "%v", res.Err)
	assert.InDelta(t, 0.525, res.Quote.UnitPriceUSD, 1e-12)
}

func TestPriceStakedPosition_U256Index(t *testing.T) {
	chain := newFakeChain()
	chain.setUint256(stakAddr, entrypointTokenIndex, units(2, 18))
	feed := newFakeFeed(map[string]float64{strkAddr: 3})
	p := NewAssetPricer(chain, NewPriceOracle(feed, time.Second, logger.NewNop()), logger.NewNop(), nil)

	res := p.PriceAsset(context.Background(), stakedAsset())
	require.True(t, res.OK)
	assert.InDelta(t, 6.0, res.Quote.UnitPriceUSD, 1e-12)
}

func TestPriceStakedPosition_ZeroIndexDecimalsUsedAsGiven(t *testing.T) {
	chain := newFakeChain()
	chain.set(stakAddr, entrypointTokenIndex, big.NewInt(2))
	feed := newFakeFeed(map[string]float64{strkAddr: 1})
	p := NewAssetPricer(chain, NewPriceOracle(feed, time.Second, logger.NewNop()), logger.NewNop(), nil)

	asset := stakedAsset()
	asset.IndexDecimals = 0
	res := p.PriceAsset(context.Background(), asset)
	require.True(t, res.OK, "%v", res.Err)
	assert.InDelta(t, 2.0, res.Quote.UnitPriceUSD, 1e-12)
}

func TestPriceStakedPosition_Failures(t *testing.T) {
	t.Run("index revert", func(t *testing.T) {
		chain := newFakeChain().failOn(stakAddr, entrypointTokenIndex)
		feed := newFakeFeed(map[string]float64{strkAddr: 0.5})
		p := NewAssetPricer(chain, NewPriceOracle(feed, time.Second, logger.NewNop()), logger.NewNop(), nil)

		res := p.PriceAsset(context.Background(), stakedAsset())
		assert.False(t, res.OK)
		assert.True(t, errors.Is(res.Err, entity.ErrChainReadFailure))
	})

	t.Run("underlying price missing", func(t *testing.T) {
		chain := newFakeChain().set(stakAddr, entrypointTokenIndex, units(1, 18))
		p := NewAssetPricer(chain, NewPriceOracle(newFakeFeed(nil), time.Second, logger.NewNop()), logger.NewNop(), nil)

		res := p.PriceAsset(context.Background(), stakedAsset())
		assert.False(t, res.OK)
		assert.True(t, errors.Is(res.Err, entity.ErrPriceUnavailable))
	})
}

func TestPricePlain_DelegatesToOracle(t *testing.T) {
	oracle := new(mockPriceOracle)
	want := entity.KnownPrice(usdcAddr, 1, time.Now())
	oracle.On("GetUnitPrice", mock.Anything, usdcAddr).Return(want).Once()
	p := NewAssetPricer(newFakeChain(), oracle, logger.NewNop(), nil)

	assert.Equal(t, want, p.PriceAsset(context.Background(), usdc))
	oracle.AssertExpectations(t)
}
