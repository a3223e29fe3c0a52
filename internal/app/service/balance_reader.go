package service

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
	"starknet_portfolio/internal/pkg/utils"
)

const (
	entrypointBalanceOf = "balanceOf"
	entrypointDecimals  = "decimals"
)

// BalanceReaderImpl reads ERC20 balances and values them with a resolved price.
type BalanceReaderImpl struct {
	chain  port.ChainClient
	logger port.Logger
}

// NewBalanceReader creates a BalanceReaderImpl.
func NewBalanceReader(chain port.ChainClient, l port.Logger) *BalanceReaderImpl {
	return &BalanceReaderImpl{chain: chain, logger: l}
}

// ReadHolding reads balanceOf and decimals in one batch. A failed balance read
// yields a zero quantity with a nil value; a failed price keeps the quantity
// but leaves the value nil. It never returns an error.
func (r *BalanceReaderImpl) ReadHolding(ctx context.Context, asset entity.SupportedAsset, walletAddress string, price entity.PriceResult) entity.AssetHolding {
	holding := entity.AssetHolding{Asset: asset, Quantity: decimal.Zero}

	raw, decimals, err := r.readBalance(ctx, asset, walletAddress)
	if err != nil {
		r.logger.Warn("Failed to read balance", "asset", asset.Symbol, "address", asset.Address, "wallet", walletAddress, "error", err)
		holding.Error = entity.NewAssetError(asset.Address, entity.StageBalance, err)
		return holding
	}
	holding.Quantity = utils.ScaleAmount(raw, decimals)

	if !price.OK {
		err := price.Err
		if err == nil {
			err = entity.ErrPriceUnavailable
		}
		holding.Error = entity.NewAssetError(asset.Address, entity.StagePrice, err)
		return holding
	}

	unit := price.Quote.UnitPriceUSD
	qty, _ := holding.Quantity.Float64()
	value := qty * unit
	holding.PriceUSD = &unit
	holding.ValueUSD = &value
	return holding
}

func (r *BalanceReaderImpl) readBalance(ctx context.Context, asset entity.SupportedAsset, walletAddress string) (amount *big.Int, decimals uint8, err error) {
	account, err := utils.ParseFelt(walletAddress)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: wallet address: %v", entity.ErrChainReadFailure, err)
	}

	results, err := r.chain.CallBatch(ctx, []entity.CallRequest{
		{ContractAddress: asset.Address, Entrypoint: entrypointBalanceOf, Calldata: []*big.Int{account}},
		{ContractAddress: asset.Address, Entrypoint: entrypointDecimals},
	})
	if err != nil {
		return nil, 0, err
	}
	if results[0].Error != nil {
		return nil, 0, results[0].Error
	}
	amount, err = utils.ReadUint(results[0].Felts)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: balanceOf: %v", entity.ErrChainReadFailure, err)
	}

	decimals = asset.Decimals
	if results[1].Error == nil && len(results[1].Felts) > 0 && results[1].Felts[0].IsUint64() && results[1].Felts[0].Uint64() <= 255 {
		decimals = uint8(results[1].Felts[0].Uint64())
	} else {
		r.logger.Debug("Using catalog decimals", "asset", asset.Address, "decimals", asset.Decimals)
	}
	return amount, decimals, nil
}
