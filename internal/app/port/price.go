package port

import (
	"context"
	"time"

	"starknet_portfolio/internal/domain/entity"
)

// PriceFeedClient fetches the most recent point of an asset's USD price series.
type PriceFeedClient interface {
	LatestPoint(ctx context.Context, assetAddress string) (float64, time.Time, error)
}

// PriceOracle resolves a USD unit price for a plain token.
type PriceOracle interface {
	GetUnitPrice(ctx context.Context, assetAddress string) entity.PriceResult
}

// AssetPricer resolves a unit price for any catalog asset, whatever its kind.
type AssetPricer interface {
	PriceAsset(ctx context.Context, asset entity.SupportedAsset) entity.PriceResult
}
