package messaging

import (
	"context"

	"starknet_portfolio/internal/app/port"
	"starknet_portfolio/internal/domain/entity"
)

// LogExecutor is the dry-run executor used when no broker is configured.
type LogExecutor struct {
	logger port.Logger
}

func NewLogExecutor(l port.Logger) *LogExecutor {
	return &LogExecutor{logger: l}
}

func (e *LogExecutor) Execute(ctx context.Context, action entity.RebalanceAction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.logger.Info("Dry run: rebalance action",
		"id", action.ID,
		"wallet", action.WalletAddress,
		"direction", action.Direction,
		"category", action.AssetCategory,
		"delta_usd", action.DeltaUSD,
		"drift_percent", action.DriftPercent,
	)
	return nil
}
