package port

import (
	"context"

	"starknet_portfolio/internal/domain/entity"
)

// PortfolioService values a wallet against the full asset catalog.
type PortfolioService interface {
	// FetchPortfolio only fails when the catalog cannot be loaded.
	FetchPortfolio(ctx context.Context, walletAddress string) (entity.PortfolioSnapshot, error)
}

// RebalancePlanner turns a snapshot and a target allocation into corrective actions.
type RebalancePlanner interface {
	PlanRebalance(policy entity.AllocationPolicy, snapshot entity.PortfolioSnapshot) ([]entity.RebalanceAction, error)
}

// ActionExecutor hands a planned action to whatever performs the trade.
type ActionExecutor interface {
	Execute(ctx context.Context, action entity.RebalanceAction) error
}

// BalanceReader reads one asset balance for a wallet and values it with price.
type BalanceReader interface {
	ReadHolding(ctx context.Context, asset entity.SupportedAsset, walletAddress string, price entity.PriceResult) entity.AssetHolding
}

// DepositService records deposits and reports agent wallet totals.
type DepositService interface {
	RecordDeposit(ctx context.Context, req entity.DepositRequest) (entity.Deposit, error)
	AgentTotal(ctx context.Context, agentWallet string) (entity.AgentTotal, error)
}
