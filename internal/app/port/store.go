package port

import (
	"context"

	"starknet_portfolio/internal/domain/entity"
)

// AssetCatalog lists every asset a wallet may hold. Underlying references of
// derived assets are resolved by the implementation.
type AssetCatalog interface {
	ListSupportedAssets(ctx context.Context) ([]entity.SupportedAsset, error)
}

// PolicyStore provides read access to allocation policies.
type PolicyStore interface {
	ListPolicies(ctx context.Context) ([]entity.AllocationPolicy, error)
	// GetPolicy returns entity.ErrPolicyNotFound when the wallet has none.
	GetPolicy(ctx context.Context, walletAddress string) (entity.AllocationPolicy, error)
}

// ActionLedger records dispatched rebalance actions.
type ActionLedger interface {
	RecordAction(ctx context.Context, action entity.RebalanceAction) error
	ListActions(ctx context.Context, walletAddress string, limit int) ([]entity.RebalanceAction, error)
}

// DepositLedger stores deposits made into agent wallets.
type DepositLedger interface {
	RecordDeposit(ctx context.Context, deposit entity.Deposit) error
	// ListDeposits returns the agent wallet's deposits, oldest first.
	ListDeposits(ctx context.Context, agentWallet string) ([]entity.Deposit, error)
}
