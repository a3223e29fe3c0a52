package port

import (
	"context"
	"math/big"

	"starknet_portfolio/internal/domain/entity"
)

// ChainClient performs read-only contract calls against a Starknet node.
// Errors are wrapped in entity.ErrChainReadFailure.
type ChainClient interface {
	// Call invokes a single view entrypoint and returns the raw felts.
	Call(ctx context.Context, contractAddress, entrypoint string, calldata ...*big.Int) ([]*big.Int, error)

	// CallBatch issues all requests in one round trip. The returned slice has
	// one result per request in the same order; per-call failures are carried
	// in CallResult.Error.
	CallBatch(ctx context.Context, requests []entity.CallRequest) ([]entity.CallResult, error)

	// Definition returns the network this client is connected to.
	Definition() entity.NetworkDefinition
}
