package entity

import "math/big"

// CallRequest is a single read-only contract call in a batch.
type CallRequest struct {
	ContractAddress string
	Entrypoint      string
	Calldata        []*big.Int
}

// CallResult is the decoded response of one CallRequest. Felts holds the
// returned field elements in order; Error is set when that call failed.
type CallResult struct {
	Request CallRequest
	Felts   []*big.Int
	Error   error
}
