package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrPriceUnavailable means the feed returned no usable point for an asset.
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrChainReadFailure wraps RPC transport errors and reverted contract calls.
	ErrChainReadFailure = errors.New("chain read failure")
	// ErrCatalogLoadFailure is the only failure that aborts a portfolio fetch.
	ErrCatalogLoadFailure = errors.New("catalog load failure")
	// ErrInvalidPolicy is returned for allocation policies that cannot be planned against.
	ErrInvalidPolicy = errors.New("invalid allocation policy")
	// ErrPolicyNotFound is returned when a wallet has no stored policy.
	ErrPolicyNotFound = errors.New("allocation policy not found")
)

// FailureStage identifies which step of a valuation failed for an asset.
type FailureStage string

const (
	StagePrice   FailureStage = "price"
	StageBalance FailureStage = "balance"
)

// AssetError records a per-asset failure absorbed during a valuation pass.
type AssetError struct {
	AssetAddress string       `json:"assetAddress"`
	Stage        FailureStage `json:"stage"`
	Message      string       `json:"message"`
}

// NewAssetError builds an AssetError from err.
func NewAssetError(address string, stage FailureStage, err error) *AssetError {
	return &AssetError{AssetAddress: address, Stage: stage, Message: err.Error()}
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.AssetAddress, e.Stage, e.Message)
}
