package entity

import "strings"

// AssetKind describes how a SupportedAsset is priced.
type AssetKind string

const (
	// KindPlain is an ERC20 token priced directly by the price feed.
	KindPlain AssetKind = "plain"
	// KindLiquidityPair is an LP share priced from pool reserves and total supply.
	KindLiquidityPair AssetKind = "pair"
	// KindStakedPosition is a staked/auto-compounding share priced through a conversion index.
	KindStakedPosition AssetKind = "staking"
)

// Valid reports whether k is one of the known kinds.
func (k AssetKind) Valid() bool {
	switch k {
	case KindPlain, KindLiquidityPair, KindStakedPosition:
		return true
	}
	return false
}

// SupportedAsset is a catalog entry describing something a wallet can hold.
// Underlying references are populated only for the matching Kind.
type SupportedAsset struct {
	Address       string    `json:"address" yaml:"address"`
	Name          string    `json:"name" yaml:"name"`
	Symbol        string    `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Decimals      uint8     `json:"decimals" yaml:"decimals"`
	Kind          AssetKind `json:"kind" yaml:"kind"`
	Image         string    `json:"image,omitempty" yaml:"image,omitempty"`
	IndexDecimals uint8     `json:"indexDecimals,omitempty" yaml:"indexDecimals,omitempty"`

	UnderlyingA *SupportedAsset `json:"underlyingA,omitempty" yaml:"-"`
	UnderlyingB *SupportedAsset `json:"underlyingB,omitempty" yaml:"-"`
	Underlying  *SupportedAsset `json:"underlying,omitempty" yaml:"-"`
}

// NormalizeAddress lowercases a felt address and strips leading zeros after 0x
// so that "0x04718f..." and "0x4718F..." compare equal.
func NormalizeAddress(address string) string {
	a := strings.ToLower(strings.TrimSpace(address))
	if !strings.HasPrefix(a, "0x") {
		return a
	}
	trimmed := strings.TrimLeft(a[2:], "0")
	if trimmed == "" {
		trimmed = "0"
	}
	return "0x" + trimmed
}
