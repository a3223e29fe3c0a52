package entity

import "github.com/shopspring/decimal"

// AssetHolding is one catalog entry's position in a wallet.
// ValueUSD is nil when either the balance read or the price lookup failed;
// Error then carries the reason.
type AssetHolding struct {
	Asset    SupportedAsset  `json:"asset"`
	Quantity decimal.Decimal `json:"quantity"`
	PriceUSD *float64        `json:"priceUSD"`
	ValueUSD *float64        `json:"valueUSD"`
	Error    *AssetError     `json:"error,omitempty"`
}

// Valued reports whether the holding contributes to the portfolio total.
func (h AssetHolding) Valued() bool {
	return h.ValueUSD != nil
}

// Worthwhile reports whether the holding has a known, positive USD value.
func (h AssetHolding) Worthwhile() bool {
	return h.ValueUSD != nil && *h.ValueUSD > 0
}
