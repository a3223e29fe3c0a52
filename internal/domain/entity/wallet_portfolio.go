package entity

import "time"

// PriceQuote is a resolved unit price for one asset.
type PriceQuote struct {
	AssetAddress string    `json:"assetAddress"`
	UnitPriceUSD float64   `json:"unitPriceUSD"`
	AsOf         time.Time `json:"asOf"`
}

// PriceResult is the outcome of pricing one asset during a valuation pass.
// OK=false means the price is unknown; a zero Quote with OK=true is a real
// zero (for example an empty liquidity pool).
type PriceResult struct {
	Quote PriceQuote
	OK    bool
	Err   error
}

// KnownPrice returns a successful PriceResult.
func KnownPrice(address string, price float64, asOf time.Time) PriceResult {
	return PriceResult{
		Quote: PriceQuote{AssetAddress: address, UnitPriceUSD: price, AsOf: asOf},
		OK:    true,
	}
}

// UnknownPrice returns a failed PriceResult carrying err.
func UnknownPrice(address string, err error) PriceResult {
	return PriceResult{Quote: PriceQuote{AssetAddress: address}, Err: err}
}

// PortfolioSnapshot is an immutable valuation of one wallet against the full catalog.
// TotalValueUSD is the sum of every non-nil holding value.
type PortfolioSnapshot struct {
	WalletAddress string         `json:"walletAddress"`
	TotalValueUSD float64        `json:"totalValueUSD"`
	Holdings      []AssetHolding `json:"holdings"`
	TakenAt       time.Time      `json:"takenAt"`
}

// NewPortfolioSnapshot computes the total from holdings.
func NewPortfolioSnapshot(wallet string, holdings []AssetHolding, takenAt time.Time) PortfolioSnapshot {
	var total float64
	for _, h := range holdings {
		if h.ValueUSD != nil {
			total += *h.ValueUSD
		}
	}
	return PortfolioSnapshot{
		WalletAddress: wallet,
		TotalValueUSD: total,
		Holdings:      holdings,
		TakenAt:       takenAt,
	}
}

// Errors lists the per-asset failures absorbed while building the snapshot.
func (s PortfolioSnapshot) Errors() []AssetError {
	var errs []AssetError
	for _, h := range s.Holdings {
		if h.Error != nil {
			errs = append(errs, *h.Error)
		}
	}
	return errs
}

// NonZero returns the holdings with a known, positive USD value. Held assets
// that could not be priced are dropped along with empty ones.
func (s PortfolioSnapshot) NonZero() []AssetHolding {
	out := make([]AssetHolding, 0, len(s.Holdings))
	for _, h := range s.Holdings {
		if h.Worthwhile() {
			out = append(out, h)
		}
	}
	return out
}
