package entity

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// AssetCategory groups assets for allocation purposes.
type AssetCategory string

const (
	CategoryStable AssetCategory = "Stable"
	CategoryNative AssetCategory = "Native"
	CategoryOther  AssetCategory = "Other"
)

// Categories lists every category in a fixed order.
var Categories = []AssetCategory{CategoryStable, CategoryNative, CategoryOther}

// ParseCategory maps a config string onto a category, case-insensitively.
func ParseCategory(s string) (AssetCategory, error) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown asset category %q", s)
}

// Direction is the side of a corrective trade.
type Direction string

const (
	DirectionSell Direction = "Sell"
	DirectionBuy  Direction = "Buy"
)

// policySumTolerance bounds rounding error in stored percentages.
const policySumTolerance = 0.5

// AllocationPolicy is a user's target allocation by category.
type AllocationPolicy struct {
	WalletAddress string    `json:"walletAddress" yaml:"walletAddress"`
	StablePercent float64   `json:"stablePercent" yaml:"stablePercent"`
	NativePercent float64   `json:"nativePercent" yaml:"nativePercent"`
	OtherPercent  float64   `json:"otherPercent" yaml:"otherPercent"`
	ToleranceBand float64   `json:"toleranceBand" yaml:"toleranceBand"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty" yaml:"-"`
}

// Target returns the target percent for a category.
func (p AllocationPolicy) Target(c AssetCategory) float64 {
	switch c {
	case CategoryStable:
		return p.StablePercent
	case CategoryNative:
		return p.NativePercent
	default:
		return p.OtherPercent
	}
}

// ValidateAllocation checks that every percent is in [0,100] and that they sum
// to 100 within rounding tolerance. The tolerance band is not checked.
func (p AllocationPolicy) ValidateAllocation() error {
	if p.WalletAddress == "" {
		return fmt.Errorf("%w: wallet address is empty", ErrInvalidPolicy)
	}
	for _, c := range Categories {
		v := p.Target(c)
		if math.IsNaN(v) || v < 0 || v > 100 {
			return fmt.Errorf("%w: %s percent %.2f out of range", ErrInvalidPolicy, c, v)
		}
	}
	sum := p.StablePercent + p.NativePercent + p.OtherPercent
	if math.Abs(sum-100) > policySumTolerance {
		return fmt.Errorf("%w: percents sum to %.2f, want 100", ErrInvalidPolicy, sum)
	}
	return nil
}

// Normalized rescales the three targets so they sum to exactly 100.
// Validated policies sum to 100 within policySumTolerance, so the factor
// stays close to 1.
func (p AllocationPolicy) Normalized() AllocationPolicy {
	sum := p.StablePercent + p.NativePercent + p.OtherPercent
	if sum <= 0 || sum == 100 {
		return p
	}
	scale := 100 / sum
	p.StablePercent *= scale
	p.NativePercent *= scale
	p.OtherPercent *= scale
	return p
}

// Validate is ValidateAllocation plus a strictly positive tolerance band.
func (p AllocationPolicy) Validate() error {
	if err := p.ValidateAllocation(); err != nil {
		return err
	}
	if !(p.ToleranceBand > 0) {
		return fmt.Errorf("%w: tolerance band must be positive, got %.2f", ErrInvalidPolicy, p.ToleranceBand)
	}
	return nil
}

// RebalanceAction is one corrective trade emitted by the planner.
// ID is derived from the snapshot and action contents, so replanning the
// same snapshot yields the same IDs.
type RebalanceAction struct {
	ID            string        `json:"id"`
	WalletAddress string        `json:"walletAddress"`
	Direction     Direction     `json:"direction"`
	AssetCategory AssetCategory `json:"assetCategory"`
	DeltaUSD      float64       `json:"deltaUSD"`
	DriftPercent  float64       `json:"driftPercent"`
	SnapshotAt    time.Time     `json:"snapshotAt"`
}
