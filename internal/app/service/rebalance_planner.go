package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"starknet_portfolio/internal/domain/entity"
)

// driftEpsilon absorbs float error when a drift lands exactly on the band.
const driftEpsilon = 1e-9

var actionNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("starknet_portfolio.rebalance_action"))

// RebalancePlannerImpl compares realized category weights with a target
// allocation. It holds only static configuration, so PlanRebalance is a pure
// function of its arguments.
type RebalancePlannerImpl struct {
	categories  map[string]entity.AssetCategory
	defaultBand float64
}

// NewRebalancePlanner creates a planner. categories maps asset addresses to
// their category; unmapped assets count as Other. defaultBand applies to
// policies that carry no tolerance band of their own.
func NewRebalancePlanner(categories map[string]entity.AssetCategory, defaultBand float64) *RebalancePlannerImpl {
	normalized := make(map[string]entity.AssetCategory, len(categories))
	for addr, c := range categories {
		normalized[entity.NormalizeAddress(addr)] = c
	}
	return &RebalancePlannerImpl{categories: normalized, defaultBand: defaultBand}
}

// Classify returns the category of an asset.
func (p *RebalancePlannerImpl) Classify(asset entity.SupportedAsset) entity.AssetCategory {
	if c, ok := p.categories[entity.NormalizeAddress(asset.Address)]; ok {
		return c
	}
	return entity.CategoryOther
}

// EffectivePolicy fills in the default tolerance band when the policy has none.
func (p *RebalancePlannerImpl) EffectivePolicy(policy entity.AllocationPolicy) entity.AllocationPolicy {
	if policy.ToleranceBand <= 0 {
		policy.ToleranceBand = p.defaultBand
	}
	return policy
}

// PlanRebalance emits one action per category whose drift exceeds the
// tolerance band: all Sells first, then all Buys, each group by descending
// DeltaUSD. An empty or unvalued portfolio yields no actions.
func (p *RebalancePlannerImpl) PlanRebalance(policy entity.AllocationPolicy, snapshot entity.PortfolioSnapshot) ([]entity.RebalanceAction, error) {
	policy = p.EffectivePolicy(policy)
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	// Drift against targets that sum to 100 keeps each side's total delta
	// within the portfolio value.
	policy = policy.Normalized()

	byCategory := make(map[entity.AssetCategory]float64, len(entity.Categories))
	var total float64
	for _, h := range snapshot.Holdings {
		if h.ValueUSD == nil {
			continue
		}
		byCategory[p.Classify(h.Asset)] += *h.ValueUSD
		total += *h.ValueUSD
	}

	actions := make([]entity.RebalanceAction, 0, len(entity.Categories))
	if total <= 0 {
		return actions, nil
	}

	for _, c := range entity.Categories {
		realized := byCategory[c] * 100 / total
		drift := realized - policy.Target(c)
		if math.Abs(drift)-policy.ToleranceBand <= driftEpsilon {
			continue
		}

		direction := entity.DirectionBuy
		if drift > 0 {
			direction = entity.DirectionSell
		}
		actions = append(actions, entity.RebalanceAction{
			ID:            actionID(snapshot.WalletAddress, snapshot.TakenAt, c, direction),
			WalletAddress: snapshot.WalletAddress,
			Direction:     direction,
			AssetCategory: c,
			DeltaUSD:      math.Abs(drift) * total / 100,
			DriftPercent:  drift,
			SnapshotAt:    snapshot.TakenAt,
		})
	}

	sort.SliceStable(actions, func(i, j int) bool {
		a, b := actions[i], actions[j]
		if a.Direction != b.Direction {
			return a.Direction == entity.DirectionSell
		}
		if a.DeltaUSD != b.DeltaUSD {
			return a.DeltaUSD > b.DeltaUSD
		}
		return a.AssetCategory < b.AssetCategory
	})
	return actions, nil
}

func actionID(wallet string, takenAt time.Time, c entity.AssetCategory, d entity.Direction) string {
	name := fmt.Sprintf("%s|%s|%s|%s", entity.NormalizeAddress(wallet), takenAt.UTC().Format(time.RFC3339Nano), c, d)
	return uuid.NewSHA1(actionNamespace, []byte(name)).String()
}
