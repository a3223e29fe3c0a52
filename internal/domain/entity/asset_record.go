package entity

import (
	"fmt"
	"strings"
)

// DefaultIndexDecimals is the index precision of a staked position whose
// record leaves indexDecimals unset.
const DefaultIndexDecimals uint8 = 18

// AssetRecord is the stored form of a catalog entry. Underlying assets are
// referenced by address and linked by ResolveCatalog. A nil IndexDecimals
// means the key was absent; an explicit 0 is kept as given.
type AssetRecord struct {
	Address       string    `json:"address" yaml:"address"`
	Name          string    `json:"name" yaml:"name"`
	Symbol        string    `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Decimals      uint8     `json:"decimals" yaml:"decimals"`
	Kind          AssetKind `json:"kind" yaml:"kind"`
	Image         string    `json:"image,omitempty" yaml:"image,omitempty"`
	IndexDecimals *uint8    `json:"indexDecimals,omitempty" yaml:"indexDecimals,omitempty"`
	UnderlyingA   string    `json:"underlyingA,omitempty" yaml:"underlyingA,omitempty"`
	UnderlyingB   string    `json:"underlyingB,omitempty" yaml:"underlyingB,omitempty"`
	Underlying    string    `json:"underlying,omitempty" yaml:"underlying,omitempty"`
}

// RecordOf flattens a SupportedAsset back into its stored form.
func RecordOf(a SupportedAsset) AssetRecord {
	r := AssetRecord{
		Address:  a.Address,
		Name:     a.Name,
		Symbol:   a.Symbol,
		Decimals: a.Decimals,
		Kind:     a.Kind,
		Image:    a.Image,
	}
	if a.Kind == KindStakedPosition || a.IndexDecimals != 0 {
		d := a.IndexDecimals
		r.IndexDecimals = &d
	}
	if a.UnderlyingA != nil {
		r.UnderlyingA = a.UnderlyingA.Address
	}
	if a.UnderlyingB != nil {
		r.UnderlyingB = a.UnderlyingB.Address
	}
	if a.Underlying != nil {
		r.Underlying = a.Underlying.Address
	}
	return r
}

func (r AssetRecord) base() SupportedAsset {
	kind := r.Kind
	if kind == "" {
		kind = KindPlain
	}
	a := SupportedAsset{
		Address:  r.Address,
		Name:     r.Name,
		Symbol:   r.Symbol,
		Decimals: r.Decimals,
		Kind:     kind,
		Image:    r.Image,
	}
	switch {
	case r.IndexDecimals != nil:
		a.IndexDecimals = *r.IndexDecimals
	case kind == KindStakedPosition:
		a.IndexDecimals = DefaultIndexDecimals
	}
	return a
}

// ResolveCatalog builds SupportedAssets from records, in record order, linking
// underlying references by (normalized) address. Duplicate addresses, unknown
// kinds and dangling references are errors wrapping ErrCatalogLoadFailure.
func ResolveCatalog(records []AssetRecord) ([]SupportedAsset, error) {
	byAddress := make(map[string]SupportedAsset, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.Address) == "" {
			return nil, fmt.Errorf("%w: asset %q has no address", ErrCatalogLoadFailure, r.Name)
		}
		key := NormalizeAddress(r.Address)
		if _, dup := byAddress[key]; dup {
			return nil, fmt.Errorf("%w: duplicate asset address %s", ErrCatalogLoadFailure, r.Address)
		}
		base := r.base()
		if !base.Kind.Valid() {
			return nil, fmt.Errorf("%w: asset %s has unknown kind %q", ErrCatalogLoadFailure, r.Address, r.Kind)
		}
		byAddress[key] = base
	}

	lookup := func(owner, ref string) (*SupportedAsset, error) {
		if ref == "" {
			return nil, fmt.Errorf("%w: asset %s is missing an underlying reference", ErrCatalogLoadFailure, owner)
		}
		u, ok := byAddress[NormalizeAddress(ref)]
		if !ok {
			return nil, fmt.Errorf("%w: asset %s references unknown underlying %s", ErrCatalogLoadFailure, owner, ref)
		}
		return &u, nil
	}

	out := make([]SupportedAsset, 0, len(records))
	for _, r := range records {
		a := byAddress[NormalizeAddress(r.Address)]
		var err error
		switch a.Kind {
		case KindLiquidityPair:
			if a.UnderlyingA, err = lookup(r.Address, r.UnderlyingA); err != nil {
				return nil, err
			}
			if a.UnderlyingB, err = lookup(r.Address, r.UnderlyingB); err != nil {
				return nil, err
			}
		case KindStakedPosition:
			if a.Underlying, err = lookup(r.Address, r.Underlying); err != nil {
				return nil, err
			}
		}
		out = append(out, a)
	}
	return out, nil
}
