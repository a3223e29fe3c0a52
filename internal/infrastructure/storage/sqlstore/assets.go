package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"starknet_portfolio/internal/domain/entity"
)

// ListSupportedAssets loads the catalog in insertion order and links underlying assets.
func (s *Store) ListSupportedAssets(ctx context.Context) ([]entity.SupportedAsset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT address, name, symbol, decimals, kind, image, index_decimals,
		underlying_a, underlying_b, underlying FROM supported_assets ORDER BY sort_order, address`)
	if err != nil {
		return nil, fmt.Errorf("%w: query supported_assets: %v", entity.ErrCatalogLoadFailure, err)
	}
	defer rows.Close()

	var records []entity.AssetRecord
	for rows.Next() {
		var r entity.AssetRecord
		var kind string
		var decimals int
		var indexDecimals sql.NullInt64
		if err := rows.Scan(&r.Address, &r.Name, &r.Symbol, &decimals, &kind, &r.Image, &indexDecimals,
			&r.UnderlyingA, &r.UnderlyingB, &r.Underlying); err != nil {
			return nil, fmt.Errorf("%w: scan supported_assets: %v", entity.ErrCatalogLoadFailure, err)
		}
		if decimals < 0 || decimals > 255 || indexDecimals.Int64 < 0 || indexDecimals.Int64 > 255 {
			return nil, fmt.Errorf("%w: asset %s has out-of-range decimals", entity.ErrCatalogLoadFailure, r.Address)
		}
		r.Kind = entity.AssetKind(kind)
		r.Decimals = uint8(decimals)
		if indexDecimals.Valid {
			d := uint8(indexDecimals.Int64)
			r.IndexDecimals = &d
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate supported_assets: %v", entity.ErrCatalogLoadFailure, err)
	}
	return entity.ResolveCatalog(records)
}

// UpsertAsset inserts or replaces one catalog entry. New entries go to the end of the catalog.
func (s *Store) UpsertAsset(ctx context.Context, r entity.AssetRecord) error {
	if r.Kind == "" {
		r.Kind = entity.KindPlain
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("unknown asset kind %q", r.Kind)
	}
	address := entity.NormalizeAddress(r.Address)
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO supported_assets
		(address, name, symbol, decimals, kind, image, index_decimals, underlying_a, underlying_b, underlying, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM supported_assets))
		ON CONFLICT (address) DO UPDATE SET
			name = excluded.name, symbol = excluded.symbol, decimals = excluded.decimals, kind = excluded.kind,
			image = excluded.image, index_decimals = excluded.index_decimals,
			underlying_a = excluded.underlying_a, underlying_b = excluded.underlying_b, underlying = excluded.underlying`),
		address, r.Name, r.Symbol, int(r.Decimals), string(r.Kind), r.Image, nullableDecimals(r.IndexDecimals),
		refOrEmpty(r.UnderlyingA), refOrEmpty(r.UnderlyingB), refOrEmpty(r.Underlying))
	if err != nil {
		return fmt.Errorf("failed to upsert asset %s: %w", address, err)
	}
	return nil
}

func refOrEmpty(ref string) string {
	if ref == "" {
		return ""
	}
	return entity.NormalizeAddress(ref)
}

func nullableDecimals(d *uint8) sql.NullInt64 {
	if d == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*d), Valid: true}
}
