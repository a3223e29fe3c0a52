package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"starknet_portfolio/internal/domain/entity"
)

const policyColumns = `wallet_address, stable_percent, native_percent, other_percent, tolerance_band, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (entity.AllocationPolicy, error) {
	var p entity.AllocationPolicy
	var updated string
	if err := row.Scan(&p.WalletAddress, &p.StablePercent, &p.NativePercent, &p.OtherPercent, &p.ToleranceBand, &updated); err != nil {
		return p, err
	}
	t, err := parseTime(updated)
	if err != nil {
		return p, fmt.Errorf("bad updated_at for %s: %w", p.WalletAddress, err)
	}
	p.UpdatedAt = t
	return p, nil
}

// ListPolicies returns every stored policy ordered by wallet.
func (s *Store) ListPolicies(ctx context.Context) ([]entity.AllocationPolicy, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+policyColumns+` FROM allocation_policies ORDER BY wallet_address`)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation_policies: %w", err)
	}
	defer rows.Close()

	var out []entity.AllocationPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation policy: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPolicy returns entity.ErrPolicyNotFound when walletAddress has no policy.
func (s *Store) GetPolicy(ctx context.Context, walletAddress string) (entity.AllocationPolicy, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+policyColumns+` FROM allocation_policies WHERE wallet_address = ?`),
		entity.NormalizeAddress(walletAddress))
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.AllocationPolicy{}, fmt.Errorf("%w: %s", entity.ErrPolicyNotFound, walletAddress)
	}
	if err != nil {
		return entity.AllocationPolicy{}, fmt.Errorf("failed to load policy for %s: %w", walletAddress, err)
	}
	return p, nil
}

// UpsertPolicy stores a policy after checking its allocation. A zero tolerance
// band is kept as zero and means "use the configured default".
func (s *Store) UpsertPolicy(ctx context.Context, p entity.AllocationPolicy) error {
	p.WalletAddress = entity.NormalizeAddress(p.WalletAddress)
	if err := p.ValidateAllocation(); err != nil {
		return err
	}
	if p.ToleranceBand < 0 {
		return fmt.Errorf("%w: negative tolerance band", entity.ErrInvalidPolicy)
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO allocation_policies (`+policyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (wallet_address) DO UPDATE SET
			stable_percent = excluded.stable_percent, native_percent = excluded.native_percent,
			other_percent = excluded.other_percent, tolerance_band = excluded.tolerance_band,
			updated_at = excluded.updated_at`),
		p.WalletAddress, p.StablePercent, p.NativePercent, p.OtherPercent, p.ToleranceBand, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to upsert policy for %s: %w", p.WalletAddress, err)
	}
	return nil
}
