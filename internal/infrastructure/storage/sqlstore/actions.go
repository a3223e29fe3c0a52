package sqlstore

import (
	"context"
	"fmt"
	"time"

	"starknet_portfolio/internal/domain/entity"
)

// RecordAction appends an action to the ledger. Recording the same action ID
// twice is a no-op.
func (s *Store) RecordAction(ctx context.Context, a entity.RebalanceAction) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO rebalance_actions
		(id, wallet_address, direction, category, delta_usd, drift_percent, snapshot_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`),
		a.ID, entity.NormalizeAddress(a.WalletAddress), string(a.Direction), string(a.AssetCategory),
		a.DeltaUSD, a.DriftPercent, formatTime(a.SnapshotAt), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to record action %s: %w", a.ID, err)
	}
	return nil
}

// ListActions returns the most recent actions, newest first. An empty wallet
// lists actions for every wallet; limit <= 0 means 100.
func (s *Store) ListActions(ctx context.Context, walletAddress string, limit int) ([]entity.RebalanceAction, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, wallet_address, direction, category, delta_usd, drift_percent, snapshot_at
		FROM rebalance_actions`
	args := []any{}
	if walletAddress != "" {
		query += ` WHERE wallet_address = ?`
		args = append(args, entity.NormalizeAddress(walletAddress))
	}
	query += ` ORDER BY recorded_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rebalance_actions: %w", err)
	}
	defer rows.Close()

	var out []entity.RebalanceAction
	for rows.Next() {
		var a entity.RebalanceAction
		var direction, category, snapshotAt string
		if err := rows.Scan(&a.ID, &a.WalletAddress, &direction, &category, &a.DeltaUSD, &a.DriftPercent, &snapshotAt); err != nil {
			return nil, fmt.Errorf("failed to scan rebalance action: %w", err)
		}
		a.Direction = entity.Direction(direction)
		a.AssetCategory = entity.AssetCategory(category)
		if a.SnapshotAt, err = parseTime(snapshotAt); err != nil {
			return nil, fmt.Errorf("bad snapshot_at for action %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
