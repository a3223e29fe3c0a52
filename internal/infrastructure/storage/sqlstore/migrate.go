package sqlstore

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS supported_assets (
		address        TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		symbol         TEXT NOT NULL DEFAULT '',
		decimals       INTEGER NOT NULL,
		kind           TEXT NOT NULL,
		image          TEXT NOT NULL DEFAULT '',
		index_decimals INTEGER,
		underlying_a   TEXT NOT NULL DEFAULT '',
		underlying_b   TEXT NOT NULL DEFAULT '',
		underlying     TEXT NOT NULL DEFAULT '',
		sort_order     INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS allocation_policies (
		wallet_address TEXT PRIMARY KEY,
		stable_percent DOUBLE PRECISION NOT NULL,
		native_percent DOUBLE PRECISION NOT NULL,
		other_percent  DOUBLE PRECISION NOT NULL,
		tolerance_band DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rebalance_actions (
		id             TEXT PRIMARY KEY,
		wallet_address TEXT NOT NULL,
		direction      TEXT NOT NULL,
		category       TEXT NOT NULL,
		delta_usd      DOUBLE PRECISION NOT NULL,
		drift_percent  DOUBLE PRECISION NOT NULL,
		snapshot_at    TEXT NOT NULL,
		recorded_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rebalance_actions_wallet ON rebalance_actions (wallet_address, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS deposits (
		id                  TEXT PRIMARY KEY,
		agent_wallet        TEXT NOT NULL,
		user_wallet         TEXT NOT NULL,
		asset_address       TEXT NOT NULL,
		amount              TEXT NOT NULL,
		amount_usd          DOUBLE PRECISION NOT NULL,
		stop_loss_usd       DOUBLE PRECISION NOT NULL DEFAULT 0,
		expected_profit_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
		deadline            TEXT NOT NULL,
		created_at          TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deposits_agent ON deposits (agent_wallet, created_at)`,
}

// Migrate creates the tables if they do not exist. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	s.logger.Debug("Database schema up to date", "steps", len(schema))
	return nil
}
