package sqlstore

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"starknet_portfolio/internal/domain/entity"
)

// RecordDeposit stores a priced deposit. Amounts are kept as decimal text so
// no precision is lost on either driver.
func (s *Store) RecordDeposit(ctx context.Context, d entity.Deposit) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO deposits
		(id, agent_wallet, user_wallet, asset_address, amount, amount_usd, stop_loss_usd, expected_profit_usd, deadline, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		d.ID, entity.NormalizeAddress(d.AgentWallet), entity.NormalizeAddress(d.UserWallet),
		entity.NormalizeAddress(d.AssetAddress), d.Amount.String(), d.AmountUSD, d.StopLossUSD,
		d.ExpectedProfitUSD, formatTime(d.Deadline), formatTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to record deposit %s: %w", d.ID, err)
	}
	return nil
}

// ListDeposits returns every deposit made into agentWallet, oldest first.
func (s *Store) ListDeposits(ctx context.Context, agentWallet string) ([]entity.Deposit, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, agent_wallet, user_wallet, asset_address, amount,
		amount_usd, stop_loss_usd, expected_profit_usd, deadline, created_at
		FROM deposits WHERE agent_wallet = ? ORDER BY created_at, id`),
		entity.NormalizeAddress(agentWallet))
	if err != nil {
		return nil, fmt.Errorf("failed to query deposits: %w", err)
	}
	defer rows.Close()

	var out []entity.Deposit
	for rows.Next() {
		var d entity.Deposit
		var amount, deadline, created string
		if err := rows.Scan(&d.ID, &d.AgentWallet, &d.UserWallet, &d.AssetAddress, &amount,
			&d.AmountUSD, &d.StopLossUSD, &d.ExpectedProfitUSD, &deadline, &created); err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		if d.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad amount for deposit %s: %w", d.ID, err)
		}
		if d.Deadline, err = parseTime(deadline); err != nil {
			return nil, fmt.Errorf("bad deadline for deposit %s: %w", d.ID, err)
		}
		if d.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("bad created_at for deposit %s: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
