package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidDeposit is returned for deposit requests that cannot be recorded.
var ErrInvalidDeposit = errors.New("invalid deposit")

// Deposit is funding handed to an agent wallet by a user. Amount is in units
// of AssetAddress; AmountUSD is its value when the deposit was recorded.
type Deposit struct {
	ID                string          `json:"id"`
	AgentWallet       string          `json:"agentWallet"`
	UserWallet        string          `json:"userWallet"`
	AssetAddress      string          `json:"assetAddress"`
	Amount            decimal.Decimal `json:"amount"`
	AmountUSD         float64         `json:"amountUSD"`
	StopLossUSD       float64         `json:"stopLossUSD"`
	ExpectedProfitUSD float64         `json:"expectedProfitUSD"`
	Deadline          time.Time       `json:"deadline"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// DepositRequest is a deposit as submitted, before it is priced.
type DepositRequest struct {
	AgentWallet       string          `json:"agentWallet"`
	UserWallet        string          `json:"userWallet"`
	AssetAddress      string          `json:"assetAddress"`
	Amount            decimal.Decimal `json:"amount"`
	StopLossUSD       float64         `json:"stopLossUSD"`
	ExpectedProfitUSD float64         `json:"expectedProfitUSD"`
}

// Validate checks a request before it is priced.
func (r DepositRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.AgentWallet) == "":
		return fmt.Errorf("%w: agentWallet is required", ErrInvalidDeposit)
	case strings.TrimSpace(r.UserWallet) == "":
		return fmt.Errorf("%w: userWallet is required", ErrInvalidDeposit)
	case strings.TrimSpace(r.AssetAddress) == "":
		return fmt.Errorf("%w: assetAddress is required", ErrInvalidDeposit)
	case !r.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", ErrInvalidDeposit)
	case r.StopLossUSD < 0 || r.ExpectedProfitUSD < 0:
		return fmt.Errorf("%w: stop loss and expected profit cannot be negative", ErrInvalidDeposit)
	}
	return nil
}

// AgentTotal sets an agent wallet's current holdings against what was
// deposited into it.
type AgentTotal struct {
	WalletAddress string    `json:"walletAddress"`
	Deposits      int       `json:"deposits"`
	DepositedUSD  float64   `json:"depositedUSD"`
	StopLossUSD   float64   `json:"stopLossUSD"`
	HoldingsUSD   float64   `json:"holdingsUSD"`
	PnLUSD        float64   `json:"pnlUSD"`
	TakenAt       time.Time `json:"takenAt"`
	// StopLossBreached is set when a stop-loss floor exists and holdings are at or below it.
	StopLossBreached bool `json:"stopLossBreached"`
}

// NewAgentTotal sums deposits and compares them with the snapshot total.
// Unpriced holdings count as nothing, as they do in the snapshot.
func NewAgentTotal(walletAddress string, deposits []Deposit, snapshot PortfolioSnapshot) AgentTotal {
	t := AgentTotal{
		WalletAddress: walletAddress,
		Deposits:      len(deposits),
		HoldingsUSD:   snapshot.TotalValueUSD,
		TakenAt:       snapshot.TakenAt,
	}
	for _, d := range deposits {
		t.DepositedUSD += d.AmountUSD
		t.StopLossUSD += d.StopLossUSD
	}
	t.PnLUSD = t.HoldingsUSD - t.DepositedUSD
	t.StopLossBreached = t.StopLossUSD > 0 && t.HoldingsUSD <= t.StopLossUSD
	return t
}
