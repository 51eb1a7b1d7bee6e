/*

This file contains the core position and reporting types shared across the
strategy, engine, state and web packages.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// StrategyID identifies a single strategy instance. Balances held by the
// want ledger and the target pool are keyed by this identity.
type StrategyID string

func (id StrategyID) String() string {
	return string(id)
}

// Position is a point-in-time view of a strategy's holdings.
type Position struct {
	StrategyID     StrategyID  `json:"strategy_id"`
	PrimaryBalance sdkmath.Int `json:"primary_balance"` // idle want held directly, not invested
	PoolShares     sdkmath.Int `json:"pool_shares"`     // shares held in the target pool
	TrackedDebt    sdkmath.Int `json:"tracked_debt"`    // allocator's record; never written by the strategy
	MaxLossBps     uint64      `json:"max_loss_bps"`    // redemption slippage tolerance in basis points
	EmergencyExit  bool        `json:"emergency_exit"`
	Migrated       bool        `json:"migrated"`
}

// ExchangeRate is the pool's live share pricing, re-read on every conversion.
type ExchangeRate struct {
	PricePerShare sdkmath.Int `json:"price_per_share"`
	ShareDecimals uint8       `json:"share_decimals"`
}

// CycleReport is what the accountant hands back to the allocator each cycle.
// Profit and Loss are mutually exclusive: at most one is nonzero.
type CycleReport struct {
	Profit      sdkmath.Int `json:"profit"`
	Loss        sdkmath.Int `json:"loss"`
	DebtPayment sdkmath.Int `json:"debt_payment"`
	AmountFreed sdkmath.Int `json:"amount_freed"`
	TotalAssets sdkmath.Int `json:"total_assets"` // valuation the report was computed against
	TrackedDebt sdkmath.Int `json:"tracked_debt"`
}

// CycleRecord is the persisted form of one engine cycle. Integer amounts are
// stored as decimal strings so they survive JSON and NUMERIC columns without
// precision loss.
type CycleRecord struct {
	RecordID            int64      `json:"record_id,omitempty"` // Auto-incremented by DB
	CycleNumber         int        `json:"cycle_number"`
	StrategyID          StrategyID `json:"strategy_id"`
	Timestamp           time.Time  `json:"timestamp"`
	RequestedWithdrawal string     `json:"requested_withdrawal"`
	Profit              string     `json:"profit"`
	Loss                string     `json:"loss"`
	DebtPayment         string     `json:"debt_payment"`
	AmountFreed         string     `json:"amount_freed"`
	TotalAssetsBefore   string     `json:"total_assets_before"`
	TotalAssetsAfter    string     `json:"total_assets_after"`
	TrackedDebt         string     `json:"tracked_debt"`
	PricePerShare       string     `json:"price_per_share"`
	Success             bool       `json:"success"`
	Message             string     `json:"message,omitempty"`
}

// StrategySummary aggregates persisted cycle outcomes for one strategy.
type StrategySummary struct {
	StrategyID        StrategyID `json:"strategy_id"`
	CycleCount        int        `json:"cycle_count"`
	FailedCycles      int        `json:"failed_cycles"`
	CumulativeProfit  string     `json:"cumulative_profit"`
	CumulativeLoss    string     `json:"cumulative_loss"`
	TotalDebtPayments string     `json:"total_debt_payments"`
	LastCycleAt       *time.Time `json:"last_cycle_at,omitempty"`
}
