/*

This file contains the position manager for a single capital-routing strategy:
valuation, cycle accounting, position adjustment, liquidation and migration.

*/

package strategy

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/yieldroute/srm/internal/allocator"
	"github.com/yieldroute/srm/internal/convert"
	"github.com/yieldroute/srm/internal/logger"
	"github.com/yieldroute/srm/internal/pool"
	"github.com/yieldroute/srm/internal/token"
	"github.com/yieldroute/srm/internal/types"
)

// Error definitions for strategy operations
var (
	ErrAlreadyMigrated  = errors.New("strategy already migrated")
	ErrInvalidSuccessor = errors.New("successor is invalid")
	ErrInvalidConfig    = errors.New("strategy configuration is invalid")
)

// approvalAmount is the allowance granted to the pool at initialization.
// Effectively unbounded; re-granted only if found below approvalFloor.
var (
	approvalAmount = sdkmath.NewIntWithDecimal(1, 30)
	approvalFloor  = sdkmath.NewIntWithDecimal(1, 24)
)

// Strategy manages one position: idle want held directly plus shares in the
// target pool. All mutations happen through a single external caller per
// cycle; there is no internal concurrency.
type Strategy struct {
	id          types.StrategyID
	want        token.Ledger
	pool        pool.TargetPool
	poolAccount string // the identity want approvals are granted to
	alloc       allocator.Allocator
	maxLossBps  uint64

	emergencyExit bool
	migrated      bool

	logger zerolog.Logger
}

// Config holds the dependencies for constructing a Strategy.
type Config struct {
	ID          types.StrategyID
	Want        token.Ledger
	Pool        pool.TargetPool
	PoolAccount string
	Allocator   allocator.Allocator
	MaxLossBps  uint64
}

// New creates a strategy instance with dependency injection.
func New(cfg Config) (*Strategy, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("strategy configuration validation failed: %w", err)
	}

	s := &Strategy{
		id:          cfg.ID,
		want:        cfg.Want,
		pool:        cfg.Pool,
		poolAccount: cfg.PoolAccount,
		alloc:       cfg.Allocator,
		maxLossBps:  cfg.MaxLossBps,
		logger: logger.GetForComponent("strategy").With().
			Str("strategy_id", cfg.ID.String()).Logger(),
	}

	s.logger.Info().
		Uint64("maxLossBps", s.maxLossBps).
		Str("poolAccount", s.poolAccount).
		Msg("Strategy instance created")

	return s, nil
}

// validateConfig validates the strategy configuration.
func validateConfig(cfg Config) error {
	if cfg.ID == "" {
		return errors.Join(ErrInvalidConfig, errors.New("strategy ID cannot be empty"))
	}
	if cfg.Want == nil {
		return errors.Join(ErrInvalidConfig, errors.New("want ledger cannot be nil"))
	}
	if cfg.Pool == nil {
		return errors.Join(ErrInvalidConfig, errors.New("target pool cannot be nil"))
	}
	if cfg.PoolAccount == "" {
		return errors.Join(ErrInvalidConfig, errors.New("pool account cannot be empty"))
	}
	if cfg.Allocator == nil {
		return errors.Join(ErrInvalidConfig, errors.New("allocator cannot be nil"))
	}
	if cfg.MaxLossBps > convert.BpsDenominator {
		return errors.Join(ErrInvalidConfig,
			fmt.Errorf("max loss %d bps exceeds %d", cfg.MaxLossBps, convert.BpsDenominator))
	}
	return nil
}

// ID returns the strategy's identity.
func (s *Strategy) ID() types.StrategyID {
	return s.id
}

// Migrated reports whether the position has been handed to a successor.
func (s *Strategy) Migrated() bool {
	return s.migrated
}

// EmergencyExit reports whether the position is in emergency mode.
func (s *Strategy) EmergencyExit() bool {
	return s.emergencyExit
}

// SetEmergencyExit toggles emergency mode. While set, Adjust stops deploying
// idle capital into the pool. Privileged callers only.
func (s *Strategy) SetEmergencyExit(on bool) {
	s.emergencyExit = on
	s.logger.Warn().Bool("emergencyExit", on).Msg("Emergency exit flag changed")
}

// EnsureApproval grants the pool an effectively unbounded want allowance.
// Idempotent setup state: re-granted only if the current allowance has
// drifted below the floor.
func (s *Strategy) EnsureApproval(ctx context.Context) error {
	allowance, err := s.want.Allowance(ctx, s.id.String(), s.poolAccount)
	if err != nil {
		return fmt.Errorf("failed to read pool allowance: %w", err)
	}
	if allowance.GTE(approvalFloor) {
		return nil
	}
	if err := s.want.Approve(ctx, s.id.String(), s.poolAccount, approvalAmount); err != nil {
		return fmt.Errorf("failed to approve pool spending: %w", err)
	}
	s.logger.Info().Str("allowance", approvalAmount.String()).Msg("Pool spending approval granted")
	return nil
}

// ExchangeRate reads the pool's live price and share precision. Never cached:
// the pool accrues yield continuously between calls.
func (s *Strategy) ExchangeRate(ctx context.Context) (types.ExchangeRate, error) {
	price, err := s.pool.PricePerShare(ctx)
	if err != nil {
		return types.ExchangeRate{}, fmt.Errorf("failed to read price per share: %w", err)
	}
	decimals, err := s.pool.Decimals(ctx)
	if err != nil {
		return types.ExchangeRate{}, fmt.Errorf("failed to read share decimals: %w", err)
	}
	return types.ExchangeRate{PricePerShare: price, ShareDecimals: decimals}, nil
}

// TotalAssets returns idle want plus the value of held pool shares. A
// non-positive reported price values the shares at zero rather than faulting;
// an error is returned only when a collaborator read fails outright.
func (s *Strategy) TotalAssets(ctx context.Context) (sdkmath.Int, error) {
	idle, err := s.want.BalanceOf(ctx, s.id.String())
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to read idle balance: %w", err)
	}
	shares, err := s.pool.BalanceOf(ctx, s.id.String())
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to read pool shares: %w", err)
	}
	if shares.IsZero() {
		return idle, nil
	}
	rate, err := s.ExchangeRate(ctx)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return idle.Add(convert.SharesToAssets(shares, rate.PricePerShare, rate.ShareDecimals)), nil
}

// Position returns a point-in-time snapshot of the strategy's holdings.
func (s *Strategy) Position(ctx context.Context) (types.Position, error) {
	idle, err := s.want.BalanceOf(ctx, s.id.String())
	if err != nil {
		return types.Position{}, fmt.Errorf("failed to read idle balance: %w", err)
	}
	shares, err := s.pool.BalanceOf(ctx, s.id.String())
	if err != nil {
		return types.Position{}, fmt.Errorf("failed to read pool shares: %w", err)
	}
	debt, err := s.alloc.TrackedDebt(ctx, s.id)
	if err != nil {
		return types.Position{}, fmt.Errorf("failed to read tracked debt: %w", err)
	}
	return types.Position{
		StrategyID:     s.id,
		PrimaryBalance: idle,
		PoolShares:     shares,
		TrackedDebt:    debt,
		MaxLossBps:     s.maxLossBps,
		EmergencyExit:  s.emergencyExit,
		Migrated:       s.migrated,
	}, nil
}

// Report runs one accounting cycle: values the position against tracked
// debt, frees the requested withdrawal plus any accrued profit, and
// reconciles liquidation losses against that profit. Profit is computed
// before liquidation; a loss discovered while freeing liquidity is absorbed
// by accrued profit before any net loss is reported, so the allocator never
// sees both nonzero in the same cycle.
func (s *Strategy) Report(ctx context.Context, requestedWithdrawal sdkmath.Int) (types.CycleReport, error) {
	if requestedWithdrawal.IsNil() || requestedWithdrawal.IsNegative() {
		requestedWithdrawal = sdkmath.ZeroInt()
	}

	total, err := s.TotalAssets(ctx)
	if err != nil {
		return types.CycleReport{}, err
	}
	debt, err := s.alloc.TrackedDebt(ctx, s.id)
	if err != nil {
		return types.CycleReport{}, fmt.Errorf("failed to read tracked debt: %w", err)
	}

	// A shortfall is a loss, not a negative profit.
	profit := total.Sub(debt)
	if profit.IsNegative() {
		profit = sdkmath.ZeroInt()
	}

	toFree := requestedWithdrawal.Add(profit)
	freed, liquidationLoss, err := s.Liquidate(ctx, toFree)
	if err != nil {
		return types.CycleReport{}, err
	}

	debtPayment := requestedWithdrawal
	if freed.LT(debtPayment) {
		debtPayment = freed
	}

	loss := sdkmath.ZeroInt()
	if liquidationLoss.GT(profit) {
		loss = liquidationLoss.Sub(profit)
		profit = sdkmath.ZeroInt()
	} else {
		profit = profit.Sub(liquidationLoss)
	}

	report := types.CycleReport{
		Profit:      profit,
		Loss:        loss,
		DebtPayment: debtPayment,
		AmountFreed: freed,
		TotalAssets: total,
		TrackedDebt: debt,
	}

	s.logger.Info().
		Str("totalAssets", total.String()).
		Str("trackedDebt", debt.String()).
		Str("requested", requestedWithdrawal.String()).
		Str("profit", profit.String()).
		Str("loss", loss.String()).
		Str("debtPayment", debtPayment.String()).
		Msg("Cycle report computed")

	return report, nil
}

// Adjust deploys idle capital beyond the outstanding-debt buffer into the
// pool, in full. No-op in emergency mode and after migration.
func (s *Strategy) Adjust(ctx context.Context, debtOutstanding sdkmath.Int) error {
	if s.emergencyExit || s.migrated {
		s.logger.Debug().
			Bool("emergencyExit", s.emergencyExit).
			Bool("migrated", s.migrated).
			Msg("Adjust skipped")
		return nil
	}
	if debtOutstanding.IsNil() || debtOutstanding.IsNegative() {
		debtOutstanding = sdkmath.ZeroInt()
	}

	idle, err := s.want.BalanceOf(ctx, s.id.String())
	if err != nil {
		return fmt.Errorf("failed to read idle balance: %w", err)
	}
	if idle.LTE(debtOutstanding) {
		return nil
	}

	surplus := idle.Sub(debtOutstanding)
	if err := s.EnsureApproval(ctx); err != nil {
		return err
	}
	minted, err := s.pool.Deposit(ctx, s.id.String(), surplus)
	if err != nil {
		return fmt.Errorf("failed to deposit surplus into pool: %w", err)
	}

	s.logger.Info().
		Str("surplus", surplus.String()).
		Str("sharesMinted", minted.String()).
		Msg("Idle surplus deployed into pool")
	return nil
}

// Liquidate frees amountNeeded of want, redeeming pool shares for any
// shortfall beyond the idle balance. Returns the amount actually freed and
// the unrecovered remainder as loss. Fails only when the pool rejects the
// redemption, e.g. on a slippage tolerance breach.
func (s *Strategy) Liquidate(ctx context.Context, amountNeeded sdkmath.Int) (sdkmath.Int, sdkmath.Int, error) {
	if amountNeeded.IsNil() || !amountNeeded.IsPositive() {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), nil
	}
	if s.migrated {
		// Terminal: the allocator may still poll, answer quietly.
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), nil
	}

	idle, err := s.want.BalanceOf(ctx, s.id.String())
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), fmt.Errorf("failed to read idle balance: %w", err)
	}
	if idle.GTE(amountNeeded) {
		// Idle balance covers it, no pool interaction.
		return amountNeeded, sdkmath.ZeroInt(), nil
	}

	shortfall := amountNeeded.Sub(idle)
	rate, err := s.ExchangeRate(ctx)
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), err
	}
	sharesNeeded := convert.AssetsToShares(shortfall, rate.PricePerShare, rate.ShareDecimals)

	held, err := s.pool.BalanceOf(ctx, s.id.String())
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), fmt.Errorf("failed to read pool shares: %w", err)
	}
	if sharesNeeded.GT(held) {
		sharesNeeded = held
	}

	if sharesNeeded.IsPositive() {
		if _, err := s.pool.Withdraw(ctx, s.id.String(), sharesNeeded, s.id.String(), s.maxLossBps); err != nil {
			return sdkmath.ZeroInt(), sdkmath.ZeroInt(), fmt.Errorf("pool redemption failed: %w", err)
		}
	}

	idle, err = s.want.BalanceOf(ctx, s.id.String())
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), fmt.Errorf("failed to re-read idle balance: %w", err)
	}
	if idle.LT(amountNeeded) {
		return idle, amountNeeded.Sub(idle), nil
	}
	return amountNeeded, sdkmath.ZeroInt(), nil
}

// LiquidateAll redeems every held share within the configured slippage bound
// and returns the resulting idle balance. Full exit and migration preparation
// only.
func (s *Strategy) LiquidateAll(ctx context.Context) (sdkmath.Int, error) {
	if s.migrated {
		return sdkmath.ZeroInt(), nil
	}

	held, err := s.pool.BalanceOf(ctx, s.id.String())
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to read pool shares: %w", err)
	}
	if held.IsPositive() {
		if _, err := s.pool.Withdraw(ctx, s.id.String(), held, s.id.String(), s.maxLossBps); err != nil {
			return sdkmath.ZeroInt(), fmt.Errorf("pool redemption failed: %w", err)
		}
	}

	idle, err := s.want.BalanceOf(ctx, s.id.String())
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to read idle balance: %w", err)
	}

	s.logger.Info().
		Str("sharesRedeemed", held.String()).
		Str("amountFreed", idle.String()).
		Msg("Full position liquidated")
	return idle, nil
}

// Migrate hands the entire pool-share balance to the successor. Idle want is
// the allocator's concern, not this component's. Either the full balance
// moves or none does; afterwards the instance is terminal for pool
// operations.
func (s *Strategy) Migrate(ctx context.Context, successor types.StrategyID) error {
	if s.migrated {
		return ErrAlreadyMigrated
	}
	if successor == "" || successor == s.id {
		return fmt.Errorf("%w: %q", ErrInvalidSuccessor, successor)
	}

	held, err := s.pool.BalanceOf(ctx, s.id.String())
	if err != nil {
		return fmt.Errorf("failed to read pool shares: %w", err)
	}
	if held.IsPositive() {
		if err := s.pool.TransferShares(ctx, s.id.String(), successor.String(), held); err != nil {
			return fmt.Errorf("failed to transfer shares to successor: %w", err)
		}
	}
	s.migrated = true

	s.logger.Warn().
		Str("successor", successor.String()).
		Str("sharesTransferred", held.String()).
		Msg("Position migrated to successor")
	return nil
}
