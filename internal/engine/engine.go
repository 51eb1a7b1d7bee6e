/*

This file contains the cycle engine: the outer loop that drives one strategy
through report / settle / adjust cycles on a fixed interval and persists the
outcome of every cycle.

*/

package engine

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yieldroute/srm/internal/allocator"
	"github.com/yieldroute/srm/internal/logger"
	"github.com/yieldroute/srm/internal/state"
	"github.com/yieldroute/srm/internal/strategy"
	"github.com/yieldroute/srm/internal/types"
)

// RecordStore persists cycle outcomes. The state package provides the
// postgres-backed implementation; tests substitute an in-memory one.
type RecordStore interface {
	SaveCycleRecord(record types.CycleRecord) (int64, error)
	IncrementCycleNumber() (int, error)
}

// pgRecordStore routes persistence through the shared postgres pool.
type pgRecordStore struct{}

func (pgRecordStore) SaveCycleRecord(record types.CycleRecord) (int64, error) {
	return state.SaveCycleRecord(record)
}

func (pgRecordStore) IncrementCycleNumber() (int, error) {
	return state.IncrementCycleNumber()
}

// NewStateRecordStore returns a RecordStore backed by the state package.
func NewStateRecordStore() RecordStore {
	return pgRecordStore{}
}

// Engine drives a single strategy through repeated accounting cycles.
type Engine struct {
	logger   zerolog.Logger
	strategy *strategy.Strategy
	alloc    allocator.Allocator
	store    RecordStore

	cycleCount int
}

// Config holds the configuration for creating a new Engine instance
type Config struct {
	Strategy  *strategy.Strategy
	Allocator allocator.Allocator
	Store     RecordStore
}

// NewEngine creates a new engine instance with dependency injection
func NewEngine(cfg Config) (*Engine, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	e := &Engine{
		logger:     logger.GetForComponent("engine_core"),
		strategy:   cfg.Strategy,
		alloc:      cfg.Allocator,
		store:      cfg.Store,
		cycleCount: 0,
	}

	e.logger.Info().
		Str("strategyID", e.strategy.ID().String()).
		Msg("Engine instance created successfully with dependency injection")

	return e, nil
}

// validateEngineConfig validates the engine configuration
func validateEngineConfig(cfg Config) error {
	if cfg.Strategy == nil {
		return fmt.Errorf("strategy cannot be nil")
	}
	if cfg.Allocator == nil {
		return fmt.Errorf("allocator cannot be nil")
	}
	if cfg.Store == nil {
		return fmt.Errorf("record store cannot be nil")
	}
	return nil
}

// RunLoop starts the main engine loop with the specified interval
func (e *Engine) RunLoop(ctx context.Context, interval time.Duration) {
	e.logger.Info().
		Dur("interval", interval).
		Msg("Starting engine main loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run first cycle immediately
	e.cycleCount++
	e.logger.Info().Int("cycle", e.cycleCount).Msg("Initiating engine cycle")
	e.RunCycle(ctx)
	e.logger.Info().Int("cycle", e.cycleCount).Msg("Engine cycle completed")

	// Continue with ticker
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Engine loop stopped due to context cancellation")
			return
		case <-ticker.C:
			e.cycleCount++
			e.logger.Info().Int("cycle", e.cycleCount).Msg("Initiating engine cycle")
			e.RunCycle(ctx)
			e.logger.Info().Int("cycle", e.cycleCount).Msg("Engine cycle completed")
		}
	}
}

// RunCycle executes one complete accounting cycle: ask the allocator how much
// it wants back, have the strategy report against that request, settle the
// report with the allocator, then redeploy whatever surplus remains.
func (e *Engine) RunCycle(ctx context.Context) {
	cycleStartTime := time.Now()

	// Unique cycle ID for tracing logs across the entire cycle
	cycleID := uuid.New().String()
	cycleLogger := e.logger.With().Str("cycle_id", cycleID).Logger()

	cycleLogger.Info().Msg("--- Starting Engine Cycle ---")

	record := newCycleRecord(e.getCycleNumber(), e.strategy.ID(), cycleStartTime)

	// --- Step 1: Ask the allocator what it wants back ---
	cycleLogger.Info().Msg("Step 1: Querying allocator for outstanding debt...")
	debtOutstanding, err := e.alloc.DebtOutstanding(ctx, e.strategy.ID())
	if err != nil {
		e.abortCycle(cycleLogger, record, "Failed to query outstanding debt", err)
		return
	}
	record.RequestedWithdrawal = intString(debtOutstanding)

	totalBefore, err := e.strategy.TotalAssets(ctx)
	if err != nil {
		e.abortCycle(cycleLogger, record, "Failed to value position", err)
		return
	}
	record.TotalAssetsBefore = intString(totalBefore)

	rate, err := e.strategy.ExchangeRate(ctx)
	if err != nil {
		e.abortCycle(cycleLogger, record, "Failed to read exchange rate", err)
		return
	}
	record.PricePerShare = intString(rate.PricePerShare)

	cycleLogger.Info().
		Str("debtOutstanding", record.RequestedWithdrawal).
		Str("totalAssets", record.TotalAssetsBefore).
		Str("pricePerShare", record.PricePerShare).
		Msg("Step 1: Allocator queried and position valued.")

	// --- Step 2: Report ---
	cycleLogger.Info().Msg("Step 2: Running strategy report...")
	report, err := e.strategy.Report(ctx, debtOutstanding)
	if err != nil {
		e.abortCycle(cycleLogger, record, "Strategy report failed", err)
		return
	}
	record.Profit = intString(report.Profit)
	record.Loss = intString(report.Loss)
	record.DebtPayment = intString(report.DebtPayment)
	record.AmountFreed = intString(report.AmountFreed)
	record.TrackedDebt = intString(report.TrackedDebt)

	cycleLogger.Info().
		Str("profit", record.Profit).
		Str("loss", record.Loss).
		Str("debtPayment", record.DebtPayment).
		Str("amountFreed", record.AmountFreed).
		Msg("Step 2: Strategy report complete.")

	// --- Step 3: Settle with the allocator ---
	cycleLogger.Info().Msg("Step 3: Settling report with allocator...")
	if err := e.alloc.OnReport(ctx, e.strategy.ID(), report); err != nil {
		e.abortCycle(cycleLogger, record, "Allocator settlement failed", err)
		return
	}

	// --- Step 4: Redeploy surplus ---
	cycleLogger.Info().Msg("Step 4: Adjusting position...")
	remainingOutstanding, err := e.alloc.DebtOutstanding(ctx, e.strategy.ID())
	if err != nil {
		e.abortCycle(cycleLogger, record, "Failed to re-query outstanding debt", err)
		return
	}
	if err := e.strategy.Adjust(ctx, remainingOutstanding); err != nil {
		e.abortCycle(cycleLogger, record, "Position adjustment failed", err)
		return
	}

	// --- Step 5: Capture final state ---
	totalAfter, err := e.strategy.TotalAssets(ctx)
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to value position after adjustment.")
		totalAfter = totalBefore // Use pre-cycle value as fallback
	}
	record.TotalAssetsAfter = intString(totalAfter)
	record.Success = true

	e.saveCycleRecord(record)

	cycleLogger.Info().
		Str("totalAssetsBefore", record.TotalAssetsBefore).
		Str("totalAssetsAfter", record.TotalAssetsAfter).
		Str("trackedDebt", record.TrackedDebt).
		Msg("End of Cycle State")

	cycleEndTime := time.Now()
	cycleLogger.Info().Str("cycleDuration", cycleEndTime.Sub(cycleStartTime).String()).Msg("Engine Cycle Duration")

	cycleLogger.Info().Msg("--- Engine Cycle Completed Successfully ---")
}

// getCycleNumber increments and returns the persistent cycle counter
func (e *Engine) getCycleNumber() int {
	cycleNumber, err := e.store.IncrementCycleNumber()
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to increment cycle number, using fallback")
		// Fallback to a simple counter if the store fails
		return int(time.Now().Unix() % 1000000) // Use timestamp as fallback
	}
	return cycleNumber
}

// abortCycle records a failed cycle and logs the cause.
func (e *Engine) abortCycle(cycleLogger zerolog.Logger, record types.CycleRecord, msg string, err error) {
	cycleLogger.Error().Err(err).Msg("Cycle aborted: " + msg + ".")
	record.Success = false
	record.Message = fmt.Sprintf("%s: %v", msg, err)
	e.saveCycleRecord(record)
}

// saveCycleRecord saves the cycle record to the store
func (e *Engine) saveCycleRecord(record types.CycleRecord) {
	recordID, err := e.store.SaveCycleRecord(record)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to save cycle record")
		return
	}
	e.logger.Info().Int64("record_id", recordID).Msg("Cycle record saved successfully")
}

// newCycleRecord returns a record with every amount column zeroed, so a cycle
// aborted before any step still persists a complete row.
func newCycleRecord(cycleNumber int, id types.StrategyID, at time.Time) types.CycleRecord {
	zero := sdkmath.ZeroInt().String()
	return types.CycleRecord{
		CycleNumber:         cycleNumber,
		StrategyID:          id,
		Timestamp:           at,
		RequestedWithdrawal: zero,
		Profit:              zero,
		Loss:                zero,
		DebtPayment:         zero,
		AmountFreed:         zero,
		TotalAssetsBefore:   zero,
		TotalAssetsAfter:    zero,
		TrackedDebt:         zero,
		PricePerShare:       zero,
	}
}

// intString renders an amount for persistence, tolerating the nil Int.
func intString(v sdkmath.Int) string {
	if v.IsNil() {
		return "0"
	}
	return v.String()
}
