package allocator

import (
	"context"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/yieldroute/srm/internal/logger"
	"github.com/yieldroute/srm/internal/types"
)

// SimAllocator is an in-memory Allocator used in sim mode and tests. It
// mirrors the enclosing vault's debt bookkeeping: funding a strategy raises
// its tracked debt, withdrawal requests raise debt outstanding, and each
// report settles debt payments and realized losses against both.
type SimAllocator struct {
	mu          sync.Mutex
	debts       map[types.StrategyID]sdkmath.Int
	outstanding map[types.StrategyID]sdkmath.Int
}

var simLogger = logger.GetForComponent("sim_allocator")

// NewSimAllocator creates an empty in-memory allocator.
func NewSimAllocator() *SimAllocator {
	return &SimAllocator{
		debts:       make(map[types.StrategyID]sdkmath.Int),
		outstanding: make(map[types.StrategyID]sdkmath.Int),
	}
}

// Fund records capital granted to the strategy, raising its tracked debt.
// The caller is responsible for actually crediting the strategy's want
// balance on the ledger.
func (a *SimAllocator) Fund(id types.StrategyID, amount sdkmath.Int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.debts[id] = a.debtLocked(id).Add(amount)
}

// RequestWithdrawal raises the debt outstanding for the strategy, clamped to
// its tracked debt.
func (a *SimAllocator) RequestWithdrawal(id types.StrategyID, amount sdkmath.Int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	requested := a.outstandingLocked(id).Add(amount)
	if debt := a.debtLocked(id); requested.GT(debt) {
		requested = debt
	}
	a.outstanding[id] = requested
}

// TrackedDebt returns the capital the allocator believes is deployed into
// the given strategy.
func (a *SimAllocator) TrackedDebt(ctx context.Context, id types.StrategyID) (sdkmath.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.debtLocked(id), nil
}

// DebtOutstanding returns the portion of tracked debt currently requested back.
func (a *SimAllocator) DebtOutstanding(ctx context.Context, id types.StrategyID) (sdkmath.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.outstandingLocked(id), nil
}

// OnReport settles the cycle report: debt payments and realized losses reduce
// tracked debt, and fulfilled payments reduce debt outstanding.
func (a *SimAllocator) OnReport(ctx context.Context, id types.StrategyID, report types.CycleReport) error {
	if report.DebtPayment.IsNil() || report.Loss.IsNil() {
		return fmt.Errorf("report for %s has nil amounts", id)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	debt := a.debtLocked(id)
	reduction := report.DebtPayment.Add(report.Loss)
	if reduction.GT(debt) {
		reduction = debt
	}
	a.debts[id] = debt.Sub(reduction)

	outstanding := a.outstandingLocked(id)
	if report.DebtPayment.GTE(outstanding) {
		a.outstanding[id] = sdkmath.ZeroInt()
	} else {
		a.outstanding[id] = outstanding.Sub(report.DebtPayment)
	}

	simLogger.Info().
		Str("strategyId", id.String()).
		Str("profit", report.Profit.String()).
		Str("loss", report.Loss.String()).
		Str("debtPayment", report.DebtPayment.String()).
		Str("trackedDebt", a.debts[id].String()).
		Msg("Cycle report settled")
	return nil
}

// debtLocked returns the tracked debt, treating absent entries as zero.
// Caller must hold the mutex.
func (a *SimAllocator) debtLocked(id types.StrategyID) sdkmath.Int {
	debt, ok := a.debts[id]
	if !ok || debt.IsNil() {
		return sdkmath.ZeroInt()
	}
	return debt
}

// outstandingLocked returns the debt outstanding, treating absent entries as
// zero. Caller must hold the mutex.
func (a *SimAllocator) outstandingLocked(id types.StrategyID) sdkmath.Int {
	outstanding, ok := a.outstanding[id]
	if !ok || outstanding.IsNil() {
		return sdkmath.ZeroInt()
	}
	return outstanding
}
