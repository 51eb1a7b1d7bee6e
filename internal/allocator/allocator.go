package allocator

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/yieldroute/srm/internal/types"
)

// Allocator defines the interface to the enclosing vault that schedules the
// strategy and tracks its debt. The allocator is the sole writer of tracked
// debt; the strategy only ever compares against it.
type Allocator interface {
	// TrackedDebt returns the capital the allocator believes is deployed
	// into the given strategy.
	TrackedDebt(ctx context.Context, id types.StrategyID) (sdkmath.Int, error)

	// DebtOutstanding returns the portion of tracked debt the allocator is
	// currently requesting back.
	DebtOutstanding(ctx context.Context, id types.StrategyID) (sdkmath.Int, error)

	// OnReport delivers a cycle report and lets the allocator reconcile its
	// debt bookkeeping against it.
	OnReport(ctx context.Context, id types.StrategyID, report types.CycleReport) error
}
