package allocator

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldroute/srm/internal/types"
)

const simTestID = types.StrategyID("strat-1")

func TestSimAllocatorFundRaisesDebt(t *testing.T) {
	ctx := context.Background()
	alloc := NewSimAllocator()

	debt, err := alloc.TrackedDebt(ctx, simTestID)
	require.NoError(t, err)
	assert.True(t, debt.IsZero())

	alloc.Fund(simTestID, sdkmath.NewInt(500))
	alloc.Fund(simTestID, sdkmath.NewInt(250))

	debt, err = alloc.TrackedDebt(ctx, simTestID)
	require.NoError(t, err)
	assert.Equal(t, "750", debt.String())
}

func TestSimAllocatorWithdrawalClampedToDebt(t *testing.T) {
	ctx := context.Background()
	alloc := NewSimAllocator()
	alloc.Fund(simTestID, sdkmath.NewInt(100))

	alloc.RequestWithdrawal(simTestID, sdkmath.NewInt(300))

	outstanding, err := alloc.DebtOutstanding(ctx, simTestID)
	require.NoError(t, err)
	assert.Equal(t, "100", outstanding.String(), "cannot request back more than was deployed")
}

func TestSimAllocatorOnReportSettles(t *testing.T) {
	ctx := context.Background()
	alloc := NewSimAllocator()
	alloc.Fund(simTestID, sdkmath.NewInt(1_000))
	alloc.RequestWithdrawal(simTestID, sdkmath.NewInt(100))

	err := alloc.OnReport(ctx, simTestID, types.CycleReport{
		Profit:      sdkmath.ZeroInt(),
		Loss:        sdkmath.NewInt(10),
		DebtPayment: sdkmath.NewInt(90),
		AmountFreed: sdkmath.NewInt(90),
		TotalAssets: sdkmath.NewInt(900),
		TrackedDebt: sdkmath.NewInt(1_000),
	})
	require.NoError(t, err)

	debt, err := alloc.TrackedDebt(ctx, simTestID)
	require.NoError(t, err)
	assert.Equal(t, "900", debt.String(), "payment and loss both reduce tracked debt")

	outstanding, err := alloc.DebtOutstanding(ctx, simTestID)
	require.NoError(t, err)
	assert.Equal(t, "10", outstanding.String(), "only the payment reduces debt outstanding")
}

func TestSimAllocatorOnReportRejectsNilAmounts(t *testing.T) {
	alloc := NewSimAllocator()
	err := alloc.OnReport(context.Background(), simTestID, types.CycleReport{})
	assert.Error(t, err)
}
