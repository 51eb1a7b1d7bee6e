package strategy

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldroute/srm/internal/allocator"
	"github.com/yieldroute/srm/internal/pool"
	"github.com/yieldroute/srm/internal/token"
	"github.com/yieldroute/srm/internal/types"
)

const (
	testStrategyID = types.StrategyID("strat-1")
	shareDecimals  = uint8(6)
)

// testRig wires a strategy against in-memory collaborators.
type testRig struct {
	want  *token.MemLedger
	pool  *pool.SimPool
	alloc *allocator.SimAllocator
	strat *Strategy
}

func newTestRig(t *testing.T, maxLossBps uint64) *testRig {
	t.Helper()

	want := token.NewMemLedger("USDC")
	simPool := pool.NewSimPool("pool:yield", want, sdkmath.NewInt(1_000_000), shareDecimals)
	simAlloc := allocator.NewSimAllocator()

	strat, err := New(Config{
		ID:          testStrategyID,
		Want:        want,
		Pool:        simPool,
		PoolAccount: simPool.Account(),
		Allocator:   simAlloc,
		MaxLossBps:  maxLossBps,
	})
	require.NoError(t, err)

	return &testRig{want: want, pool: simPool, alloc: simAlloc, strat: strat}
}

// fund grants capital: raises tracked debt and credits the want balance.
func (r *testRig) fund(amount int64) {
	r.alloc.Fund(testStrategyID, sdkmath.NewInt(amount))
	r.want.Mint(testStrategyID.String(), sdkmath.NewInt(amount))
}

// deploy pushes all idle capital into the pool.
func (r *testRig) deploy(t *testing.T) {
	t.Helper()
	require.NoError(t, r.strat.Adjust(context.Background(), sdkmath.ZeroInt()))
}

func requireExclusive(t *testing.T, report types.CycleReport) {
	t.Helper()
	require.False(t, report.Profit.IsPositive() && report.Loss.IsPositive(),
		"profit %s and loss %s both nonzero", report.Profit, report.Loss)
}

func TestNewValidatesConfig(t *testing.T) {
	want := token.NewMemLedger("USDC")
	simPool := pool.NewSimPool("pool:yield", want, sdkmath.NewInt(1_000_000), shareDecimals)
	simAlloc := allocator.NewSimAllocator()

	valid := Config{
		ID: "s", Want: want, Pool: simPool, PoolAccount: simPool.Account(),
		Allocator: simAlloc, MaxLossBps: 100,
	}

	for name, mutate := range map[string]func(*Config){
		"empty id":      func(c *Config) { c.ID = "" },
		"nil want":      func(c *Config) { c.Want = nil },
		"nil pool":      func(c *Config) { c.Pool = nil },
		"empty account": func(c *Config) { c.PoolAccount = "" },
		"nil allocator": func(c *Config) { c.Allocator = nil },
		"bps too large": func(c *Config) { c.MaxLossBps = 10_001 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := New(valid)
	assert.NoError(t, err)
}

func TestAdjustDeploysSurplusInFull(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, 100)
	rig.fund(1_000)

	require.NoError(t, rig.strat.Adjust(ctx, sdkmath.NewInt(300)))

	idle, err := rig.want.BalanceOf(ctx, testStrategyID.String())
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(300), idle, "outstanding-debt buffer stays idle")

	shares, err := rig.pool.BalanceOf(ctx, testStrategyID.String())
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(700), shares)
}

func TestAdjustIdempotentWithoutBalanceChange(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, 100)
	rig.fund(500)

	require.NoError(t, rig.strat.Adjust(ctx, sdkmath.ZeroInt()))
	depositsAfterFirst := rig.pool.DepositCalls

	require.NoError(t, rig.strat.Adjust(ctx, sdkmath.ZeroInt()))
	assert.Equal(t, depositsAfterFirst, rig.pool.DepositCalls,
		"second adjust must not touch the pool")
}

func TestAdjustNoOpInEmergency(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, 100)
	rig.fund(500)

	rig.strat.SetEmergencyExit(true)
	require.NoError(t, rig.strat.Adjust(ctx, sdkmath.ZeroInt()))
	assert.Zero(t, rig.pool.DepositCalls)

	idle, err := rig.want.BalanceOf(ctx, testStrategyID.String())
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(500), idle)
}

func TestLiquidateFromIdleSkipsPool(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, 100)
	rig.fund(500)

	liquidated, loss, err := rig.strat.Liquidate(ctx, sdkmath.NewInt(200))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(200), liquidated)
	assert.True(t, loss.IsZero())
	assert.Zero(t, rig.pool.WithdrawCalls, "idle balance covered the request")
}

func TestLiquidateNeverOverReturns(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, 100)
	rig.fund(500)
	rig.deploy(t)

	for _, needed := range []int64{1, 100, 499, 500, 10_000} {
		rig2 := newTestRig(t, 100)
		rig2.fund(500)
		rig2.deploy(t)

		liquidated, _, err := rig2.strat.Liquidate(ctx, sdkmath.NewInt(needed))
		require.NoError(t, err)
		assert.True(t, liquidated.LTE(sdkmath.NewInt(needed)),
			"liquidated %s exceeds requested %d", liquidated, needed)
	}
}

func TestLiquidateZeroIsNoOp(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, 100)
	rig.fund(500)
	rig.deploy(t)

	liquidated, loss, err := rig.strat.Liquidate(ctx, sdkmath.ZeroInt())
	require.NoError(t, err)
	assert.True(t, liquidated.IsZero())
	assert.True(t, loss.IsZero())
	assert.Zero(t, rig.pool.WithdrawCalls)
}

func TestLiquidateSlippageExceededAborts(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, 100) // tolerate 1%
	rig.fund(500)
	rig.deploy(t)

	rig.pool.SetRedemptionLossBps(300) // pool would lose 3%

	_, _, err := rig.strat.Liquidate(ctx, sdkmath.NewInt(400))
	require.ErrorIs(t, err, pool.ErrSlippageExceeded)

	// Aborted redemption must leave the position untouched.
	shares, berr := rig.pool.BalanceOf(ctx, testStrategyID.String())
	require.NoError(t, berr)
	assert.Equal(t, sdkmath.NewInt(500), shares)
}

func TestReportProfitOnly(t *testing.T) {
	// Tracked debt 100, pool gains 25%: profit 25, nothing requested.
	ctx := context.Background()
	rig := newTestRig(t, 100)
	rig.fund(100)
	rig.deploy(t)

	rig.pool.SetPricePerShare(sdkmath.NewInt(1_250_000))
	rig.want.Mint(rig.pool.Account(), sdkmath.NewInt(25)) // accrued yield backing

	report, err := rig.strat.Report(ctx, sdkmath.ZeroInt())
	require.NoError(t, err)
	requireExclusive(t, report)

	assert.Equal(t, sdkmath.NewInt(25), report.Profit)
	assert.True(t, report.Loss.IsZero())
	assert.True(t, report.DebtPayment.IsZero())
	assert.Equal(t, sdkmath.NewInt(25), report.AmountFreed)
	assert.Equal(t, sdkmath.NewInt(125), report.TotalAssets)
}

func TestReportShortfallIsLoss(t *testing.T) {
	// Tracked debt 100, pool drops to 0.9: the full withdrawal can only
	// free 90, the missing 10 is loss, never negative profit.
	ctx := context.Background()
	rig := newTestRig(t, 10_000)
	rig.fund(100)
	rig.deploy(t)

	rig.pool.SetPricePerShare(sdkmath.NewInt(900_000))

	report, err := rig.strat.Report(ctx, sdkmath.NewInt(100))
	require.NoError(t, err)
	requireExclusive(t, report)

	assert.True(t, report.Profit.IsZero())
	assert.Equal(t, sdkmath.NewInt(10), report.Loss)
	assert.Equal(t, sdkmath.NewInt(90), report.DebtPayment)
	assert.Equal(t, sdkmath.NewInt(90), report.AmountFreed)
}

func TestReportLossAbsorbsProfitFirst(t *testing.T) {
	// Tracked debt 100, valuation 150 (profit 50), but redemption loses 60:
	// the loss eats the profit first, net loss 10, never both nonzero.
	ctx := context.Background()
	rig := newTestRig(t, 5_000)
	rig.fund(100)
	rig.deploy(t)

	rig.pool.SetPricePerShare(sdkmath.NewInt(1_500_000))
	rig.want.Mint(rig.pool.Account(), sdkmath.NewInt(50))
	rig.pool.SetRedemptionLossBps(4_000) // 40% of the 150 redeemed = 60 lost

	report, err := rig.strat.Report(ctx, sdkmath.NewInt(100))
	require.NoError(t, err)
	requireExclusive(t, report)

	assert.True(t, report.Profit.IsZero())
	assert.Equal(t, sdkmath.NewInt(10), report.Loss)
	assert.Equal(t, sdkmath.NewInt(90), report.DebtPayment)
}

func TestReportTreatsNilRequestAsZero(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, 100)
	rig.fund(100)

	report, err := rig.strat.Report(ctx, sdkmath.Int{})
	require.NoError(t, err)
	assert.True(t, report.DebtPayment.IsZero())
}

func TestConservationOnRoundTrip(t *testing.T) {
	// Allocate then immediately liquidate all with no price change: the
	// difference is truncation dust only.
	ctx := context.Background()
	rig := newTestRig(t, 100)
	rig.pool.SetPricePerShare(sdkmath.NewInt(1_234_567))
	rig.fund(1_000_000)

	before, err := rig.strat.TotalAssets(ctx)
	require.NoError(t, err)

	rig.deploy(t)
	_, err = rig.strat.LiquidateAll(ctx)
	require.NoError(t, err)

	after, err := rig.strat.TotalAssets(ctx)
	require.NoError(t, err)

	require.True(t, after.LTE(before), "round trip manufactured value")
	dust := before.Sub(after)
	assert.True(t, dust.LTE(sdkmath.NewInt(2)), "dust %s beyond one unit of share precision", dust)
}

func TestTotalAssetsZeroPriceValuesSharesAtZero(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, 100)
	rig.fund(100)
	rig.deploy(t)

	rig.pool.SetPricePerShare(sdkmath.ZeroInt())

	total, err := rig.strat.TotalAssets(ctx)
	require.NoError(t, err)
	assert.True(t, total.IsZero(), "zero price must not fault, shares valued at zero")
}

func TestMigrateMovesEntireShareBalance(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, 100)
	rig.fund(1_000)
	rig.deploy(t)

	successor := types.StrategyID("strat-2")
	require.NoError(t, rig.strat.Migrate(ctx, successor))

	mine, err := rig.pool.BalanceOf(ctx, testStrategyID.String())
	require.NoError(t, err)
	assert.True(t, mine.IsZero())

	theirs, err := rig.pool.BalanceOf(ctx, successor.String())
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1_000), theirs)

	// Terminal afterwards: pool operations degrade to silent no-ops.
	freed, err := rig.strat.LiquidateAll(ctx)
	require.NoError(t, err)
	assert.True(t, freed.IsZero())

	liquidated, loss, err := rig.strat.Liquidate(ctx, sdkmath.NewInt(100))
	require.NoError(t, err)
	assert.True(t, liquidated.IsZero())
	assert.True(t, loss.IsZero())

	require.ErrorIs(t, rig.strat.Migrate(ctx, "strat-3"), ErrAlreadyMigrated)
}

func TestMigrateRejectsBadSuccessor(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, 100)

	assert.ErrorIs(t, rig.strat.Migrate(ctx, ""), ErrInvalidSuccessor)
	assert.ErrorIs(t, rig.strat.Migrate(ctx, testStrategyID), ErrInvalidSuccessor)
	assert.False(t, rig.strat.Migrated())
}

func TestEnsureApprovalIdempotent(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, 100)

	require.NoError(t, rig.strat.EnsureApproval(ctx))
	first, err := rig.want.Allowance(ctx, testStrategyID.String(), rig.pool.Account())
	require.NoError(t, err)
	assert.True(t, first.IsPositive())

	// Second call finds the allowance intact and leaves it alone.
	require.NoError(t, rig.strat.EnsureApproval(ctx))
	second, err := rig.want.Allowance(ctx, testStrategyID.String(), rig.pool.Account())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPositionSnapshot(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(t, 250)
	rig.fund(800)
	require.NoError(t, rig.strat.Adjust(ctx, sdkmath.NewInt(300)))

	position, err := rig.strat.Position(ctx)
	require.NoError(t, err)

	assert.Equal(t, testStrategyID, position.StrategyID)
	assert.Equal(t, sdkmath.NewInt(300), position.PrimaryBalance)
	assert.Equal(t, sdkmath.NewInt(500), position.PoolShares)
	assert.Equal(t, sdkmath.NewInt(800), position.TrackedDebt)
	assert.Equal(t, uint64(250), position.MaxLossBps)
	assert.False(t, position.EmergencyExit)
	assert.False(t, position.Migrated)
}

func TestFactoryStampsIndependentInstances(t *testing.T) {
	ctx := context.Background()
	want := token.NewMemLedger("USDC")
	simPool := pool.NewSimPool("pool:yield", want, sdkmath.NewInt(1_000_000), shareDecimals)
	simAlloc := allocator.NewSimAllocator()

	factory, err := NewFactory(want, simPool, simPool.Account(), simAlloc, 100)
	require.NoError(t, err)

	a, err := factory.New("strat-a")
	require.NoError(t, err)
	b, err := factory.New("strat-b")
	require.NoError(t, err)

	simAlloc.Fund("strat-a", sdkmath.NewInt(400))
	want.Mint("strat-a", sdkmath.NewInt(400))
	require.NoError(t, a.Adjust(ctx, sdkmath.ZeroInt()))

	aShares, err := simPool.BalanceOf(ctx, "strat-a")
	require.NoError(t, err)
	bShares, err := simPool.BalanceOf(ctx, "strat-b")
	require.NoError(t, err)

	assert.Equal(t, sdkmath.NewInt(400), aShares)
	assert.True(t, bShares.IsZero(), "instances must not share position state")

	b.SetEmergencyExit(true)
	assert.False(t, a.EmergencyExit(), "emergency flag is per instance")
}
