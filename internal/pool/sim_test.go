package pool

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldroute/srm/internal/token"
)

// newTestPool returns a pool priced 1:1 at six share decimals plus a funded,
// approved depositor account.
func newTestPool(t *testing.T) (*SimPool, *token.MemLedger) {
	t.Helper()
	ledger := token.NewMemLedger("USDC")
	p := NewSimPool("pool-acct", ledger, sdkmath.NewInt(1_000_000), 6)
	ledger.Mint("depositor", sdkmath.NewInt(1_000))
	require.NoError(t, ledger.Approve(context.Background(), "depositor", p.Account(), sdkmath.NewInt(1_000_000)))
	return p, ledger
}

func TestSimPoolDepositMintsAtPrice(t *testing.T) {
	ctx := context.Background()
	p, ledger := newTestPool(t)

	minted, err := p.Deposit(ctx, "depositor", sdkmath.NewInt(1_000))
	require.NoError(t, err)
	assert.Equal(t, "1000", minted.String())

	held, err := p.BalanceOf(ctx, "depositor")
	require.NoError(t, err)
	assert.Equal(t, "1000", held.String())

	poolBalance, err := ledger.BalanceOf(ctx, p.Account())
	require.NoError(t, err)
	assert.Equal(t, "1000", poolBalance.String(), "deposited want should sit in the pool account")

	// Price doubles: the same shares are now worth twice the want.
	p.SetPricePerShare(sdkmath.NewInt(2_000_000))
	price, err := p.PricePerShare(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2000000", price.String())
}

func TestSimPoolDepositRequiresAllowance(t *testing.T) {
	ctx := context.Background()
	ledger := token.NewMemLedger("USDC")
	p := NewSimPool("pool-acct", ledger, sdkmath.NewInt(1_000_000), 6)
	ledger.Mint("depositor", sdkmath.NewInt(100))

	_, err := p.Deposit(ctx, "depositor", sdkmath.NewInt(100))
	assert.Error(t, err, "deposit without allowance must fail")
}

func TestSimPoolWithdraw(t *testing.T) {
	ctx := context.Background()
	p, ledger := newTestPool(t)
	_, err := p.Deposit(ctx, "depositor", sdkmath.NewInt(1_000))
	require.NoError(t, err)

	proceeds, err := p.Withdraw(ctx, "depositor", sdkmath.NewInt(400), "depositor", 0)
	require.NoError(t, err)
	assert.Equal(t, "400", proceeds.String())

	held, err := p.BalanceOf(ctx, "depositor")
	require.NoError(t, err)
	assert.Equal(t, "600", held.String())

	balance, err := ledger.BalanceOf(ctx, "depositor")
	require.NoError(t, err)
	assert.Equal(t, "400", balance.String())
}

func TestSimPoolWithdrawSlippageBound(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPool(t)
	_, err := p.Deposit(ctx, "depositor", sdkmath.NewInt(1_000))
	require.NoError(t, err)

	// 2% redemption loss against a 1% tolerance: rejected, no state change.
	p.SetRedemptionLossBps(200)
	_, err = p.Withdraw(ctx, "depositor", sdkmath.NewInt(500), "depositor", 100)
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	held, err := p.BalanceOf(ctx, "depositor")
	require.NoError(t, err)
	assert.Equal(t, "1000", held.String(), "failed redemption must not burn shares")

	// The same redemption passes once the tolerance covers the loss.
	proceeds, err := p.Withdraw(ctx, "depositor", sdkmath.NewInt(500), "depositor", 200)
	require.NoError(t, err)
	assert.Equal(t, "490", proceeds.String())
}

func TestSimPoolWithdrawClampsToHeld(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPool(t)
	_, err := p.Deposit(ctx, "depositor", sdkmath.NewInt(100))
	require.NoError(t, err)

	_, err = p.Withdraw(ctx, "depositor", sdkmath.NewInt(101), "depositor", 0)
	assert.ErrorIs(t, err, ErrInsufficientShares)
}

func TestSimPoolTransferShares(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPool(t)
	_, err := p.Deposit(ctx, "depositor", sdkmath.NewInt(1_000))
	require.NoError(t, err)

	require.NoError(t, p.TransferShares(ctx, "depositor", "successor", sdkmath.NewInt(1_000)))

	held, err := p.BalanceOf(ctx, "depositor")
	require.NoError(t, err)
	assert.True(t, held.IsZero())

	successorHeld, err := p.BalanceOf(ctx, "successor")
	require.NoError(t, err)
	assert.Equal(t, "1000", successorHeld.String())

	assert.ErrorIs(t, p.TransferShares(ctx, "depositor", "successor", sdkmath.NewInt(1)), ErrInsufficientShares)
}
