package token

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemLedgerTransfer(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemLedger("USDC")
	ledger.Mint("alice", sdkmath.NewInt(100))

	require.NoError(t, ledger.Transfer(ctx, "alice", "bob", sdkmath.NewInt(40)))

	aliceBalance, err := ledger.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "60", aliceBalance.String())

	bobBalance, err := ledger.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "40", bobBalance.String())
}

func TestMemLedgerTransferInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemLedger("USDC")
	ledger.Mint("alice", sdkmath.NewInt(10))

	err := ledger.Transfer(ctx, "alice", "bob", sdkmath.NewInt(11))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// Nothing should have moved.
	aliceBalance, err := ledger.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "10", aliceBalance.String())
}

func TestMemLedgerTransferValidation(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemLedger("USDC")
	ledger.Mint("alice", sdkmath.NewInt(10))

	assert.ErrorIs(t, ledger.Transfer(ctx, "", "bob", sdkmath.NewInt(1)), ErrInvalidAccount)
	assert.ErrorIs(t, ledger.Transfer(ctx, "alice", "", sdkmath.NewInt(1)), ErrInvalidAccount)
	assert.ErrorIs(t, ledger.Transfer(ctx, "alice", "bob", sdkmath.NewInt(-1)), ErrInvalidAmount)
	assert.ErrorIs(t, ledger.Transfer(ctx, "alice", "bob", sdkmath.Int{}), ErrInvalidAmount)

	// Zero transfers are a quiet no-op.
	assert.NoError(t, ledger.Transfer(ctx, "alice", "bob", sdkmath.ZeroInt()))
}

func TestMemLedgerAllowance(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemLedger("USDC")

	allowance, err := ledger.Allowance(ctx, "alice", "spender")
	require.NoError(t, err)
	assert.True(t, allowance.IsZero(), "unset allowance should read zero")

	require.NoError(t, ledger.Approve(ctx, "alice", "spender", sdkmath.NewInt(500)))

	allowance, err = ledger.Allowance(ctx, "alice", "spender")
	require.NoError(t, err)
	assert.Equal(t, "500", allowance.String())

	// Approve overwrites, it does not accumulate.
	require.NoError(t, ledger.Approve(ctx, "alice", "spender", sdkmath.NewInt(7)))
	allowance, err = ledger.Allowance(ctx, "alice", "spender")
	require.NoError(t, err)
	assert.Equal(t, "7", allowance.String())
}
