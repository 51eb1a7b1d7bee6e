package token

import (
	"context"
	"errors"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for ledger operations
var (
	ErrInvalidAmount       = errors.New("amount is invalid")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAccount      = errors.New("account is invalid")
)

// Ledger abstracts the balance/allowance/transfer primitives of a single
// token. Both the want asset and any auxiliary token the strategy touches are
// accessed through this interface; accounts are opaque identity strings.
type Ledger interface {
	// Symbol returns the token's display symbol.
	Symbol() string

	// BalanceOf returns the holder's current balance.
	BalanceOf(ctx context.Context, holder string) (sdkmath.Int, error)

	// Transfer moves amount from one account to another.
	Transfer(ctx context.Context, from, to string, amount sdkmath.Int) error

	// Approve sets the spender's allowance over the owner's balance.
	Approve(ctx context.Context, owner, spender string, amount sdkmath.Int) error

	// Allowance returns the spender's remaining allowance over the owner's balance.
	Allowance(ctx context.Context, owner, spender string) (sdkmath.Int, error)
}
