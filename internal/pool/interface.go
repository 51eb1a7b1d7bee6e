package pool

import (
	"context"
	"errors"

	sdkmath "cosmossdk.io/math"
)

// Error definitions shared by all pool implementations
var (
	ErrSlippageExceeded   = errors.New("redemption loss exceeds slippage tolerance")
	ErrInsufficientShares = errors.New("insufficient pool shares")
	ErrInvalidAmount      = errors.New("amount is invalid")
	ErrInvalidHolder      = errors.New("holder is invalid")
	ErrPoolUnavailable    = errors.New("pool is unavailable")
)

// TargetPool defines the interface to the secondary yield-bearing pool the
// strategy routes capital into. This abstracts away the specific pool
// implementation (in-memory simulation, remote node, etc.). All pool calls
// are synchronous and surface failure immediately; retries are the caller's
// concern.
type TargetPool interface {
	// Deposit invests amount of the depositor's want into the pool and
	// returns the shares minted. Requires a prior approval of at least
	// amount in favor of the pool.
	Deposit(ctx context.Context, depositor string, amount sdkmath.Int) (sdkmath.Int, error)

	// Withdraw redeems shareAmount of the holder's shares and pays the
	// proceeds to recipient. Fails with ErrSlippageExceeded, leaving state
	// untouched, if the redemption loss would surpass maxLossBps. Returns
	// the want amount actually paid out.
	Withdraw(ctx context.Context, holder string, shareAmount sdkmath.Int, recipient string, maxLossBps uint64) (sdkmath.Int, error)

	// BalanceOf returns the holder's current share balance.
	BalanceOf(ctx context.Context, holder string) (sdkmath.Int, error)

	// PricePerShare returns the pool's live exchange rate. Never cached by
	// callers: the pool accrues yield continuously.
	PricePerShare(ctx context.Context) (sdkmath.Int, error)

	// Decimals returns the share precision the price is quoted against.
	Decimals(ctx context.Context) (uint8, error)

	// UnderlyingToken returns the identifier of the pool's underlying token.
	UnderlyingToken(ctx context.Context) (string, error)

	// TransferShares moves shares between holders without redeeming them.
	// Either the full amount moves or none does.
	TransferShares(ctx context.Context, from, to string, shareAmount sdkmath.Int) error
}
