package token

import (
	"context"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
)

// MemLedger is an in-memory Ledger used in sim mode and tests. It applies the
// same balance and allowance rules a live token would, so the strategy code
// exercised against it behaves identically against a real transfer primitive.
type MemLedger struct {
	mu         sync.Mutex
	symbol     string
	balances   map[string]sdkmath.Int
	allowances map[string]map[string]sdkmath.Int
}

// NewMemLedger creates an empty in-memory ledger for the given token symbol.
func NewMemLedger(symbol string) *MemLedger {
	return &MemLedger{
		symbol:     symbol,
		balances:   make(map[string]sdkmath.Int),
		allowances: make(map[string]map[string]sdkmath.Int),
	}
}

// Symbol returns the token's display symbol.
func (l *MemLedger) Symbol() string {
	return l.symbol
}

// Mint credits an account out of thin air. Test and sim setup only.
func (l *MemLedger) Mint(account string, amount sdkmath.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = l.balanceLocked(account).Add(amount)
}

// BalanceOf returns the holder's current balance.
func (l *MemLedger) BalanceOf(ctx context.Context, holder string) (sdkmath.Int, error) {
	if holder == "" {
		return sdkmath.ZeroInt(), ErrInvalidAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(holder), nil
}

// Transfer moves amount from one account to another.
func (l *MemLedger) Transfer(ctx context.Context, from, to string, amount sdkmath.Int) error {
	if from == "" || to == "" {
		return ErrInvalidAccount
	}
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}
	if amount.IsZero() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromBalance := l.balanceLocked(from)
	if fromBalance.LT(amount) {
		return fmt.Errorf("%w: %s has %s %s, need %s", ErrInsufficientBalance, from, fromBalance, l.symbol, amount)
	}
	l.balances[from] = fromBalance.Sub(amount)
	l.balances[to] = l.balanceLocked(to).Add(amount)
	return nil
}

// Approve sets the spender's allowance over the owner's balance.
func (l *MemLedger) Approve(ctx context.Context, owner, spender string, amount sdkmath.Int) error {
	if owner == "" || spender == "" {
		return ErrInvalidAccount
	}
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[string]sdkmath.Int)
	}
	l.allowances[owner][spender] = amount
	return nil
}

// Allowance returns the spender's remaining allowance over the owner's balance.
func (l *MemLedger) Allowance(ctx context.Context, owner, spender string) (sdkmath.Int, error) {
	if owner == "" || spender == "" {
		return sdkmath.ZeroInt(), ErrInvalidAccount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allowances[owner] == nil {
		return sdkmath.ZeroInt(), nil
	}
	allowance, ok := l.allowances[owner][spender]
	if !ok {
		return sdkmath.ZeroInt(), nil
	}
	return allowance, nil
}

// balanceLocked returns the account balance, treating absent entries as zero.
// Caller must hold the mutex.
func (l *MemLedger) balanceLocked(account string) sdkmath.Int {
	balance, ok := l.balances[account]
	if !ok || balance.IsNil() {
		return sdkmath.ZeroInt()
	}
	return balance
}
