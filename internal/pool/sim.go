package pool

import (
	"context"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/yieldroute/srm/internal/convert"
	"github.com/yieldroute/srm/internal/logger"
	"github.com/yieldroute/srm/internal/token"
)

// SimPool is an in-memory TargetPool used in sim mode and tests. Share
// accounting follows the same rules as a live pool: deposits consume
// allowance and mint shares at the current price, withdrawals burn shares and
// pay proceeds through the want ledger, and a configurable redemption loss
// lets tests exercise the slippage bound.
type SimPool struct {
	mu sync.Mutex

	account    string // the pool's own ledger account, holds deposited want
	underlying string
	want       *token.MemLedger
	decimals   uint8

	pricePerShare     sdkmath.Int
	redemptionLossBps uint64 // loss applied to every redemption, 0 in the happy path

	shares      map[string]sdkmath.Int
	totalShares sdkmath.Int

	// Interaction counters, read by tests asserting no unnecessary pool calls.
	DepositCalls  int
	WithdrawCalls int
}

// NewSimPool creates a simulated pool holding want on the given ledger
// account, priced at pricePerShare with the given share decimals.
func NewSimPool(account string, want *token.MemLedger, pricePerShare sdkmath.Int, decimals uint8) *SimPool {
	simLogger := logger.GetForComponent("sim_pool")
	simLogger.Debug().
		Str("account", account).
		Str("pricePerShare", pricePerShare.String()).
		Uint8("decimals", decimals).
		Msg("Simulated pool created")

	return &SimPool{
		account:       account,
		underlying:    want.Symbol(),
		want:          want,
		decimals:      decimals,
		pricePerShare: pricePerShare,
		shares:        make(map[string]sdkmath.Int),
		totalShares:   sdkmath.ZeroInt(),
	}
}

// Account returns the pool's own ledger account.
func (p *SimPool) Account() string {
	return p.account
}

// SetPricePerShare overrides the pool's exchange rate. Raising the price
// simulates accrued yield; the test funds the pool account separately so
// redemptions at the higher price can be paid.
func (p *SimPool) SetPricePerShare(price sdkmath.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pricePerShare = price
}

// SetRedemptionLossBps injects a loss, in basis points, into every
// subsequent redemption.
func (p *SimPool) SetRedemptionLossBps(bps uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redemptionLossBps = bps
}

// Deposit invests amount of the depositor's want and mints shares at the
// current price. Share minting truncates down, favoring the pool.
func (p *SimPool) Deposit(ctx context.Context, depositor string, amount sdkmath.Int) (sdkmath.Int, error) {
	if depositor == "" {
		return sdkmath.ZeroInt(), ErrInvalidHolder
	}
	if amount.IsNil() || amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrInvalidAmount
	}
	if amount.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.DepositCalls++

	allowance, err := p.want.Allowance(ctx, depositor, p.account)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if allowance.LT(amount) {
		return sdkmath.ZeroInt(), fmt.Errorf("allowance %s below deposit amount %s", allowance, amount)
	}

	minted := convert.AssetsToShares(amount, p.pricePerShare, p.decimals)
	if minted.IsZero() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: deposit of %s mints zero shares at price %s",
			ErrInvalidAmount, amount, p.pricePerShare)
	}

	if err := p.want.Transfer(ctx, depositor, p.account, amount); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if err := p.want.Approve(ctx, depositor, p.account, allowance.Sub(amount)); err != nil {
		return sdkmath.ZeroInt(), err
	}

	p.shares[depositor] = p.shareBalanceLocked(depositor).Add(minted)
	p.totalShares = p.totalShares.Add(minted)
	return minted, nil
}

// Withdraw burns shareAmount of the holder's shares and pays the proceeds,
// minus any configured redemption loss, to recipient. If the loss would
// surpass maxLossBps the redemption fails with no state change.
func (p *SimPool) Withdraw(ctx context.Context, holder string, shareAmount sdkmath.Int, recipient string, maxLossBps uint64) (sdkmath.Int, error) {
	if holder == "" || recipient == "" {
		return sdkmath.ZeroInt(), ErrInvalidHolder
	}
	if shareAmount.IsNil() || shareAmount.IsNegative() {
		return sdkmath.ZeroInt(), ErrInvalidAmount
	}
	if shareAmount.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.WithdrawCalls++

	held := p.shareBalanceLocked(holder)
	if held.LT(shareAmount) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: hold %s, requested %s", ErrInsufficientShares, held, shareAmount)
	}

	value := convert.SharesToAssets(shareAmount, p.pricePerShare, p.decimals)
	loss := value.MulRaw(int64(p.redemptionLossBps)).QuoRaw(convert.BpsDenominator)
	proceeds := value.Sub(loss)

	if proceeds.LT(convert.MinOutForLoss(value, maxLossBps)) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: proceeds %s below tolerance floor for %s at %d bps",
			ErrSlippageExceeded, proceeds, value, maxLossBps)
	}

	if proceeds.IsPositive() {
		if err := p.want.Transfer(ctx, p.account, recipient, proceeds); err != nil {
			return sdkmath.ZeroInt(), err
		}
	}

	p.shares[holder] = held.Sub(shareAmount)
	p.totalShares = p.totalShares.Sub(shareAmount)
	return proceeds, nil
}

// BalanceOf returns the holder's current share balance.
func (p *SimPool) BalanceOf(ctx context.Context, holder string) (sdkmath.Int, error) {
	if holder == "" {
		return sdkmath.ZeroInt(), ErrInvalidHolder
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shareBalanceLocked(holder), nil
}

// PricePerShare returns the pool's current exchange rate.
func (p *SimPool) PricePerShare(ctx context.Context) (sdkmath.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pricePerShare, nil
}

// Decimals returns the share precision the price is quoted against.
func (p *SimPool) Decimals(ctx context.Context) (uint8, error) {
	return p.decimals, nil
}

// UnderlyingToken returns the symbol of the pool's underlying token.
func (p *SimPool) UnderlyingToken(ctx context.Context) (string, error) {
	return p.underlying, nil
}

// TransferShares moves shares between holders without redeeming them.
func (p *SimPool) TransferShares(ctx context.Context, from, to string, shareAmount sdkmath.Int) error {
	if from == "" || to == "" {
		return ErrInvalidHolder
	}
	if shareAmount.IsNil() || shareAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if shareAmount.IsZero() {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	held := p.shareBalanceLocked(from)
	if held.LT(shareAmount) {
		return fmt.Errorf("%w: hold %s, transferring %s", ErrInsufficientShares, held, shareAmount)
	}
	p.shares[from] = held.Sub(shareAmount)
	p.shares[to] = p.shareBalanceLocked(to).Add(shareAmount)
	return nil
}

// shareBalanceLocked returns the holder's share balance, treating absent
// entries as zero. Caller must hold the mutex.
func (p *SimPool) shareBalanceLocked(holder string) sdkmath.Int {
	balance, ok := p.shares[holder]
	if !ok || balance.IsNil() {
		return sdkmath.ZeroInt()
	}
	return balance
}
