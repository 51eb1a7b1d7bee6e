package pool

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/yieldroute/srm/internal/logger"
	"github.com/yieldroute/srm/internal/rpcclient"
)

// rpcCodeSlippage is the application error code a pool node returns when a
// withdrawal would breach the caller's loss tolerance.
const rpcCodeSlippage = -32050

var rpcLogger = logger.GetForComponent("pool_rpc")

// withdrawParams carries a pool_withdraw request. Amounts travel as decimal
// strings to survive JSON number precision.
type withdrawParams struct {
	Holder     string `json:"holder"`
	Shares     string `json:"shares"`
	Recipient  string `json:"recipient"`
	MaxLossBps uint64 `json:"max_loss_bps"`
}

// depositParams carries a pool_deposit request.
type depositParams struct {
	Depositor string `json:"depositor"`
	Amount    string `json:"amount"`
}

// transferParams carries a pool_transferShares request.
type transferParams struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Shares string `json:"shares"`
}

// RPCPool implements TargetPool against a pool node's JSON-RPC interface.
type RPCPool struct {
	client *rpcclient.Client
}

// NewRPCPool creates a pool client for the given JSON-RPC endpoint.
func NewRPCPool(endpoint string) (*RPCPool, error) {
	client, err := rpcclient.New(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool RPC client: %w", err)
	}

	rpcLogger.Info().Str("endpoint", endpoint).Msg("Pool RPC client initialized")
	return &RPCPool{client: client}, nil
}

// mapError translates node application codes onto pool sentinels. A transport
// failure, as opposed to a node-reported error, marks the pool unavailable.
func mapError(err error) error {
	var rpcErr *rpcclient.JSONRPCError
	if errors.As(err, &rpcErr) {
		if rpcErr.Code == rpcCodeSlippage {
			return fmt.Errorf("%w: %s", ErrSlippageExceeded, rpcErr.Message)
		}
		return err
	}
	if errors.Is(err, rpcclient.ErrRequestFailed) {
		return errors.Join(ErrPoolUnavailable, err)
	}
	return err
}

// Deposit invests amount of the depositor's want into the pool.
func (p *RPCPool) Deposit(ctx context.Context, depositor string, amount sdkmath.Int) (sdkmath.Int, error) {
	if depositor == "" {
		return sdkmath.ZeroInt(), ErrInvalidHolder
	}
	if amount.IsNil() || amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrInvalidAmount
	}
	if amount.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	minted, err := p.client.CallForInt(ctx, "pool_deposit", depositParams{
		Depositor: depositor,
		Amount:    amount.String(),
	})
	if err != nil {
		return sdkmath.ZeroInt(), mapError(err)
	}

	rpcLogger.Info().
		Str("depositor", depositor).
		Str("amount", amount.String()).
		Str("sharesMinted", minted.String()).
		Msg("Pool deposit executed")
	return minted, nil
}

// Withdraw redeems shareAmount of the holder's shares to recipient.
func (p *RPCPool) Withdraw(ctx context.Context, holder string, shareAmount sdkmath.Int, recipient string, maxLossBps uint64) (sdkmath.Int, error) {
	if holder == "" || recipient == "" {
		return sdkmath.ZeroInt(), ErrInvalidHolder
	}
	if shareAmount.IsNil() || shareAmount.IsNegative() {
		return sdkmath.ZeroInt(), ErrInvalidAmount
	}
	if shareAmount.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	proceeds, err := p.client.CallForInt(ctx, "pool_withdraw", withdrawParams{
		Holder:     holder,
		Shares:     shareAmount.String(),
		Recipient:  recipient,
		MaxLossBps: maxLossBps,
	})
	if err != nil {
		return sdkmath.ZeroInt(), mapError(err)
	}

	rpcLogger.Info().
		Str("holder", holder).
		Str("shares", shareAmount.String()).
		Str("proceeds", proceeds.String()).
		Uint64("maxLossBps", maxLossBps).
		Msg("Pool withdrawal executed")
	return proceeds, nil
}

// BalanceOf returns the holder's current share balance.
func (p *RPCPool) BalanceOf(ctx context.Context, holder string) (sdkmath.Int, error) {
	if holder == "" {
		return sdkmath.ZeroInt(), ErrInvalidHolder
	}
	balance, err := p.client.CallForInt(ctx, "pool_balanceOf", map[string]string{"holder": holder})
	if err != nil {
		return sdkmath.ZeroInt(), mapError(err)
	}
	return balance, nil
}

// PricePerShare returns the pool's live exchange rate.
func (p *RPCPool) PricePerShare(ctx context.Context) (sdkmath.Int, error) {
	price, err := p.client.CallForInt(ctx, "pool_pricePerShare", nil)
	if err != nil {
		return sdkmath.ZeroInt(), mapError(err)
	}
	return price, nil
}

// Decimals returns the share precision the price is quoted against.
func (p *RPCPool) Decimals(ctx context.Context) (uint8, error) {
	var decimals uint8
	if err := p.client.Call(ctx, "pool_decimals", nil, &decimals); err != nil {
		return 0, mapError(err)
	}
	if decimals > 18 {
		return 0, errors.Join(rpcclient.ErrInvalidResponse, fmt.Errorf("decimals %d out of range", decimals))
	}
	return decimals, nil
}

// UnderlyingToken returns the identifier of the pool's underlying token.
func (p *RPCPool) UnderlyingToken(ctx context.Context) (string, error) {
	var underlying string
	if err := p.client.Call(ctx, "pool_underlyingToken", nil, &underlying); err != nil {
		return "", mapError(err)
	}
	if underlying == "" {
		return "", errors.Join(rpcclient.ErrInvalidResponse, errors.New("empty underlying token identifier"))
	}
	return underlying, nil
}

// TransferShares moves shares between holders without redeeming them.
func (p *RPCPool) TransferShares(ctx context.Context, from, to string, shareAmount sdkmath.Int) error {
	if from == "" || to == "" {
		return ErrInvalidHolder
	}
	if shareAmount.IsNil() || shareAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if shareAmount.IsZero() {
		return nil
	}

	if err := p.client.Call(ctx, "pool_transferShares", transferParams{
		From:   from,
		To:     to,
		Shares: shareAmount.String(),
	}, nil); err != nil {
		return mapError(err)
	}

	rpcLogger.Info().
		Str("from", from).
		Str("to", to).
		Str("shares", shareAmount.String()).
		Msg("Pool share transfer executed")
	return nil
}
