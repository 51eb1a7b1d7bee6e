package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/yieldroute/srm/internal/logger"
	"github.com/yieldroute/srm/internal/rpcclient"
)

var rpcLogger = logger.GetForComponent("token_rpc")

// ledgerTransferParams carries a token_transfer request. Amounts travel as
// decimal strings to survive JSON number precision.
type ledgerTransferParams struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// approveParams carries a token_approve request.
type approveParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// allowanceParams carries a token_allowance request.
type allowanceParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

// RPCLedger implements Ledger against a ledger node's JSON-RPC interface.
type RPCLedger struct {
	client *rpcclient.Client
	symbol string
}

// NewRPCLedger creates a ledger client for the given JSON-RPC endpoint. The
// token symbol is fetched once at construction; a node that cannot answer it
// is not usable.
func NewRPCLedger(endpoint string) (*RPCLedger, error) {
	client, err := rpcclient.New(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger RPC client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var symbol string
	if err := client.Call(ctx, "token_symbol", nil, &symbol); err != nil {
		return nil, fmt.Errorf("failed to query token symbol: %w", err)
	}
	if symbol == "" {
		return nil, errors.Join(rpcclient.ErrInvalidResponse, errors.New("empty token symbol"))
	}

	rpcLogger.Info().Str("endpoint", endpoint).Str("symbol", symbol).Msg("Ledger RPC client initialized")
	return &RPCLedger{client: client, symbol: symbol}, nil
}

// Symbol returns the token's display symbol.
func (l *RPCLedger) Symbol() string {
	return l.symbol
}

// BalanceOf returns the holder's current balance.
func (l *RPCLedger) BalanceOf(ctx context.Context, holder string) (sdkmath.Int, error) {
	if holder == "" {
		return sdkmath.ZeroInt(), ErrInvalidAccount
	}
	return l.client.CallForInt(ctx, "token_balanceOf", map[string]string{"holder": holder})
}

// Transfer moves amount from one account to another.
func (l *RPCLedger) Transfer(ctx context.Context, from, to string, amount sdkmath.Int) error {
	if from == "" || to == "" {
		return ErrInvalidAccount
	}
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}
	if amount.IsZero() {
		return nil
	}

	if err := l.client.Call(ctx, "token_transfer", ledgerTransferParams{
		From:   from,
		To:     to,
		Amount: amount.String(),
	}, nil); err != nil {
		return err
	}

	rpcLogger.Info().
		Str("from", from).
		Str("to", to).
		Str("amount", amount.String()).
		Msg("Token transfer executed")
	return nil
}

// Approve sets the spender's allowance over the owner's balance.
func (l *RPCLedger) Approve(ctx context.Context, owner, spender string, amount sdkmath.Int) error {
	if owner == "" || spender == "" {
		return ErrInvalidAccount
	}
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}

	if err := l.client.Call(ctx, "token_approve", approveParams{
		Owner:   owner,
		Spender: spender,
		Amount:  amount.String(),
	}, nil); err != nil {
		return err
	}

	rpcLogger.Info().
		Str("owner", owner).
		Str("spender", spender).
		Str("amount", amount.String()).
		Msg("Token approval executed")
	return nil
}

// Allowance returns the spender's remaining allowance over the owner's balance.
func (l *RPCLedger) Allowance(ctx context.Context, owner, spender string) (sdkmath.Int, error) {
	if owner == "" || spender == "" {
		return sdkmath.ZeroInt(), ErrInvalidAccount
	}
	return l.client.CallForInt(ctx, "token_allowance", allowanceParams{
		Owner:   owner,
		Spender: spender,
	})
}
