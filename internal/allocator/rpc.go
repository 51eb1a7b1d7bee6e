package allocator

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/yieldroute/srm/internal/logger"
	"github.com/yieldroute/srm/internal/rpcclient"
	"github.com/yieldroute/srm/internal/types"
)

var rpcLogger = logger.GetForComponent("allocator_rpc")

// reportParams carries an alloc_onReport request. Amounts travel as decimal
// strings to survive JSON number precision.
type reportParams struct {
	StrategyID  string `json:"strategy_id"`
	Profit      string `json:"profit"`
	Loss        string `json:"loss"`
	DebtPayment string `json:"debt_payment"`
	AmountFreed string `json:"amount_freed"`
	TotalAssets string `json:"total_assets"`
}

// RPCAllocator implements Allocator against the vault node's JSON-RPC
// interface.
type RPCAllocator struct {
	client *rpcclient.Client
}

// NewRPCAllocator creates an allocator client for the given JSON-RPC endpoint.
func NewRPCAllocator(endpoint string) (*RPCAllocator, error) {
	client, err := rpcclient.New(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create allocator RPC client: %w", err)
	}

	rpcLogger.Info().Str("endpoint", endpoint).Msg("Allocator RPC client initialized")
	return &RPCAllocator{client: client}, nil
}

// TrackedDebt returns the capital the allocator believes is deployed into the
// given strategy.
func (a *RPCAllocator) TrackedDebt(ctx context.Context, id types.StrategyID) (sdkmath.Int, error) {
	return a.client.CallForInt(ctx, "alloc_trackedDebt", map[string]string{"strategy_id": id.String()})
}

// DebtOutstanding returns the portion of tracked debt currently requested back.
func (a *RPCAllocator) DebtOutstanding(ctx context.Context, id types.StrategyID) (sdkmath.Int, error) {
	return a.client.CallForInt(ctx, "alloc_debtOutstanding", map[string]string{"strategy_id": id.String()})
}

// OnReport delivers the cycle report for settlement.
func (a *RPCAllocator) OnReport(ctx context.Context, id types.StrategyID, report types.CycleReport) error {
	if report.Profit.IsNil() || report.Loss.IsNil() || report.DebtPayment.IsNil() {
		return fmt.Errorf("report for %s has nil amounts", id)
	}

	if err := a.client.Call(ctx, "alloc_onReport", reportParams{
		StrategyID:  id.String(),
		Profit:      report.Profit.String(),
		Loss:        report.Loss.String(),
		DebtPayment: report.DebtPayment.String(),
		AmountFreed: report.AmountFreed.String(),
		TotalAssets: report.TotalAssets.String(),
	}, nil); err != nil {
		return err
	}

	rpcLogger.Info().
		Str("strategyId", id.String()).
		Str("profit", report.Profit.String()).
		Str("loss", report.Loss.String()).
		Str("debtPayment", report.DebtPayment.String()).
		Msg("Cycle report delivered to allocator")
	return nil
}
