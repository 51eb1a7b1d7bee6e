package strategy

import (
	"fmt"

	"github.com/yieldroute/srm/internal/allocator"
	"github.com/yieldroute/srm/internal/pool"
	"github.com/yieldroute/srm/internal/token"
	"github.com/yieldroute/srm/internal/types"
)

// Factory stamps out independent strategy instances against one shared set
// of collaborators and one slippage configuration. Each instance has its own
// position state; the conversion and accounting logic is stateless and
// shared.
type Factory struct {
	want        token.Ledger
	pool        pool.TargetPool
	poolAccount string
	alloc       allocator.Allocator
	maxLossBps  uint64
}

// NewFactory creates a factory for the given collaborators.
func NewFactory(want token.Ledger, targetPool pool.TargetPool, poolAccount string, alloc allocator.Allocator, maxLossBps uint64) (*Factory, error) {
	probe := Config{
		ID:          "factory-probe",
		Want:        want,
		Pool:        targetPool,
		PoolAccount: poolAccount,
		Allocator:   alloc,
		MaxLossBps:  maxLossBps,
	}
	if err := validateConfig(probe); err != nil {
		return nil, fmt.Errorf("factory configuration validation failed: %w", err)
	}

	return &Factory{
		want:        want,
		pool:        targetPool,
		poolAccount: poolAccount,
		alloc:       alloc,
		maxLossBps:  maxLossBps,
	}, nil
}

// New creates a fresh, empty strategy instance under the given identity.
func (f *Factory) New(id types.StrategyID) (*Strategy, error) {
	return New(Config{
		ID:          id,
		Want:        f.want,
		Pool:        f.pool,
		PoolAccount: f.poolAccount,
		Allocator:   f.alloc,
		MaxLossBps:  f.maxLossBps,
	})
}
