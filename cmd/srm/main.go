package main

import (
	"context"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/yieldroute/srm/internal/allocator"
	"github.com/yieldroute/srm/internal/config"
	"github.com/yieldroute/srm/internal/engine"
	"github.com/yieldroute/srm/internal/logger"
	"github.com/yieldroute/srm/internal/pool"
	"github.com/yieldroute/srm/internal/state"
	"github.com/yieldroute/srm/internal/strategy"
	"github.com/yieldroute/srm/internal/token"
	"github.com/yieldroute/srm/internal/types"
	"github.com/yieldroute/srm/internal/web"
)

// Sim mode seeds a self-contained world: one want ledger, one pool priced
// 1:1 at six share decimals, and this much want granted to the strategy.
const (
	simSeedAmount    = 1_000_000_000_000
	simPricePerShare = 1_000_000
	simShareDecimals = 6
)

// main is the entry point for the SRM system.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(config.LogLevel)
	log.Info().Msg("SRM Core Logic Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: config.DBHost, Port: config.DBPort,
		User: config.DBUser, Password: config.DBPassword,
		DBName: config.DBName, SSLMode: config.DBSSLMode,
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- Start Web Server ---
	webPort := strconv.Itoa(config.WebPort)
	webServer := web.NewWebServer(webPort)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting SRM web dashboard")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 2. Collaborator Initialization (with Safety Switch) ---
	strategyID := types.StrategyID(config.StrategyID)

	var want token.Ledger
	var targetPool pool.TargetPool
	var alloc allocator.Allocator
	var poolAccount string

	switch config.Mode {
	case config.ModeLive:
		log.Warn().Msg("Initializing SRM in LIVE mode. Real pool transactions will be submitted.")

		liveLedger, err := token.NewRPCLedger(config.LedgerRPC)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize ledger RPC client")
		}
		livePool, err := pool.NewRPCPool(config.PoolRPC)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize pool RPC client")
		}
		liveAlloc, err := allocator.NewRPCAllocator(config.AllocatorRPC)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize allocator RPC client")
		}

		want = liveLedger
		targetPool = livePool
		alloc = liveAlloc
		poolAccount = config.PoolAccount

	case config.ModeSim:
		log.Info().Msg("Initializing SRM in SIM mode. All collaborators are in-memory.")

		ledger := token.NewMemLedger("USDC")
		simPool := pool.NewSimPool("sim-pool", ledger, sdkmath.NewInt(simPricePerShare), simShareDecimals)
		simAlloc := allocator.NewSimAllocator()

		// Seed the strategy with simulated capital so cycles have work to do.
		seed := sdkmath.NewInt(simSeedAmount)
		ledger.Mint(strategyID.String(), seed)
		simAlloc.Fund(strategyID, seed)

		want = ledger
		targetPool = simPool
		alloc = simAlloc
		poolAccount = simPool.Account()

	default:
		log.Fatal().Str("mode", config.Mode).Msg("SRM_MODE must be 'sim' or 'live'. Halting to prevent accidental execution.")
	}

	// --- 3. Create Strategy and Engine with Dependency Injection ---
	log.Info().Msg("Creating strategy instance with dependency injection...")

	strat, err := strategy.New(strategy.Config{
		ID:          strategyID,
		Want:        want,
		Pool:        targetPool,
		PoolAccount: poolAccount,
		Allocator:   alloc,
		MaxLossBps:  config.MaxLossBps,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create strategy instance")
	}

	ctx := context.Background()
	if err := strat.EnsureApproval(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to grant pool spending approval")
	}

	eng, err := engine.NewEngine(engine.Config{
		Strategy:  strat,
		Allocator: alloc,
		Store:     engine.NewStateRecordStore(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}

	log.Info().Msg("Engine instance created successfully")

	// --- 4. Start Engine Main Loop ---
	interval := time.Duration(config.CycleIntervalSeconds) * time.Second
	log.Info().Str("interval", interval.String()).Msg("Starting engine main loop")

	// Start the engine loop (this will run indefinitely)
	eng.RunLoop(ctx, interval)
}
