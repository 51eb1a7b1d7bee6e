package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function. All three are
// required in live mode and ignored in sim mode.
var (
	// PoolRPC is the JSON-RPC endpoint of the target pool node.
	PoolRPC string
	// LedgerRPC is the JSON-RPC endpoint of the want token ledger node.
	LedgerRPC string
	// AllocatorRPC is the JSON-RPC endpoint of the controlling vault node.
	AllocatorRPC string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in config.go.
func loadEndpointConfig() error {
	if Mode != ModeLive {
		PoolRPC = ""
		LedgerRPC = ""
		AllocatorRPC = ""
		return nil
	}

	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	PoolRPC, err = getEnv("POOL_RPC_ENDPOINT")
	if err != nil {
		return err
	}

	LedgerRPC, err = getEnv("LEDGER_RPC_ENDPOINT")
	if err != nil {
		return err
	}

	AllocatorRPC, err = getEnv("ALLOCATOR_RPC_ENDPOINT")
	if err != nil {
		return err
	}

	log.Debug().
		Str("PoolRPC", PoolRPC).
		Str("LedgerRPC", LedgerRPC).
		Str("AllocatorRPC", AllocatorRPC).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
