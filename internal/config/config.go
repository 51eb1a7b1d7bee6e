package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Run modes. Sim wires the in-memory ledger, pool and allocator; live talks
// to a real pool endpoint over JSON-RPC.
const (
	ModeSim  = "sim"
	ModeLive = "live"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// Mode selects how collaborators are wired: "sim" or "live".
	Mode string

	// StrategyID identifies the strategy instance this process manages.
	StrategyID string

	// MaxLossBps is the redemption slippage tolerance in basis points.
	MaxLossBps uint64

	// PoolAccount is the identity want approvals are granted to. Required in
	// live mode; sim mode derives it from the simulated pool.
	PoolAccount string

	// CycleIntervalSeconds is the time between accounting cycles.
	CycleIntervalSeconds uint64

	// WebPort is the port the dashboard and API listen on.
	WebPort int

	// LogLevel is the zerolog level ("debug", "info", "warn", "error").
	LogLevel string

	// DBHost, DBPort, DBUser, DBPassword, DBName, DBSSLMode are the postgres
	// connection parameters for cycle record persistence.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	Mode, err = getEnv("SRM_MODE")
	if err != nil {
		return err
	}
	if Mode != ModeSim && Mode != ModeLive {
		return errors.New("environment variable SRM_MODE must be \"sim\" or \"live\", got: " + Mode)
	}

	StrategyID, err = getEnv("SRM_STRATEGY_ID")
	if err != nil {
		return err
	}

	MaxLossBps, err = getEnvAsUint64("SRM_MAX_LOSS_BPS")
	if err != nil {
		return err
	}

	CycleIntervalSeconds, err = getEnvAsUint64("SRM_CYCLE_INTERVAL_SECONDS")
	if err != nil {
		return err
	}

	if Mode == ModeLive {
		PoolAccount, err = getEnv("SRM_POOL_ACCOUNT")
		if err != nil {
			return err
		}
	}

	WebPort, err = getEnvAsInt("WEB_PORT")
	if err != nil {
		return err
	}

	LogLevel, err = getEnv("LOG_LEVEL")
	if err != nil {
		return err
	}

	DBHost, err = getEnv("DB_HOST")
	if err != nil {
		return err
	}

	DBPort, err = getEnvAsInt("DB_PORT")
	if err != nil {
		return err
	}

	DBUser, err = getEnv("DB_USER")
	if err != nil {
		return err
	}

	DBPassword, err = getEnv("DB_PASSWORD")
	if err != nil {
		return err
	}

	DBName, err = getEnv("DB_NAME")
	if err != nil {
		return err
	}

	DBSSLMode, err = getEnv("DB_SSLMODE")
	if err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("Mode", Mode).
		Str("StrategyID", StrategyID).
		Uint64("MaxLossBps", MaxLossBps).
		Uint64("CycleIntervalSeconds", CycleIntervalSeconds).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}
