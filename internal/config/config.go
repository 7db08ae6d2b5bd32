// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/helixtrade/helix/internal/domain"
)

// Config holds application configuration loaded from the environment.
// Tunable domain parameters (weights, thresholds, risk limits, watchlists)
// live in the settings table and are read through the settings repository;
// the Default* values below are the code-level fallbacks.
type Config struct {
	DataDir       string // Base directory for the database (always absolute)
	Port          int
	LogLevel      string
	DevMode       bool
	ScanSchedule  string // cron spec (with seconds) for the signal scan
	NotifierToken string // outbound notifier credential, optional
	NotifierChat  string
	BackupBucket  string // S3 bucket for database snapshots, empty disables
	BackupPrefix  string
}

// Load reads configuration from environment variables (.env honoured).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("HELIX_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		Port:          getEnvAsInt("HELIX_PORT", 8000),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		ScanSchedule:  getEnv("SCAN_SCHEDULE", "0 0 */4 * * *"), // every 4 hours
		NotifierToken: getEnv("NOTIFIER_TOKEN", ""),
		NotifierChat:  getEnv("NOTIFIER_CHAT", ""),
		BackupBucket:  getEnv("BACKUP_S3_BUCKET", ""),
		BackupPrefix:  getEnv("BACKUP_S3_PREFIX", "helix-backups"),
	}

	return cfg, nil
}

// DatabasePath returns the path of the main sqlite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "helix.db")
}

// === DOMAIN PARAMETER DEFAULTS ===
// These are the code-level priors; the settings table can override each one.

// DefaultWeights are the prior factor weights, summing to 1.
// The technical/sentiment/ml ratio is 0.35 : 0.25 : 0.40, scaled down to
// make room for the macro regime term.
var DefaultWeights = domain.Weights{
	Technical: 0.315,
	Sentiment: 0.225,
	ML:        0.36,
	Macro:     0.10,
}

// DefaultThresholds are the base entry gates before regime adjustment.
var DefaultThresholds = domain.Thresholds{
	Buy:            0.30,
	BuyConfidence:  0.65,
	Sell:           -0.20,
	SellConfidence: 0.50,
}

// Risk limits.
const (
	MaxSinglePosition  = 0.15 // max fraction of portfolio in one position
	MaxCryptoAlloc     = 0.30 // max fraction of portfolio in crypto
	MaxTradeRisk       = 0.01 // max fraction of portfolio risked per trade
	MinCashReserve     = 0.10 // BUYs blocked below this cash fraction
	DrawdownWarning    = 0.08 // halve new positions
	DrawdownHalt       = 0.12 // block new BUYs
	DrawdownReduce     = 0.15 // reduce 25%, move to cash
	RiskRewardMultiple = 2.0  // target = entry + 2x stop distance
)

// Stop-loss parameters.
const (
	StopATRMultiplier = 2.0
	StopPercentage    = 0.05
	TrailingStopPct   = 0.07
)

// ML parameters.
const (
	RetrainIntervalDays = 60
	ForwardDays         = 5
	LSTMWindow          = 60
)

// Paper trading parameters.
const (
	PaperInitialCapital = 100_000.0
	PaperCommission     = 0.001
	PaperTrailingPct    = 0.07
)

// Adaptive weight learning.
const (
	AdaptiveMinSamples = 30
	AdaptivePriorBlend = 0.50
)

// DefaultWatchlistStocks is the equity watchlist fallback.
var DefaultWatchlistStocks = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "AMD",
}

// DefaultWatchlistCrypto is the crypto watchlist fallback.
var DefaultWatchlistCrypto = []string{"BTC-USD", "ETH-USD"}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
