package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/yourusername/datacollector/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Providers ProvidersConfig
	Cycle     CycleConfig
}

// ServerConfig holds HTTP server configuration for the read-side API.
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds MongoDB configuration.
type DatabaseConfig struct {
	URI      string
	Database string
}

// ProvidersConfig holds the credentials each adapter needs. Only
// CryptoCompare requires one among the five supported providers; the rest
// are public endpoints.
type ProvidersConfig struct {
	CryptoCompareAPIKey string
}

// TimeframeTarget pairs a canonical timeframe with its coverage horizon.
type TimeframeTarget struct {
	Timeframe  models.Timeframe
	TargetDays int
}

// CycleConfig holds the knobs the orchestrator reads once per invocation.
// This generalizes the teacher's HistoricalDataConfig from one field per
// hardcoded timeframe into a declared list, since the spec requires target
// horizons to be configuration, not compiled-in constants.
type CycleConfig struct {
	Symbols          []string
	Timeframes       []TimeframeTarget
	BatchSize        int
	CycleBudgetMs    int
	MaxCallsPerCycle int
}

// Load reads configuration from environment variables, falling back to a
// .env file in the working directory if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "datacollector"),
		},
		Providers: ProvidersConfig{
			CryptoCompareAPIKey: getEnv("CRYPTOCOMPARE_API_KEY", ""),
		},
		Cycle: CycleConfig{
			Symbols:          getEnvList("BACKFILL_SYMBOLS", []string{"BTC", "ETH"}),
			Timeframes:       parseTimeframeTargets(getEnv("BACKFILL_TIMEFRAMES", "1h:730,1d:1825")),
			BatchSize:        getEnvInt("BACKFILL_BATCH_SIZE", 500),
			CycleBudgetMs:    getEnvInt("CYCLE_BUDGET_MS", 50000),
			MaxCallsPerCycle: getEnvInt("MAX_CALLS_PER_CYCLE", 60),
		},
	}

	if cfg.Database.URI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if len(cfg.Cycle.Symbols) == 0 {
		return nil, fmt.Errorf("BACKFILL_SYMBOLS must list at least one symbol")
	}
	if len(cfg.Cycle.Timeframes) == 0 {
		return nil, fmt.Errorf("BACKFILL_TIMEFRAMES must list at least one timeframe")
	}

	return cfg, nil
}

// parseTimeframeTargets parses a "1m:7,1h:180,1d:1095" style list into
// TimeframeTarget entries, skipping any entry naming an unknown timeframe
// or a malformed target_days value rather than failing the whole config.
func parseTimeframeTargets(raw string) []TimeframeTarget {
	var out []TimeframeTarget
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pieces := strings.SplitN(part, ":", 2)
		if len(pieces) != 2 {
			continue
		}
		tf := models.Timeframe(strings.TrimSpace(pieces[0]))
		if !models.IsValidTimeframe(tf) {
			continue
		}
		days, err := strconv.Atoi(strings.TrimSpace(pieces[1]))
		if err != nil || days <= 0 {
			continue
		}
		out = append(out, TimeframeTarget{Timeframe: tf, TargetDays: days})
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, s := range strings.Split(value, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return intVal
	}
	return defaultValue
}
