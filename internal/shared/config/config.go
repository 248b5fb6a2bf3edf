package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the gateway
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Provider API Keys
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Rate Limiting
	DefaultRateLimit int

	// Optimization pipeline
	OptimizationsEnabled bool

	// Response cache
	CacheEnabled      bool
	CacheMemorySize   int
	CacheTTL          time.Duration
	CacheCleanupEvery time.Duration
	CacheSeedEnabled  bool

	// Token budgets
	BudgetSnapshotPath string
	BudgetFlushEvery   time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("ENV", "development"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379"),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey:      getEnv("ANTHROPIC_API_KEY", ""),
		DefaultRateLimit:     getEnvInt("DEFAULT_RATE_LIMIT", 100),
		OptimizationsEnabled: getEnvBool("ENABLE_OPTIMIZATIONS", true),
		CacheEnabled:         getEnvBool("CACHE_ENABLED", true),
		CacheMemorySize:      getEnvInt("CACHE_MEMORY_SIZE", 100),
		CacheTTL:             getEnvDuration("CACHE_TTL", 7*24*time.Hour),
		CacheCleanupEvery:    getEnvDuration("CACHE_CLEANUP_INTERVAL", time.Hour),
		CacheSeedEnabled:     getEnvBool("CACHE_SEED_ENABLED", false),
		BudgetSnapshotPath:   getEnv("BUDGET_SNAPSHOT_PATH", ""),
		BudgetFlushEvery:     getEnvDuration("BUDGET_FLUSH_INTERVAL", 5*time.Minute),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// At least one provider API key is required
	if cfg.OpenAIAPIKey == "" && cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("at least one provider API key is required (OPENAI_API_KEY or ANTHROPIC_API_KEY)")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
