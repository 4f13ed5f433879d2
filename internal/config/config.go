package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL string
	ServerPort  string
	FrontendURL string

	// LLM backend. An empty OpenAIKey is a valid, first-class degraded mode:
	// the engine runs entirely on fallback paths.
	OpenAIKey  string
	AIProvider string
	AIModel    string
	AIBaseURL  string

	// Redis-backed context memoization. Empty RedisURL disables caching.
	RedisURL        string
	ContextCacheTTL time.Duration

	// Relationship classifier thresholds. The defaults mirror observed
	// production behavior; boundary semantics are documented on the classifier.
	VIPThreshold     float64
	RegularThreshold float64
	AtRiskDays       int

	// Context assembly window: last WindowDays days or last WindowRecords
	// records, whichever is smaller.
	WindowDays    int
	WindowRecords int

	// Per-step timeout for each LLM-dependent derivation
	LLMStepTimeout time.Duration

	ServerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		AIProvider:       getEnv("AI_PROVIDER", "openai"),
		AIModel:          getEnv("AI_MODEL", ""),
		AIBaseURL:        getEnv("AI_BASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		ContextCacheTTL:  getEnvDuration("CONTEXT_CACHE_TTL", 60*time.Second),
		VIPThreshold:     getEnvFloat("VIP_THRESHOLD", 10000),
		RegularThreshold: getEnvFloat("REGULAR_THRESHOLD", 1000),
		AtRiskDays:       getEnvInt("AT_RISK_DAYS", 90),
		WindowDays:       getEnvInt("CONTEXT_WINDOW_DAYS", 90),
		WindowRecords:    getEnvInt("CONTEXT_WINDOW_RECORDS", 20),
		LLMStepTimeout:   getEnvDuration("LLM_STEP_TIMEOUT", 30*time.Second),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
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
