package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port       string
	Env        string
	LogLevel   string
	ClinicName string

	// Clinic directory data; empty means the built-in defaults are used.
	ClinicDataFile string

	// NLU backend selection: "bedrock", "gemini", or "none" (keyword fallback only).
	LLMProvider    string
	BedrockModelID string
	GeminiAPIKey   string
	GeminiModelID  string
	AWSRegion      string
	NLUTimeout     time.Duration

	// Call flow tuning.
	MaxRetries       int
	SearchWindowDays int
	SlotOfferLimit   int
	CallStateTTL     time.Duration

	// Call state backend: "memory" or "redis".
	CallStateBackend string
	RedisAddr        string
	RedisPassword    string

	AdminJWTSecret string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", "8080"),
		Env:        getEnv("ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ClinicName: getEnv("CLINIC_NAME", "North Shore Wellness Clinic"),

		ClinicDataFile: getEnv("CLINIC_DATA_FILE", ""),

		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "none"))),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		NLUTimeout:     getEnvAsDuration("NLU_TIMEOUT", 5*time.Second),

		MaxRetries:       getEnvAsInt("MAX_RETRIES", 3),
		SearchWindowDays: getEnvAsInt("SEARCH_WINDOW_DAYS", 7),
		SlotOfferLimit:   getEnvAsInt("SLOT_OFFER_LIMIT", 3),
		CallStateTTL:     getEnvAsDuration("CALL_STATE_TTL", 30*time.Minute),

		CallStateBackend: strings.ToLower(strings.TrimSpace(getEnv("CALL_STATE_BACKEND", "memory"))),
		RedisAddr:        getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
