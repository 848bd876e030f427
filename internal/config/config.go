package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string // "development" or "production"

	// Data directories (per-user stores, response cache, history database)
	DataDir       string
	CacheDir      string
	HistoryDBPath string

	// Keyword tables (wake words, intent keyword sets); empty means built-in defaults
	KeywordsFile string

	// Session
	SessionIdleTimeout time.Duration

	// Response cache
	CacheTTL time.Duration

	// Call governor limits for the generative service
	LLMPerMinute  int
	LLMPerDay     int
	LLMMaxRetries int

	// Generative-text service (OpenAI-compatible chat completions)
	LLMEndpoint string
	LLMAPIKey   string
	LLMModel    string
	LLMTimeout  time.Duration

	// Outbound reply channel (push endpoint of the chat platform)
	ReplyPushURL string
	ReplyToken   string

	// Maintenance (standard cron expression, conversation retention)
	SweepCron        string
	HistoryRetention time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3001"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DataDir:       getEnv("DATA_DIR", "./data"),
		CacheDir:      getEnv("CACHE_DIR", "./data/cache"),
		HistoryDBPath: getEnv("HISTORY_DB_PATH", "./data/history.db"),

		KeywordsFile: getEnv("KEYWORDS_FILE", ""),

		SessionIdleTimeout: getDurationEnv("SESSION_IDLE_TIMEOUT_SECONDS", 300),

		CacheTTL: getDurationEnv("CACHE_TTL_SECONDS", 3600),

		LLMPerMinute:  getIntEnv("LLM_RATE_PER_MINUTE", 10),
		LLMPerDay:     getIntEnv("LLM_RATE_PER_DAY", 1000),
		LLMMaxRetries: getIntEnv("LLM_MAX_RETRIES", 3),

		LLMEndpoint: getEnv("LLM_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		LLMAPIKey:   getEnv("LLM_API_KEY", ""),
		LLMModel:    getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:  getDurationEnv("LLM_TIMEOUT_SECONDS", 60),

		ReplyPushURL: getEnv("REPLY_PUSH_URL", ""),
		ReplyToken:   getEnv("REPLY_CHANNEL_TOKEN", ""),

		SweepCron:        getEnv("CACHE_SWEEP_CRON", "*/10 * * * *"),
		HistoryRetention: getDurationEnv("HISTORY_RETENTION_SECONDS", 30*24*3600),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultSeconds int) time.Duration {
	return time.Duration(getIntEnv(key, defaultSeconds)) * time.Second
}
