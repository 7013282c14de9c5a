package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/telegram-stats-bot/internal/models"
)

// Load loads configuration from environment variables
// It first attempts to load from .env file, then reads environment variables
func Load() (*models.BotConfig, error) {
	// Try to load .env file (optional, ignore error if not found)
	_ = godotenv.Load()

	config := &models.BotConfig{
		// Telegram settings
		TelegramToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramUsername: getEnv("TELEGRAM_BOT_USERNAME", ""),
		AllowedChatIDs:   getEnvInt64List("TELEGRAM_ALLOWED_CHAT_IDS"),

		// Gemini API settings
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTimeout: getEnvInt("GEMINI_TIMEOUT", 30),

		// Postgres settings
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBTimeout:   getEnvInt("DB_TIMEOUT", 10),

		// Redis cache settings
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvInt("CACHE_TTL", 1200),

		// Stats settings
		TopUsersLimit: getEnvInt("TOP_USERS_LIMIT", 10),
		UsersPageSize: getEnvInt("USERS_PAGE_SIZE", 10),

		// Web report API
		WebListenAddr: getEnv("WEB_LISTEN_ADDR", ":8080"),

		// App settings
		Timezone:    getEnv("TIMEZONE", "Europe/Moscow"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", "production"),
	}

	// Validate configuration
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate checks configuration values shared by both binaries
func validate(cfg *models.BotConfig) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR must not be empty")
	}

	// Validate positive values
	if cfg.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %d", cfg.CacheTTL)
	}
	if cfg.DBTimeout <= 0 {
		return fmt.Errorf("DB_TIMEOUT must be positive, got %d", cfg.DBTimeout)
	}
	if cfg.GeminiTimeout <= 0 {
		return fmt.Errorf("GEMINI_TIMEOUT must be positive, got %d", cfg.GeminiTimeout)
	}
	if cfg.TopUsersLimit <= 0 {
		return fmt.Errorf("TOP_USERS_LIMIT must be positive, got %d", cfg.TopUsersLimit)
	}
	if cfg.UsersPageSize <= 0 {
		return fmt.Errorf("USERS_PAGE_SIZE must be positive, got %d", cfg.UsersPageSize)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %s", cfg.LogLevel)
	}

	return nil
}

// ValidateBot checks values required by the bot binary
func ValidateBot(cfg *models.BotConfig) error {
	if cfg.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.TelegramUsername == "" {
		return fmt.Errorf("TELEGRAM_BOT_USERNAME is required")
	}
	if len(cfg.AllowedChatIDs) == 0 {
		return fmt.Errorf("TELEGRAM_ALLOWED_CHAT_IDS is required")
	}
	return nil
}

// ValidateWeb checks values required by the web report binary
func ValidateWeb(cfg *models.BotConfig) error {
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.WebListenAddr == "" {
		return fmt.Errorf("WEB_LISTEN_ADDR must not be empty")
	}
	return nil
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvInt64List parses a comma-separated list of int64 values
func getEnvInt64List(key string) []int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var values []int64
	for _, part := range strings.Split(valueStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		values = append(values, value)
	}

	return values
}
