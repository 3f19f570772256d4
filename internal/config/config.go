// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/mmynk/gradebook/internal/storage"
)

// Config holds all application configuration.
type Config struct {
	Port     int    `validate:"gt=0,lt=65536"`
	LogLevel string `validate:"oneof=debug info warn error"`

	// StorageBackend selects the primary store.
	StorageBackend string `validate:"oneof=sqlite redis"`
	DBPath         string `validate:"required_if=StorageBackend sqlite"`
	RedisURL       string `validate:"required_if=StorageBackend redis"`
	StorageKey     string `validate:"required,printascii,excludesall=;="`

	// PrimaryQuotaBytes caps the primary record size. 0 means unlimited.
	PrimaryQuotaBytes int `validate:"gte=0"`

	// CookiePath is the backup cookie file. Empty disables the mirror.
	CookiePath string
	CookieTTL  time.Duration `validate:"gt=0"`

	MirrorLimit      int `validate:"gt=0"`
	PartialSemesters int `validate:"gt=0"`
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := &Config{
		Port:              getEnvInt("PORT", 8080),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		StorageBackend:    getEnv("STORAGE_BACKEND", "sqlite"),
		DBPath:            getEnv("DB_PATH", "./data/gradebook.db"),
		RedisURL:          getEnv("REDIS_URL", ""),
		StorageKey:        getEnv("STORAGE_KEY", storage.DefaultKey),
		PrimaryQuotaBytes: getEnvInt("PRIMARY_QUOTA_BYTES", 5*1024*1024),
		CookiePath:        getEnv("COOKIE_PATH", "./data/backup.cookie"),
		CookieTTL:         time.Duration(getEnvInt("COOKIE_TTL_DAYS", 365)) * 24 * time.Hour,
		MirrorLimit:       getEnvInt("MIRROR_LIMIT", storage.DefaultMirrorLimit),
		PartialSemesters:  getEnvInt("PARTIAL_SEMESTERS", storage.DefaultPartialSemesters),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
