// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL   string
	TxMaxAttempts int

	// Ledger
	LoanPeriod          time.Duration
	PenaltyPerDay       int64 // 通貨の最小単位
	OverdueScanInterval time.Duration

	// Catalog
	CatalogSeedFile string // 空の場合は組み込みの蔵書リストを使う

	// Rate Limit（req/min）
	RateLimitGeneral  int
	RateLimitMutation int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合、または値が範囲外の場合はエラーを返す。
// 数値として解釈できない値はデフォルト値に置き換える。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.TxMaxAttempts = getEnvInt("TX_MAX_ATTEMPTS", 5)
	cfg.LoanPeriod = getEnvDuration("LOAN_PERIOD", 7*24*time.Hour)
	cfg.PenaltyPerDay = getEnvInt64("PENALTY_PER_DAY", 100)
	cfg.OverdueScanInterval = getEnvDuration("OVERDUE_SCAN_INTERVAL", 10*time.Minute)
	cfg.CatalogSeedFile = getEnvString("CATALOG_SEED_FILE", "")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitMutation = getEnvInt("RATE_LIMIT_MUTATION", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.LoanPeriod <= 0:
		return fmt.Errorf("LOAN_PERIOD must be positive: %s", c.LoanPeriod)
	case c.PenaltyPerDay < 0:
		return fmt.Errorf("PENALTY_PER_DAY must not be negative: %d", c.PenaltyPerDay)
	case c.OverdueScanInterval <= 0:
		return fmt.Errorf("OVERDUE_SCAN_INTERVAL must be positive: %s", c.OverdueScanInterval)
	case c.TxMaxAttempts < 1:
		return fmt.Errorf("TX_MAX_ATTEMPTS must be at least 1: %d", c.TxMaxAttempts)
	case c.RateLimitGeneral < 1 || c.RateLimitMutation < 1:
		return fmt.Errorf("rate limits must be at least 1 req/min: general=%d mutation=%d",
			c.RateLimitGeneral, c.RateLimitMutation)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
