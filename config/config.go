// Package config loads service configuration from the environment, with a
// local .env file honored for development.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

type Config struct {
	ListenAddr  string
	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration

	// StagedCheckoutTTL bounds how long a checkout staged for gateway
	// payment stays completable.
	StagedCheckoutTTL time.Duration

	VNPayTmnCode    string
	VNPayHashSecret string
	VNPayURL        string
}

func Load() (*Config, error) {
	// Missing .env is fine; production sets real environment variables.
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:        getenv("LISTEN_ADDR", ":8080"),
		DatabaseDSN:       os.Getenv("DATABASE_DSN"),
		RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		SessionTTL:        getduration("SESSION_TTL", 24*time.Hour),
		StagedCheckoutTTL: getduration("STAGED_CHECKOUT_TTL", 30*time.Minute),
		VNPayTmnCode:      os.Getenv("VNPAY_TMN_CODE"),
		VNPayHashSecret:   os.Getenv("VNPAY_HASH_SECRET"),
		VNPayURL:          getenv("VNPAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
	}

	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("DATABASE_DSN is required")
	}
	// Accept postgres:// URLs as well as key/value DSNs.
	if strings.HasPrefix(cfg.DatabaseDSN, "postgres://") || strings.HasPrefix(cfg.DatabaseDSN, "postgresql://") {
		dsn, err := pq.ParseURL(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_DSN: %w", err)
		}
		cfg.DatabaseDSN = dsn
	}
	if cfg.VNPayHashSecret == "" {
		return nil, fmt.Errorf("VNPAY_HASH_SECRET is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
