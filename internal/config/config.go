package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
// Loaded once at startup; there is no hot reload.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Outbound SMTP transport
	MailServer        string
	MailPort          int
	MailUsername      string
	MailPassword      string
	MailUseTLS        bool
	MailUseSSL        bool
	MailDefaultSender string
	MailTimeout       time.Duration

	// Dispatch engine
	DispatchInterval time.Duration
	DispatchWorkers  int
	ClaimBatch       int

	// Maximum outbound sends per second across all delivery workers
	SendRateLimit int
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		MailServer:        getEnv("MAIL_SERVER", "smtp.gmail.com"),
		MailPort:          getInt("MAIL_PORT", 587),
		MailUsername:      os.Getenv("MAIL_USERNAME"),
		MailPassword:      os.Getenv("MAIL_PASSWORD"),
		MailUseTLS:        getBool("MAIL_USE_TLS", true),
		MailUseSSL:        getBool("MAIL_USE_SSL", false),
		MailDefaultSender: os.Getenv("MAIL_DEFAULT_SENDER"),
		MailTimeout:       getDuration("MAIL_TIMEOUT", 15*time.Second),

		DispatchInterval: getDuration("DISPATCH_INTERVAL", 5*time.Second),
		DispatchWorkers:  getInt("DISPATCH_WORKERS", 5),
		ClaimBatch:       getInt("DISPATCH_CLAIM_BATCH", 100),

		SendRateLimit: getInt("SEND_RATE_LIMIT", 10),
	}

	if cfg.MailDefaultSender == "" {
		cfg.MailDefaultSender = cfg.MailUsername
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// getBool accepts "true", "1", or "yes" (case-insensitive) as true.
func getBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
