// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the gateway configuration.
type Config struct {
	MetaDBPath  string // path to the SQLite metastore file
	ServersFile string // path to the YAML server registry
	ListenAddr  string // HTTP listen address (default ":8080")
	LogLevel    string // debug, info, warn, error (default "info")
	Env         string // "development" (default) or "production"

	// JWTSecret verifies the HS256 tokens minted by the external auth
	// layer. The gateway only consumes the validated {username, role}.
	JWTSecret string

	// Core sliding-window rate limiting.
	RateLimitWindow time.Duration // default 60s
	RedisAddr       string        // optional shared window store for multi-instance

	// Coarse per-IP HTTP flood gate in front of the role-aware limiter.
	HTTPRateRPS   float64 // default 100
	HTTPRateBurst int     // default 200

	// Query execution bounds.
	QueryMaxRows int           // default 1000
	QueryTimeout time.Duration // default 30s

	// Backend pool bounds, applied per server.
	PoolMaxOpenConns    int           // default 8
	PoolMaxIdleConns    int           // default 4
	PoolConnMaxIdleTime time.Duration // default 5m

	// CORS
	CORSAllowedOrigins []string // default ["*"]

	// Warnings collects non-fatal warnings generated during loading.
	// Logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the gateway runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults and production hardening checks.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		MetaDBPath:  os.Getenv("META_DB_PATH"),
		ServersFile: os.Getenv("SERVERS_FILE"),
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		Env:         os.Getenv("ENV"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
	}

	cfg.RateLimitWindow = durationEnv("RATE_LIMIT_WINDOW", 60*time.Second)
	cfg.QueryTimeout = durationEnv("QUERY_TIMEOUT", 30*time.Second)
	cfg.PoolConnMaxIdleTime = durationEnv("POOL_CONN_MAX_IDLE_TIME", 5*time.Minute)

	cfg.HTTPRateRPS = floatEnv("HTTP_RATE_RPS", 100)
	cfg.HTTPRateBurst = intEnv("HTTP_RATE_BURST", 200)
	cfg.QueryMaxRows = intEnv("QUERY_MAX_ROWS", 1000)
	cfg.PoolMaxOpenConns = intEnv("POOL_MAX_OPEN_CONNS", 8)
	cfg.PoolMaxIdleConns = intEnv("POOL_MAX_IDLE_CONNS", 4)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Defaults
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "sqlgate_meta.sqlite"
	}
	if cfg.ServersFile == "" {
		cfg.ServersFile = "servers.yaml"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production"
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set — using insecure default. Set JWT_SECRET in production!")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.JWTSecret == "dev-secret-change-in-production" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

func intEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func floatEnv(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func durationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be KEY=VALUE; comments (#) and blanks are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
