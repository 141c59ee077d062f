package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tabwave/payvault/pkg/jwtx"
)

// DefaultCallbackAllowlist is the out-of-the-box set of hosts merchant
// callback URLs may point at.
var DefaultCallbackAllowlist = []string{
	"api.example.com",
	"webhook.trusted.com",
	"callback.secure-merchant.com",
}

// Config is loaded once at startup and never mutated afterwards. Components
// receive the values they need at construction; nothing reads the
// environment past this point.
type Config struct {
	Issuer string // Issuer claim for signed tokens

	AccessTokenSecret string // Required: HMAC key for access tokens (min 32 bytes)
	StepUpTokenSecret string // Required: HMAC key for step-up tokens, distinct from access

	AccessTokenTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTokenTTL time.Duration // Refresh token lifetime (default: 168h)
	StepUpTokenTTL  time.Duration // Step-up token lifetime (default: 5m)

	RefreshRotation bool // Rotate the refresh token on every refresh (default: false)

	DatabaseFile   string // Path to SQLite database file (default: ./payvault.db)
	SessionBackend string // Refresh-session storage: sqlite or redis (default: sqlite)
	RedisAddr      string // Redis address, required when SessionBackend=redis

	CallbackAllowedHosts []string // Merchant callback host allowlist

	BootstrapAdminEmail    string // Optional: seed admin account on empty database
	BootstrapAdminPassword string

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-session sweep interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer: getEnvOrDefault("AUTH_ISSUER", "payvault"),

		AccessTokenSecret: os.Getenv("AUTH_ACCESS_TOKEN_SECRET"),
		StepUpTokenSecret: os.Getenv("AUTH_STEPUP_TOKEN_SECRET"),

		AccessTokenTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenTTL: getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),
		StepUpTokenTTL:  getEnvDurationOrDefault("AUTH_STEPUP_TOKEN_TTL", jwtx.DefaultStepUpTokenTTL),

		RefreshRotation: getEnvBoolOrDefault("AUTH_REFRESH_ROTATION", false),

		DatabaseFile:   getEnvOrDefault("DATABASE_FILE", "payvault.db"),
		SessionBackend: getEnvOrDefault("SESSION_BACKEND", "sqlite"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),

		CallbackAllowedHosts: getEnvListOrDefault("CALLBACK_ALLOWED_HOSTS", DefaultCallbackAllowlist),

		BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
