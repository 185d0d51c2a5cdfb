package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/veldtlabs/passgate/internal/auth/service"
	"github.com/veldtlabs/passgate/pkg/jwtx"
)

type Config struct {
	Issuer string // Issuer claim for tokens (default: passgate)

	SigningKeyFile string // Optional: path to a PKCS#8 Ed25519 PEM; empty means a fresh ephemeral key per start
	DatabaseFile   string // Optional: path to SQLite database file (default: ./passgate.db)
	PepperFile     string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	Scopes      []string      // Scope catalog (space-delimited in PASSGATE_SCOPES)
	AccessTTL   time.Duration // Lifetime of grant-issued access tokens (default: 15m)
	PersonalTTL time.Duration // Lifetime of personal access tokens (default: 1 year)

	AdminEmail    string // Optional: seed an admin user at startup
	AdminName     string
	AdminPassword string

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:         getEnvOrDefault("PASSGATE_ISSUER", "passgate"),
		SigningKeyFile: os.Getenv("PASSGATE_SIGNING_KEY_FILE"),
		DatabaseFile:   getEnvOrDefault("PASSGATE_DATABASE_FILE", "passgate.db"),
		PepperFile:     getEnvOrDefault("PASSGATE_PEPPER_FILE", "pepper"),

		Scopes:      parseScopes(os.Getenv("PASSGATE_SCOPES")),
		AccessTTL:   getEnvDurationOrDefault("PASSGATE_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		PersonalTTL: getEnvDurationOrDefault("PASSGATE_PERSONAL_TTL", service.DefaultPersonalTokenTTL),

		AdminEmail:    os.Getenv("PASSGATE_ADMIN_EMAIL"),
		AdminName:     getEnvOrDefault("PASSGATE_ADMIN_NAME", "Admin"),
		AdminPassword: os.Getenv("PASSGATE_ADMIN_PASSWORD"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// parseScopes splits the configured catalog; a blank value falls back to a
// small default so a bare deployment still works.
func parseScopes(raw string) []string {
	catalog := service.NewScopeCatalog(splitFields(raw)...)
	if ids := catalog.IDs(); len(ids) > 0 {
		return ids
	}
	return []string{"profile:read", "introspect"}
}

func splitFields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ','
	})
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
