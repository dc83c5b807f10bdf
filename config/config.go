// Package config loads process configuration from the environment, reading a
// local .env file first when one exists.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config is the full runtime configuration of the API process.
type Config struct {
	HTTPAddr          string
	StoreDriver       string
	DatabaseURL       string
	DBMaxConns        int
	MongoURI          string
	MongoDatabase     string
	JWTSecret         string
	SessionTTL        time.Duration
	LogLevel          string
	LogFormat         string
	ReconcileSchedule string
	GinMode           string
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		StoreDriver:       strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 10),
		MongoURI:          getEnv("MONGO_URI", ""),
		MongoDatabase:     getEnv("MONGO_DATABASE", "salonbook"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		SessionTTL:        time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", ""),
		GinMode:           getEnv("GIN_MODE", "release"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET must be set")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("config: SESSION_TTL_HOURS must be positive")
	}
	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("config: DATABASE_URL is required for the postgres driver")
		}
	case DriverMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("config: MONGO_URI is required for the mongo driver")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("config: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
