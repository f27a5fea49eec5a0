package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"Daybook_V0.1/internal/database"
	_ "github.com/joho/godotenv/autoload"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds every setting the service reads from the environment.
// A .env file in the working directory is loaded first.
type Config struct {
	// HTTP
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Timezone string `envconfig:"APP_TIMEZONE" default:"UTC"`

	// Gemini; an empty key disables analysis
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiModel   string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`

	AnalysisTimeout       time.Duration `envconfig:"ANALYSIS_TIMEOUT" default:"60s"`
	AnalysisRatePerMinute int           `envconfig:"ANALYSIS_RATE_PER_MINUTE" default:"10"`
	FormTrackerSize       int           `envconfig:"FORM_TRACKER_SIZE" default:"1024"`

	// Document store
	StoreDriver string `envconfig:"STORE_DRIVER" default:"memory"`

	DBHost     string `envconfig:"BLUEPRINT_DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"BLUEPRINT_DB_PORT" default:"5432"`
	DBDatabase string `envconfig:"BLUEPRINT_DB_DATABASE" default:"daybook"`
	DBUsername string `envconfig:"BLUEPRINT_DB_USERNAME" default:"postgres"`
	DBPassword string `envconfig:"BLUEPRINT_DB_PASSWORD"`
	DBSchema   string `envconfig:"BLUEPRINT_DB_SCHEMA" default:"public"`

	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	// Identity; an empty secret rejects every token
	JWTSecret string `envconfig:"AUTH_JWT_SECRET"`

	// Empty means the embedded calendar data
	CalendarDataPath string `envconfig:"CALENDAR_DATA_PATH"`
}

// New parses the environment and validates the result.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LogSummary writes the effective settings, secrets excluded, to logger.
func (c *Config) LogSummary(logger zerolog.Logger) {
	logger.Info().
		Int("port", c.Port).
		Str("log_level", c.LogLevel).
		Str("store_driver", c.StoreDriver).
		Str("timezone", c.Timezone).
		Str("gemini_model", c.GeminiModel).
		Bool("analysis_enabled", c.AnalysisEnabled()).
		Bool("auth_enabled", c.JWTSecret != "").
		Dur("analysis_timeout", c.AnalysisTimeout).
		Msg("Configuration loaded")
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.Port)
	}
	switch c.StoreDriver {
	case StoreMemory, StorePostgres, StoreRedis:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.StoreDriver)
	}
	if c.AnalysisTimeout <= 0 {
		return fmt.Errorf("ANALYSIS_TIMEOUT must be positive, got %s", c.AnalysisTimeout)
	}
	if c.AnalysisRatePerMinute <= 0 {
		return fmt.Errorf("ANALYSIS_RATE_PER_MINUTE must be positive, got %d", c.AnalysisRatePerMinute)
	}
	if c.FormTrackerSize <= 0 {
		return fmt.Errorf("FORM_TRACKER_SIZE must be positive, got %d", c.FormTrackerSize)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location is the zone calendar dates are interpreted in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) AnalysisEnabled() bool {
	return c.GeminiAPIKey != ""
}

// Postgres returns the connection settings for the postgres store.
func (c *Config) Postgres() database.Params {
	return database.Params{
		Host:     c.DBHost,
		Port:     c.DBPort,
		Database: c.DBDatabase,
		Username: c.DBUsername,
		Password: c.DBPassword,
		Schema:   c.DBSchema,
	}
}
