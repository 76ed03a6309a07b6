// Package config loads the engine's configuration from a YAML/JSON file plus
// environment overrides, mirroring the layered approach used across the rest
// of the platform: sane defaults, optional file, then environment wins.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP edge.
type ServerConfig struct {
	Host string `json:"host" env:"SERVER_HOST"`
	Port int    `json:"port" env:"SERVER_PORT"`
}

// DatabaseConfig controls persistence.
type DatabaseConfig struct {
	Driver          string `json:"driver" env:"DATABASE_DRIVER"`
	DSN             string `json:"dsn" env:"DATABASE_DSN"`
	Host            string `json:"host" env:"DATABASE_HOST"`
	Port            int    `json:"port" env:"DATABASE_PORT"`
	User            string `json:"user" env:"DATABASE_USER"`
	Password        string `json:"password" env:"DATABASE_PASSWORD"`
	Name            string `json:"name" env:"DATABASE_NAME"`
	SSLMode         string `json:"sslmode" env:"DATABASE_SSLMODE"`
	MaxOpenConns    int    `json:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `json:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `json:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
	MigrateOnStart  bool   `json:"migrate_on_start" yaml:"migrate_on_start" env:"DATABASE_MIGRATE_ON_START"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level      string `json:"level" env:"LOG_LEVEL"`
	Format     string `json:"format" env:"LOG_FORMAT"`
	Output     string `json:"output" env:"LOG_OUTPUT"`
	FilePrefix string `json:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// RedisConfig controls the optional project-metadata cache used by the
// summary engine. Empty Addr disables Redis; the engine falls back to an
// in-process cache.
type RedisConfig struct {
	Addr     string `json:"addr" env:"REDIS_ADDR"`
	Password string `json:"password" env:"REDIS_PASSWORD"`
	DB       int    `json:"db" env:"REDIS_DB"`
}

// EngineConfig controls the net-reduction pipeline itself.
type EngineConfig struct {
	// DefaultOffsetMinutes is the fixed wall-clock offset (§4.1), +05:30 by default.
	DefaultOffsetMinutes int `json:"default_offset_minutes" yaml:"default_offset_minutes" env:"ENGINE_DEFAULT_OFFSET_MINUTES"`
	// SummaryCron is the cron schedule driving the periodic five-cadence summary refresh.
	SummaryCron string `json:"summary_cron" yaml:"summary_cron" env:"ENGINE_SUMMARY_CRON"`
	// SeriesLockTTLSeconds is a lock lifetime in seconds; no component reads
	// it, and internal/lock holds a series lock until it is released.
	SeriesLockTTLSeconds int `json:"series_lock_ttl_seconds" yaml:"series_lock_ttl_seconds" env:"ENGINE_SERIES_LOCK_TTL_SECONDS"`
	// CSVMaxBytes caps the size of an accepted CSV upload.
	CSVMaxBytes int64 `json:"csv_max_bytes" yaml:"csv_max_bytes" env:"ENGINE_CSV_MAX_BYTES"`
	// APIRatePerMinute caps ingestion writes per project on the API channel.
	APIRatePerMinute int `json:"api_rate_per_minute" yaml:"api_rate_per_minute" env:"ENGINE_API_RATE_PER_MINUTE"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
	Redis    RedisConfig    `json:"redis"`
	Engine   EngineConfig   `json:"engine"`
}

// New returns a configuration populated with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
			MigrateOnStart:  true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			FilePrefix: "netreduction-engine",
		},
		Redis: RedisConfig{},
		Engine: EngineConfig{
			DefaultOffsetMinutes: 330, // +05:30
			SummaryCron:          "*/15 * * * *",
			SeriesLockTTLSeconds: 30,
			CSVMaxBytes:          10 << 20, // 10MiB
			APIRatePerMinute:     600,
		},
	}
}

// ConnectionString builds a PostgreSQL connection string from host parameters.
func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Load loads configuration from file (if present) and environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/config.yaml", cfg)
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode returns an error when no tagged fields are present in the
		// environment; treat that case as "no overrides" so local runs work
		// without exporting vars.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	applyDatabaseURLOverride(cfg)
	return cfg, nil
}

// LoadFile reads configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}
	applyDatabaseURLOverride(cfg)
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// LoadConfig is a helper used by tests to load JSON config snippets.
func LoadConfig(path string) (*Config, error) {
	cfg := New()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDatabaseURLOverride(cfg)
	return cfg, nil
}

// applyDatabaseURLOverride mirrors the reference deployment: DATABASE_URL
// overrides any file-based DSN to reduce setup friction in containerized envs.
func applyDatabaseURLOverride(cfg *Config) {
	if cfg == nil {
		return
	}
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		cfg.Database.DSN = dsn
	}
}
