// Package config loads the reel daemon configuration from an optional YAML
// file and REEL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config is the daemon configuration.
type Config struct {
	Listen string `yaml:"listen" env:"REEL_LISTEN"`

	Log       LogConfig       `yaml:"log" envPrefix:"REEL_LOG_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"REEL_DATABASE_"`
	Redis     RedisConfig     `yaml:"redis" envPrefix:"REEL_REDIS_"`
	Storage   StorageConfig   `yaml:"storage" envPrefix:"REEL_STORAGE_"`
	Inference InferenceConfig `yaml:"inference" envPrefix:"REEL_INFERENCE_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"REEL_AUTH_"`
	Tracing   TracingConfig   `yaml:"tracing" envPrefix:"REEL_TRACING_"`
	Metrics   MetricsConfig   `yaml:"metrics" envPrefix:"REEL_METRICS_"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"` // json or text
}

// DatabaseConfig selects the primary store.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	DSN    string `yaml:"dsn" env:"DSN"`
}

// RedisConfig moves the quota ledger to Redis when URL is set.
type RedisConfig struct {
	URL    string `yaml:"url" env:"URL"`
	Prefix string `yaml:"prefix" env:"PREFIX"`
}

// StorageConfig describes the upload bucket.
type StorageConfig struct {
	Bucket    string        `yaml:"bucket" env:"BUCKET"`
	Region    string        `yaml:"region" env:"REGION"`
	Endpoint  string        `yaml:"endpoint" env:"ENDPOINT"`
	PathStyle bool          `yaml:"path_style" env:"PATH_STYLE"`
	UploadTTL time.Duration `yaml:"upload_ttl" env:"UPLOAD_TTL"`
}

// InferenceConfig selects the model backend. SageMakerEndpoint wins when
// both it and URL are set.
type InferenceConfig struct {
	SageMakerEndpoint string        `yaml:"sagemaker_endpoint" env:"SAGEMAKER_ENDPOINT"`
	Region            string        `yaml:"region" env:"REGION"`
	URL               string        `yaml:"url" env:"URL"`
	Timeout           time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// AuthConfig holds server secrets.
type AuthConfig struct {
	HashSecret string `yaml:"hash_secret" env:"HASH_SECRET"`
	AdminToken string `yaml:"admin_token" env:"ADMIN_TOKEN"`
}

// TracingConfig configures the OTLP/HTTP exporter.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	Endpoint    string  `yaml:"endpoint" env:"ENDPOINT"`
	Insecure    bool    `yaml:"insecure" env:"INSECURE"`
	ServiceName string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`
}

// MetricsConfig toggles GET /metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Listen: ":8080",
		Log:    LogConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			Driver: DriverMemory,
		},
		Redis: RedisConfig{Prefix: "reel:quota:"},
		Storage: StorageConfig{
			Region:    "us-east-1",
			UploadTTL: 15 * time.Minute,
		},
		Inference: InferenceConfig{Timeout: 5 * time.Minute},
		Tracing: TracingConfig{
			ServiceName: "reel",
			SampleRatio: 1,
		},
	}
}

// Load reads path (if non-empty), then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parse env: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks field combinations.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite, DriverMongo:
		if c.Database.DSN == "" {
			errs = append(errs, fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing.sample_ratio must be within [0, 1]"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q", l.Level)
	}
	return level, nil
}

// Logger builds a logger writing to w per the configured level and format.
func (l LogConfig) Logger(w *os.File) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
