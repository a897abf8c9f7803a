package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xraph/reel/internal/config"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reel.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":8080" || cfg.Database.Driver != config.DriverMemory {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Storage.UploadTTL != 15*time.Minute {
		t.Errorf("upload ttl = %v", cfg.Storage.UploadTTL)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
listen: ":9000"
log:
  level: debug
  format: text
database:
  driver: sqlite
  dsn: file:reel.db
storage:
  bucket: videos
  upload_ttl: 5m
inference:
  sagemaker_endpoint: sentiment
`)
	t.Setenv("REEL_STORAGE_BUCKET", "videos-prod")
	t.Setenv("REEL_INFERENCE_TIMEOUT", "90s")
	t.Setenv("REEL_AUTH_ADMIN_TOKEN", "tok")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"listen from file", cfg.Listen, ":9000"},
		{"driver from file", cfg.Database.Driver, config.DriverSQLite},
		{"bucket from env", cfg.Storage.Bucket, "videos-prod"},
		{"ttl from file", cfg.Storage.UploadTTL, 5 * time.Minute},
		{"timeout from env", cfg.Inference.Timeout, 90 * time.Second},
		{"endpoint from file", cfg.Inference.SageMakerEndpoint, "sentiment"},
		{"admin token from env", cfg.Auth.AdminToken, "tok"},
		{"region default kept", cfg.Storage.Region, "us-east-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"postgres without dsn", func(c *config.Config) { c.Database.Driver = config.DriverPostgres }, "database.dsn"},
		{"mongo without dsn", func(c *config.Config) { c.Database.Driver = config.DriverMongo }, "database.dsn"},
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "mysql" }, "unknown database.driver"},
		{"bad level", func(c *config.Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad ratio", func(c *config.Config) { c.Tracing.SampleRatio = 2 }, "sample_ratio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
