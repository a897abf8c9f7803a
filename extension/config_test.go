package extension

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xraph/reel"
	"github.com/xraph/reel/store/memory"
)

func TestMergeWithDefaults(t *testing.T) {
	e := New()
	cfg := e.mergeWithDefaults(Config{Bucket: "videos"})

	if cfg.BasePath != "/reel" || cfg.Region != "us-east-1" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.UploadTTL != 15*time.Minute || cfg.InferenceTimeout != 5*time.Minute {
		t.Errorf("duration defaults not applied: %+v", cfg)
	}
	if cfg.Bucket != "videos" {
		t.Errorf("bucket = %q", cfg.Bucket)
	}
}

func TestMergeConfigurations(t *testing.T) {
	e := New()
	yamlCfg := Config{
		Bucket:    "from-yaml",
		UploadTTL: time.Minute,
	}
	programmatic := Config{
		Bucket:            "from-code",
		SageMakerEndpoint: "sentiment",
		DisableMigrate:    true,
		UploadTTL:         time.Hour,
		HashSecret:        "s3cret",
	}

	got := e.mergeConfigurations(yamlCfg, programmatic)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"yaml string wins", got.Bucket, "from-yaml"},
		{"code fills gap", got.SageMakerEndpoint, "sentiment"},
		{"code bool overrides", got.DisableMigrate, true},
		{"yaml duration wins", got.UploadTTL, time.Minute},
		{"secret filled", got.HashSecret, "s3cret"},
		{"default base path", got.BasePath, "/reel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestSettings(t *testing.T) {
	cfg := Config{Bucket: "b", Region: "eu-west-1", RedisURL: "redis://x", InferenceURL: "http://m"}
	s := cfg.settings()
	if s.Bucket != "b" || s.StorageRegion != "eu-west-1" || s.RedisURL != "redis://x" || s.InferenceURL != "http://m" {
		t.Errorf("settings = %+v", s)
	}
}

func TestHandlerBeforeRegister(t *testing.T) {
	if h := New().Handler(); h != nil {
		t.Error("Handler before Register should be nil")
	}
}

func TestHandlerUsesEngineLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	e := New(WithConfig(Config{BasePath: "/reel"}))
	e.engine = reel.New(memory.New(), reel.WithLogger(logger))

	req := httptest.NewRequest(http.MethodPost, "/reel/api/sentiment-inference", strings.NewReader(`{"key":"inference/a.mp4"}`))
	req.Header.Set("Authorization", "Bearer rk_x")
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 from an engine without inference", rec.Code)
	}
	if !strings.Contains(buf.String(), "request failed") {
		t.Errorf("engine logger did not receive the request log: %q", buf.String())
	}
}
