package extension

import (
	"time"

	"github.com/xraph/reel"
	"github.com/xraph/reel/plugin"
	"github.com/xraph/reel/store"
)

// Option configures the Reel Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithReelOption passes a reel.Option through to the underlying engine.
// Pass-through options are applied after config-derived ones.
func WithReelOption(opt reel.Option) Option {
	return func(e *Extension) {
		e.reelOpts = append(e.reelOpts, opt)
	}
}

// WithPlugin registers a reel plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.reelOpts = append(e.reelOpts, reel.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for reel routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithBucket sets the upload bucket.
func WithBucket(bucket string) Option {
	return func(e *Extension) { e.config.Bucket = bucket }
}

// WithSageMakerEndpoint selects SageMaker inference.
func WithSageMakerEndpoint(name string) Option {
	return func(e *Extension) { e.config.SageMakerEndpoint = name }
}

// WithInferenceURL selects HTTP inference.
func WithInferenceURL(url string) Option {
	return func(e *Extension) { e.config.InferenceURL = url }
}

// WithUploadTTL sets the presigned URL lifetime.
func WithUploadTTL(d time.Duration) Option {
	return func(e *Extension) { e.config.UploadTTL = d }
}

// WithRedisURL moves the quota ledger to Redis.
func WithRedisURL(url string) Option {
	return func(e *Extension) { e.config.RedisURL = url }
}

// WithHashSecret sets the API key hashing secret.
func WithHashSecret(secret string) Option {
	return func(e *Extension) { e.config.HashSecret = secret }
}
