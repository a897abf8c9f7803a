package extension

import "time"

// Config holds the Reel extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.reel" or "reel" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix the HTTP handler is meant to be mounted
	// under (default: "/reel").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// Bucket is the S3 bucket uploads go to. When empty no object storage
	// is wired and Analyze fails with an internal error.
	Bucket string `json:"bucket" mapstructure:"bucket" yaml:"bucket"`

	// Region is the AWS region for S3 and, unless InferenceRegion is set,
	// SageMaker (default: "us-east-1").
	Region string `json:"region" mapstructure:"region" yaml:"region"`

	// StorageEndpoint overrides the S3 endpoint for S3-compatible servers.
	StorageEndpoint string `json:"storage_endpoint" mapstructure:"storage_endpoint" yaml:"storage_endpoint"`

	// PathStyle forces path-style S3 addressing.
	PathStyle bool `json:"path_style" mapstructure:"path_style" yaml:"path_style"`

	// UploadTTL is how long presigned upload URLs stay valid (default: 15m).
	UploadTTL time.Duration `json:"upload_ttl" mapstructure:"upload_ttl" yaml:"upload_ttl"`

	// SageMakerEndpoint is the SageMaker endpoint name for inference.
	SageMakerEndpoint string `json:"sagemaker_endpoint" mapstructure:"sagemaker_endpoint" yaml:"sagemaker_endpoint"`

	// InferenceRegion overrides Region for SageMaker.
	InferenceRegion string `json:"inference_region" mapstructure:"inference_region" yaml:"inference_region"`

	// InferenceURL is an HTTP inference endpoint, used when no SageMaker
	// endpoint is set.
	InferenceURL string `json:"inference_url" mapstructure:"inference_url" yaml:"inference_url"`

	// InferenceTimeout bounds one HTTP inference call (default: 5m).
	InferenceTimeout time.Duration `json:"inference_timeout" mapstructure:"inference_timeout" yaml:"inference_timeout"`

	// RedisURL moves the quota ledger to Redis.
	RedisURL string `json:"redis_url" mapstructure:"redis_url" yaml:"redis_url"`

	// HashSecret derives the API key hashing key. Required in production.
	HashSecret string `json:"hash_secret" mapstructure:"hash_secret" yaml:"hash_secret"`

	// AdminToken enables the admin routes on Handler.
	AdminToken string `json:"admin_token" mapstructure:"admin_token" yaml:"admin_token"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:         "/reel",
		Region:           "us-east-1",
		UploadTTL:        15 * time.Minute,
		InferenceTimeout: 5 * time.Minute,
	}
}
