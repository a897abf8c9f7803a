// Package wiring builds engine collaborators (object storage, inference,
// quota backend) from flat settings. The daemon and the Forge extension
// share it.
package wiring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/reel"
	"github.com/xraph/reel/inference/httpinvoker"
	"github.com/xraph/reel/inference/sagemaker"
	"github.com/xraph/reel/storage/s3"
	"github.com/xraph/reel/store/redis"
)

// Settings are the collaborator settings. Empty fields leave the matching
// collaborator unset.
type Settings struct {
	Bucket          string
	StorageRegion   string
	StorageEndpoint string
	PathStyle       bool
	UploadTTL       time.Duration

	SageMakerEndpoint string
	InferenceRegion   string
	InferenceURL      string
	InferenceTimeout  time.Duration

	RedisURL    string
	RedisPrefix string

	HashSecret string
}

// Options returns the engine options for s. Collaborators that hold
// connections (the Redis quota store) are closed by the engine's Stop.
func Options(ctx context.Context, s Settings, logger *slog.Logger) ([]reel.Option, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var opts []reel.Option

	if s.HashSecret != "" {
		opts = append(opts, reel.WithHashSecret(s.HashSecret))
	} else {
		logger.Warn("no hash secret configured; using the development default")
	}

	if s.UploadTTL > 0 {
		opts = append(opts, reel.WithUploadTTL(s.UploadTTL))
	}

	if s.Bucket != "" {
		client, err := s3.NewClient(ctx, s3.ClientConfig{
			Region:    s.StorageRegion,
			Endpoint:  s.StorageEndpoint,
			PathStyle: s.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		st := s3.New(client, s.Bucket)
		opts = append(opts,
			reel.WithBucket(s.Bucket),
			reel.WithVerifier(st),
			reel.WithPresigner(st),
		)
		logger.Debug("object storage configured", "bucket", s.Bucket, "endpoint", s.StorageEndpoint)
	}

	switch {
	case s.SageMakerEndpoint != "":
		region := s.InferenceRegion
		if region == "" {
			region = s.StorageRegion
		}
		inv, err := sagemaker.NewFromRegion(ctx, region, s.SageMakerEndpoint)
		if err != nil {
			return nil, err
		}
		opts = append(opts, reel.WithInvoker(inv))
		logger.Debug("inference configured", "backend", "sagemaker", "endpoint", s.SageMakerEndpoint)
	case s.InferenceURL != "":
		var hopts []httpinvoker.Option
		if s.InferenceTimeout > 0 {
			hopts = append(hopts, httpinvoker.WithTimeout(s.InferenceTimeout))
		}
		opts = append(opts, reel.WithInvoker(httpinvoker.New(s.InferenceURL, hopts...)))
		logger.Debug("inference configured", "backend", "http", "url", s.InferenceURL)
	}

	if s.RedisURL != "" {
		var ropts []redis.Option
		if s.RedisPrefix != "" {
			ropts = append(ropts, redis.WithPrefix(s.RedisPrefix))
		}
		qs, err := redis.Open(ctx, s.RedisURL, ropts...)
		if err != nil {
			return nil, fmt.Errorf("wiring: quota store: %w", err)
		}
		opts = append(opts, reel.WithQuotaStore(qs))
		logger.Debug("quota ledger configured", "backend", "redis")
	}

	return opts, nil
}
