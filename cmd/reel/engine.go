package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/xraph/reel"
	"github.com/xraph/reel/internal/config"
	"github.com/xraph/reel/internal/wiring"
	"github.com/xraph/reel/store"
	"github.com/xraph/reel/store/memory"
	"github.com/xraph/reel/store/mongo"
	"github.com/xraph/reel/store/postgres"
	"github.com/xraph/reel/store/sqlite"
)

// openStore opens the primary store named by cfg.Database.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		drv := pgdriver.New()
		if err := drv.Open(ctx, cfg.DSN); err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db, err := grove.Open(drv)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return postgres.New(db), nil

	case config.DriverSQLite:
		drv := sqlitedriver.New()
		if err := drv.Open(ctx, cfg.DSN); err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db, err := grove.Open(drv)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return sqlite.New(db), nil

	case config.DriverMongo:
		drv := mongodriver.New()
		if err := drv.Open(ctx, cfg.DSN); err != nil {
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		db, err := grove.Open(drv)
		if err != nil {
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		return mongo.New(db), nil

	default:
		return memory.New(), nil
	}
}

// settings flattens the daemon config for the shared wiring.
func settings(cfg config.Config) wiring.Settings {
	return wiring.Settings{
		Bucket:            cfg.Storage.Bucket,
		StorageRegion:     cfg.Storage.Region,
		StorageEndpoint:   cfg.Storage.Endpoint,
		PathStyle:         cfg.Storage.PathStyle,
		UploadTTL:         cfg.Storage.UploadTTL,
		SageMakerEndpoint: cfg.Inference.SageMakerEndpoint,
		InferenceRegion:   cfg.Inference.Region,
		InferenceURL:      cfg.Inference.URL,
		InferenceTimeout:  cfg.Inference.Timeout,
		RedisURL:          cfg.Redis.URL,
		RedisPrefix:       cfg.Redis.Prefix,
		HashSecret:        cfg.Auth.HashSecret,
	}
}

// openEngine builds and starts an engine. The caller stops it.
func openEngine(ctx context.Context, cfg config.Config, logger *slog.Logger, extra ...reel.Option) (*reel.Reel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	opts, err := wiring.Options(ctx, settings(cfg), logger)
	if err != nil {
		_ = st.Close() //nolint:errcheck // already failing
		return nil, err
	}
	opts = append(opts, reel.WithLogger(logger))
	opts = append(opts, extra...)

	r := reel.New(st, opts...)
	if err := r.Start(ctx); err != nil {
		_ = r.Stop() //nolint:errcheck // already failing
		return nil, err
	}
	return r, nil
}
