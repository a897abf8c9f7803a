// Package extension provides the Forge extension adapter for Reel.
//
// It implements the forge.Extension interface to integrate Reel
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.reel" or "reel" keys.
package extension

import (
	"context"
	"errors"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/reel"
	"github.com/xraph/reel/api"
	"github.com/xraph/reel/internal/wiring"
	"github.com/xraph/reel/store"
	"github.com/xraph/reel/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "reel"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Quota-guarded video sentiment analysis"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Reel as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config   Config
	engine   *reel.Reel
	store    store.Store
	reelOpts []reel.Option
}

// New creates a new Reel Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Reel instance.
// This is nil until Register is called.
func (e *Extension) Engine() *reel.Reel { return e.engine }

// Config returns the resolved configuration.
func (e *Extension) Config() Config { return e.config }

// Handler returns the HTTP routes for the engine, to be mounted under
// Config().BasePath. It is nil until Register is called.
func (e *Extension) Handler() http.Handler {
	if e.engine == nil {
		return nil
	}
	opts := []api.Option{api.WithLogger(e.engine.Logger())}
	if e.config.AdminToken != "" {
		opts = append(opts, api.WithAdminToken(e.config.AdminToken))
	}
	return http.StripPrefix(e.config.BasePath, api.NewHandler(e.engine, opts...))
}

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildReelOpts(context.Background())
	if err != nil {
		return err
	}

	e.engine = reel.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*reel.Reel, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("reel: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("reel: store not initialized")
	}
	return e.engine.Ping(ctx)
}

// buildReelOpts constructs reel.Option values from the resolved config.
func (e *Extension) buildReelOpts(ctx context.Context) ([]reel.Option, error) {
	opts, err := wiring.Options(ctx, e.config.settings(), nil)
	if err != nil {
		return nil, err
	}

	// Append any pass-through options.
	return append(opts, e.reelOpts...), nil
}

func (c Config) settings() wiring.Settings {
	return wiring.Settings{
		Bucket:            c.Bucket,
		StorageRegion:     c.Region,
		StorageEndpoint:   c.StorageEndpoint,
		PathStyle:         c.PathStyle,
		UploadTTL:         c.UploadTTL,
		SageMakerEndpoint: c.SageMakerEndpoint,
		InferenceRegion:   c.InferenceRegion,
		InferenceURL:      c.InferenceURL,
		InferenceTimeout:  c.InferenceTimeout,
		RedisURL:          c.RedisURL,
		HashSecret:        c.HashSecret,
	}
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("reel: configuration is required but not found in config files; " +
				"ensure 'extensions.reel' or 'reel' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("reel: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("bucket", e.config.Bucket),
		forge.F("sagemaker_endpoint", e.config.SageMakerEndpoint),
		forge.F("inference_url", e.config.InferenceURL),
		forge.F("redis", e.config.RedisURL != ""),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.reel" first (namespaced pattern).
	if cm.IsSet("extensions.reel") {
		if err := cm.Bind("extensions.reel", &cfg); err == nil {
			e.Logger().Debug("reel: loaded config from file",
				forge.F("key", "extensions.reel"),
			)
			return cfg, true
		}
		e.Logger().Warn("reel: failed to bind extensions.reel config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "reel" key.
	if cm.IsSet("reel") {
		if err := cm.Bind("reel", &cfg); err == nil {
			e.Logger().Debug("reel: loaded config from file",
				forge.F("key", "reel"),
			)
			return cfg, true
		}
		e.Logger().Warn("reel: failed to bind reel config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.Region == "" {
		cfg.Region = defaults.Region
	}
	if cfg.UploadTTL == 0 {
		cfg.UploadTTL = defaults.UploadTTL
	}
	if cfg.InferenceTimeout == 0 {
		cfg.InferenceTimeout = defaults.InferenceTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.PathStyle {
		yamlConfig.PathStyle = true
	}

	// String fields: YAML takes precedence.
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	fill(&yamlConfig.BasePath, programmaticConfig.BasePath)
	fill(&yamlConfig.Bucket, programmaticConfig.Bucket)
	fill(&yamlConfig.Region, programmaticConfig.Region)
	fill(&yamlConfig.StorageEndpoint, programmaticConfig.StorageEndpoint)
	fill(&yamlConfig.SageMakerEndpoint, programmaticConfig.SageMakerEndpoint)
	fill(&yamlConfig.InferenceRegion, programmaticConfig.InferenceRegion)
	fill(&yamlConfig.InferenceURL, programmaticConfig.InferenceURL)
	fill(&yamlConfig.RedisURL, programmaticConfig.RedisURL)
	fill(&yamlConfig.HashSecret, programmaticConfig.HashSecret)
	fill(&yamlConfig.AdminToken, programmaticConfig.AdminToken)

	// Duration fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.UploadTTL == 0 && programmaticConfig.UploadTTL != 0 {
		yamlConfig.UploadTTL = programmaticConfig.UploadTTL
	}
	if yamlConfig.InferenceTimeout == 0 && programmaticConfig.InferenceTimeout != 0 {
		yamlConfig.InferenceTimeout = programmaticConfig.InferenceTimeout
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
