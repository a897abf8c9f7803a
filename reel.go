package reel

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/reel/account"
	"github.com/xraph/reel/inference"
	"github.com/xraph/reel/plugin"
	"github.com/xraph/reel/quota"
	"github.com/xraph/reel/storage"
	"github.com/xraph/reel/store"
)

// TracerName is the instrumentation scope used for spans.
const TracerName = "github.com/xraph/reel"

// DefaultUploadTTL is how long an issued upload URL stays valid.
const DefaultUploadTTL = 15 * time.Minute

// defaultHashSecret is used when no hasher is configured. Deployments set
// their own through WithHashSecret or WithKeyHasher.
const defaultHashSecret = "reel-development-only"

// Reel is the analysis engine.
type Reel struct {
	store     store.Store
	quotas    quota.Store
	verifier  storage.Verifier
	presigner storage.Presigner
	invoker   inference.Invoker
	hasher    account.KeyHasher
	plugins   *plugin.Registry
	logger    *slog.Logger
	tracer    trace.Tracer

	bucket    string
	uploadTTL time.Duration
	now       func() time.Time

	// separateQuotas is set when quotas is not store, so Stop and Ping
	// reach both backends.
	separateQuotas bool
}

// New creates a new Reel instance. The store backs accounts, assets and,
// unless WithQuotaStore is given, quotas.
func New(s store.Store, opts ...Option) *Reel {
	hasher, _ := account.NewBlake3Hasher(account.DeriveHashKey(defaultHashSecret)) //nolint:errcheck // derived keys are always 32 bytes

	r := &Reel{
		store:     s,
		quotas:    s,
		hasher:    hasher,
		plugins:   plugin.NewRegistry(),
		logger:    slog.Default(),
		tracer:    otel.Tracer(TracerName),
		uploadTTL: DefaultUploadTTL,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Option configures a Reel instance.
type Option func(*Reel)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reel) {
		r.logger = logger
		r.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(r *Reel) {
		_ = r.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithQuotaStore moves the quota ledger to a separate backend, e.g. Redis.
func WithQuotaStore(q quota.Store) Option {
	return func(r *Reel) {
		r.quotas = q
		r.separateQuotas = true
	}
}

// WithVerifier sets the storage verifier used before inference.
func WithVerifier(v storage.Verifier) Option {
	return func(r *Reel) { r.verifier = v }
}

// WithPresigner sets the upload URL issuer.
func WithPresigner(p storage.Presigner) Option {
	return func(r *Reel) { r.presigner = p }
}

// WithInvoker sets the inference invoker.
func WithInvoker(i inference.Invoker) Option {
	return func(r *Reel) { r.invoker = i }
}

// WithBucket sets the bucket name used to build inference locators.
func WithBucket(bucket string) Option {
	return func(r *Reel) { r.bucket = bucket }
}

// WithTracer overrides the tracer. The default uses the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(r *Reel) { r.tracer = t }
}

// WithUploadTTL sets the lifetime of issued upload URLs.
func WithUploadTTL(ttl time.Duration) Option {
	return func(r *Reel) {
		if ttl > 0 {
			r.uploadTTL = ttl
		}
	}
}

// WithKeyHasher sets the API key hasher.
func WithKeyHasher(h account.KeyHasher) Option {
	return func(r *Reel) { r.hasher = h }
}

// WithHashSecret derives the API key hasher from a server secret.
func WithHashSecret(secret string) Option {
	return func(r *Reel) {
		h, err := account.NewBlake3Hasher(account.DeriveHashKey(secret))
		if err == nil {
			r.hasher = h
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reel) { r.now = now }
}

// Start migrates the store and initializes plugins.
func (r *Reel) Start(ctx context.Context) error {
	if err := r.store.Migrate(ctx); err != nil {
		return err
	}

	r.plugins.EmitInit(ctx, r)

	r.logger.Info("reel started",
		"bucket", r.bucket,
		"upload_ttl", r.uploadTTL,
		"plugins", r.plugins.Count(),
		"verifier", r.verifier != nil,
		"invoker", r.invoker != nil,
	)

	return nil
}

// Stop shuts down plugins and closes the stores.
func (r *Reel) Stop() error {
	ctx := context.Background()
	r.plugins.EmitShutdown(ctx)

	var errs []error
	if c, ok := r.quotas.(interface{ Close() error }); ok && r.separateQuotas {
		errs = append(errs, c.Close())
	}
	errs = append(errs, r.store.Close())
	return errors.Join(errs...)
}

// Ping checks the store and, when separate, the quota backend.
func (r *Reel) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return err
	}
	if p, ok := r.quotas.(interface{ Ping(context.Context) error }); ok && r.separateQuotas {
		return p.Ping(ctx)
	}
	return nil
}

// Store returns the underlying store.
func (r *Reel) Store() store.Store { return r.store }

// Plugins returns the plugin registry.
func (r *Reel) Plugins() *plugin.Registry { return r.plugins }

// Logger returns the engine logger.
func (r *Reel) Logger() *slog.Logger { return r.logger }

// Bucket returns the configured bucket.
func (r *Reel) Bucket() string { return r.bucket }
