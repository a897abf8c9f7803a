package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/reel/account"
	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
)

// DefaultHookTimeout bounds a single hook call.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so dispatch never inspects plugins.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onAccountProvisioned []OnAccountProvisioned
	onKeyIssued          []OnKeyIssued
	onKeyRevoked         []OnKeyRevoked
	onUploadIssued       []OnUploadIssued
	onQuotaReserved      []OnQuotaReserved
	onQuotaExceeded      []OnQuotaExceeded
	onAnalysisCompleted  []OnAnalysisCompleted
	onAnalysisFailed     []OnAnalysisFailed
	onAssetMarkFailed    []OnAssetMarkFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook deadline.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnAccountProvisioned); ok {
		r.onAccountProvisioned = append(r.onAccountProvisioned, v)
	}
	if v, ok := p.(OnKeyIssued); ok {
		r.onKeyIssued = append(r.onKeyIssued, v)
	}
	if v, ok := p.(OnKeyRevoked); ok {
		r.onKeyRevoked = append(r.onKeyRevoked, v)
	}
	if v, ok := p.(OnUploadIssued); ok {
		r.onUploadIssued = append(r.onUploadIssued, v)
	}
	if v, ok := p.(OnQuotaReserved); ok {
		r.onQuotaReserved = append(r.onQuotaReserved, v)
	}
	if v, ok := p.(OnQuotaExceeded); ok {
		r.onQuotaExceeded = append(r.onQuotaExceeded, v)
	}
	if v, ok := p.(OnAnalysisCompleted); ok {
		r.onAnalysisCompleted = append(r.onAnalysisCompleted, v)
	}
	if v, ok := p.(OnAnalysisFailed); ok {
		r.onAnalysisFailed = append(r.onAnalysisFailed, v)
	}
	if v, ok := p.(OnAssetMarkFailed); ok {
		r.onAssetMarkFailed = append(r.onAssetMarkFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeOf((*OnInit)(nil)).Elem()},
	{"OnShutdown", reflect.TypeOf((*OnShutdown)(nil)).Elem()},
	{"OnAccountProvisioned", reflect.TypeOf((*OnAccountProvisioned)(nil)).Elem()},
	{"OnKeyIssued", reflect.TypeOf((*OnKeyIssued)(nil)).Elem()},
	{"OnKeyRevoked", reflect.TypeOf((*OnKeyRevoked)(nil)).Elem()},
	{"OnUploadIssued", reflect.TypeOf((*OnUploadIssued)(nil)).Elem()},
	{"OnQuotaReserved", reflect.TypeOf((*OnQuotaReserved)(nil)).Elem()},
	{"OnQuotaExceeded", reflect.TypeOf((*OnQuotaExceeded)(nil)).Elem()},
	{"OnAnalysisCompleted", reflect.TypeOf((*OnAnalysisCompleted)(nil)).Elem()},
	{"OnAnalysisFailed", reflect.TypeOf((*OnAnalysisFailed)(nil)).Elem()},
	{"OnAssetMarkFailed", reflect.TypeOf((*OnAssetMarkFailed)(nil)).Elem()},
}

// implementedInterfaces returns the hook names implemented by the plugin.
func implementedInterfaces(p Plugin) []string {
	var out []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			out = append(out, h.name)
		}
	}
	return out
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnInit", func(ctx context.Context) error {
			return p.OnInit(ctx, engine)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnShutdown", p.OnShutdown)
	}
}

// EmitAccountProvisioned emits an account provisioned event.
func (r *Registry) EmitAccountProvisioned(ctx context.Context, a *account.Account, limit int64) {
	r.mu.RLock()
	plugins := r.onAccountProvisioned
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnAccountProvisioned", func(ctx context.Context) error {
			return p.OnAccountProvisioned(ctx, a, limit)
		})
	}
}

// EmitKeyIssued emits a key issued event.
func (r *Registry) EmitKeyIssued(ctx context.Context, k *account.APIKey) {
	r.mu.RLock()
	plugins := r.onKeyIssued
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnKeyIssued", func(ctx context.Context) error {
			return p.OnKeyIssued(ctx, k)
		})
	}
}

// EmitKeyRevoked emits a key revoked event.
func (r *Registry) EmitKeyRevoked(ctx context.Context, keyID id.APIKeyID) {
	r.mu.RLock()
	plugins := r.onKeyRevoked
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnKeyRevoked", func(ctx context.Context) error {
			return p.OnKeyRevoked(ctx, keyID)
		})
	}
}

// EmitUploadIssued emits an upload issued event.
func (r *Registry) EmitUploadIssued(ctx context.Context, a *asset.Asset) {
	r.mu.RLock()
	plugins := r.onUploadIssued
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnUploadIssued", func(ctx context.Context) error {
			return p.OnUploadIssued(ctx, a)
		})
	}
}

// EmitQuotaReserved emits a quota reserved event.
func (r *Registry) EmitQuotaReserved(ctx context.Context, accountID id.AccountID, key string) {
	r.mu.RLock()
	plugins := r.onQuotaReserved
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnQuotaReserved", func(ctx context.Context) error {
			return p.OnQuotaReserved(ctx, accountID, key)
		})
	}
}

// EmitQuotaExceeded emits a quota exceeded event.
func (r *Registry) EmitQuotaExceeded(ctx context.Context, accountID id.AccountID, key string) {
	r.mu.RLock()
	plugins := r.onQuotaExceeded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnQuotaExceeded", func(ctx context.Context) error {
			return p.OnQuotaExceeded(ctx, accountID, key)
		})
	}
}

// EmitAnalysisCompleted emits an analysis completed event.
func (r *Registry) EmitAnalysisCompleted(ctx context.Context, accountID id.AccountID, key string, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onAnalysisCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnAnalysisCompleted", func(ctx context.Context) error {
			return p.OnAnalysisCompleted(ctx, accountID, key, elapsed)
		})
	}
}

// EmitAnalysisFailed emits an analysis failed event.
func (r *Registry) EmitAnalysisFailed(ctx context.Context, accountID id.AccountID, key string, err error) {
	r.mu.RLock()
	plugins := r.onAnalysisFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnAnalysisFailed", func(ctx context.Context) error {
			return p.OnAnalysisFailed(ctx, accountID, key, err)
		})
	}
}

// EmitAssetMarkFailed emits an asset mark failed event.
func (r *Registry) EmitAssetMarkFailed(ctx context.Context, key string, err error) {
	r.mu.RLock()
	plugins := r.onAssetMarkFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, p.Name(), "OnAssetMarkFailed", func(ctx context.Context) error {
			return p.OnAssetMarkFailed(ctx, key, err)
		})
	}
}

// call runs one hook inline under the registry deadline. Hook failures are
// logged and never reach the caller. Hooks run on a context detached from
// request cancellation so a dropped client does not suppress them.
func (r *Registry) call(ctx context.Context, pluginName, hook string, fn func(context.Context) error) {
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := fn(hctx); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}
