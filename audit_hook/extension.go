// Package audithook bridges Reel lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/reel/account"
	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
	"github.com/xraph/reel/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnAccountProvisioned = (*Extension)(nil)
	_ plugin.OnKeyIssued          = (*Extension)(nil)
	_ plugin.OnKeyRevoked         = (*Extension)(nil)
	_ plugin.OnUploadIssued       = (*Extension)(nil)
	_ plugin.OnQuotaReserved      = (*Extension)(nil)
	_ plugin.OnQuotaExceeded      = (*Extension)(nil)
	_ plugin.OnAnalysisCompleted  = (*Extension)(nil)
	_ plugin.OnAnalysisFailed     = (*Extension)(nil)
	_ plugin.OnAssetMarkFailed    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audit trail entry.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Reel lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Account hooks
// ──────────────────────────────────────────────────

// OnAccountProvisioned implements plugin.OnAccountProvisioned.
func (e *Extension) OnAccountProvisioned(ctx context.Context, a *account.Account, limit int64) error {
	return e.record(ctx, ActionAccountProvisioned, SeverityInfo, OutcomeSuccess,
		ResourceAccount, a.ID.String(), CategoryAccess, nil,
		"name", a.Name,
		"limit", limit,
	)
}

// OnKeyIssued implements plugin.OnKeyIssued. Only the hint is recorded.
func (e *Extension) OnKeyIssued(ctx context.Context, k *account.APIKey) error {
	return e.record(ctx, ActionKeyIssued, SeverityInfo, OutcomeSuccess,
		ResourceAPIKey, k.ID.String(), CategoryAccess, nil,
		"account_id", k.AccountID.String(),
		"hint", k.Hint,
	)
}

// OnKeyRevoked implements plugin.OnKeyRevoked.
func (e *Extension) OnKeyRevoked(ctx context.Context, keyID id.APIKeyID) error {
	return e.record(ctx, ActionKeyRevoked, SeverityWarning, OutcomeSuccess,
		ResourceAPIKey, keyID.String(), CategoryAccess, nil,
	)
}

// ──────────────────────────────────────────────────
// Upload and quota hooks
// ──────────────────────────────────────────────────

// OnUploadIssued implements plugin.OnUploadIssued.
func (e *Extension) OnUploadIssued(ctx context.Context, a *asset.Asset) error {
	return e.record(ctx, ActionUploadIssued, SeverityInfo, OutcomeSuccess,
		ResourceAsset, a.Key, CategoryUsage, nil,
		"account_id", a.AccountID.String(),
		"content_type", a.ContentType,
	)
}

// OnQuotaReserved implements plugin.OnQuotaReserved.
func (e *Extension) OnQuotaReserved(ctx context.Context, accountID id.AccountID, key string) error {
	return e.record(ctx, ActionQuotaReserved, SeverityInfo, OutcomeSuccess,
		ResourceQuota, accountID.String(), CategoryUsage, nil,
		"key", key,
	)
}

// OnQuotaExceeded implements plugin.OnQuotaExceeded.
func (e *Extension) OnQuotaExceeded(ctx context.Context, accountID id.AccountID, key string) error {
	return e.record(ctx, ActionQuotaExceeded, SeverityWarning, OutcomeFailure,
		ResourceQuota, accountID.String(), CategoryUsage, nil,
		"key", key,
	)
}

// ──────────────────────────────────────────────────
// Analysis hooks
// ──────────────────────────────────────────────────

// OnAnalysisCompleted implements plugin.OnAnalysisCompleted.
func (e *Extension) OnAnalysisCompleted(ctx context.Context, accountID id.AccountID, key string, elapsed time.Duration) error {
	return e.record(ctx, ActionAnalysisCompleted, SeverityInfo, OutcomeSuccess,
		ResourceAsset, key, CategoryAnalysis, nil,
		"account_id", accountID.String(),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnAnalysisFailed implements plugin.OnAnalysisFailed.
func (e *Extension) OnAnalysisFailed(ctx context.Context, accountID id.AccountID, key string, err error) error {
	return e.record(ctx, ActionAnalysisFailed, SeverityWarning, OutcomeFailure,
		ResourceAsset, key, CategoryAnalysis, err,
		"account_id", accountID.String(),
	)
}

// OnAssetMarkFailed implements plugin.OnAssetMarkFailed. The caller got a
// result but may be able to analyze the asset again.
func (e *Extension) OnAssetMarkFailed(ctx context.Context, key string, err error) error {
	return e.record(ctx, ActionAssetMarkFailed, SeverityCritical, OutcomeFailure,
		ResourceAsset, key, CategoryAnalysis, err,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
