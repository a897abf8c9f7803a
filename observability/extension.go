// Package observability provides a metrics plugin for Reel that records
// lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/reel/account"
	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
	"github.com/xraph/reel/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnAccountProvisioned = (*MetricsExtension)(nil)
	_ plugin.OnKeyIssued          = (*MetricsExtension)(nil)
	_ plugin.OnKeyRevoked         = (*MetricsExtension)(nil)
	_ plugin.OnUploadIssued       = (*MetricsExtension)(nil)
	_ plugin.OnQuotaReserved      = (*MetricsExtension)(nil)
	_ plugin.OnQuotaExceeded      = (*MetricsExtension)(nil)
	_ plugin.OnAnalysisCompleted  = (*MetricsExtension)(nil)
	_ plugin.OnAnalysisFailed     = (*MetricsExtension)(nil)
	_ plugin.OnAssetMarkFailed    = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// ErrorClassifier reports whether an analysis error was the caller's fault.
// reel.IsClientError satisfies it.
type ErrorClassifier func(error) bool

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Reel plugin to track analysis traffic.
type MetricsExtension struct {
	factory  MetricFactory
	isClient ErrorClassifier

	// Provisioning metrics
	AccountsProvisioned Counter
	KeysIssued          Counter
	KeysRevoked         Counter

	// Upload metrics
	UploadsIssued Counter

	// Quota metrics
	QuotaReserved Counter
	QuotaExceeded Counter

	// Analysis metrics
	AnalysesCompleted Counter
	AnalysesRejected  Counter
	AnalysesErrored   Counter
	AnalysisLatency   Histogram

	// Error metrics
	MarkFailures Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided
// MetricFactory. isClient splits failures into rejected and errored; when
// nil every failure counts as errored.
func NewMetricsExtension(factory MetricFactory, isClient ErrorClassifier) *MetricsExtension {
	return &MetricsExtension{
		factory:  factory,
		isClient: isClient,

		AccountsProvisioned: factory.Counter("reel.account.provisioned"),
		KeysIssued:          factory.Counter("reel.key.issued"),
		KeysRevoked:         factory.Counter("reel.key.revoked"),

		UploadsIssued: factory.Counter("reel.upload.issued"),

		QuotaReserved: factory.Counter("reel.quota.reserved"),
		QuotaExceeded: factory.Counter("reel.quota.exceeded"),

		AnalysesCompleted: factory.Counter("reel.analysis.completed"),
		AnalysesRejected:  factory.Counter("reel.analysis.rejected"),
		AnalysesErrored:   factory.Counter("reel.analysis.errored"),
		AnalysisLatency:   factory.Histogram("reel.analysis.latency_ms"),

		MarkFailures: factory.Counter("reel.asset.mark_failures"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// OnAccountProvisioned implements plugin.OnAccountProvisioned.
func (m *MetricsExtension) OnAccountProvisioned(_ context.Context, _ *account.Account, _ int64) error {
	m.AccountsProvisioned.Inc()
	return nil
}

// OnKeyIssued implements plugin.OnKeyIssued.
func (m *MetricsExtension) OnKeyIssued(_ context.Context, _ *account.APIKey) error {
	m.KeysIssued.Inc()
	return nil
}

// OnKeyRevoked implements plugin.OnKeyRevoked.
func (m *MetricsExtension) OnKeyRevoked(_ context.Context, _ id.APIKeyID) error {
	m.KeysRevoked.Inc()
	return nil
}

// OnUploadIssued implements plugin.OnUploadIssued.
func (m *MetricsExtension) OnUploadIssued(_ context.Context, _ *asset.Asset) error {
	m.UploadsIssued.Inc()
	return nil
}

// OnQuotaReserved implements plugin.OnQuotaReserved.
func (m *MetricsExtension) OnQuotaReserved(_ context.Context, _ id.AccountID, _ string) error {
	m.QuotaReserved.Inc()
	return nil
}

// OnQuotaExceeded implements plugin.OnQuotaExceeded.
func (m *MetricsExtension) OnQuotaExceeded(_ context.Context, _ id.AccountID, _ string) error {
	m.QuotaExceeded.Inc()
	return nil
}

// OnAnalysisCompleted implements plugin.OnAnalysisCompleted.
func (m *MetricsExtension) OnAnalysisCompleted(_ context.Context, _ id.AccountID, _ string, elapsed time.Duration) error {
	m.AnalysesCompleted.Inc()
	m.AnalysisLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnAnalysisFailed implements plugin.OnAnalysisFailed.
func (m *MetricsExtension) OnAnalysisFailed(_ context.Context, _ id.AccountID, _ string, err error) error {
	if m.isClient != nil && m.isClient(err) {
		m.AnalysesRejected.Inc()
	} else {
		m.AnalysesErrored.Inc()
	}
	return nil
}

// OnAssetMarkFailed implements plugin.OnAssetMarkFailed.
func (m *MetricsExtension) OnAssetMarkFailed(_ context.Context, _ string, _ error) error {
	m.MarkFailures.Inc()
	return nil
}
