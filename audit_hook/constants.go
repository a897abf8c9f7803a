package audithook

// Action constants for audit events.
const (
	// Account actions
	ActionAccountProvisioned = "account.provisioned"
	ActionKeyIssued          = "key.issued"
	ActionKeyRevoked         = "key.revoked"

	// Upload actions
	ActionUploadIssued = "upload.issued"

	// Quota actions
	ActionQuotaReserved = "quota.reserved"
	ActionQuotaExceeded = "quota.exceeded"

	// Analysis actions
	ActionAnalysisCompleted = "analysis.completed"
	ActionAnalysisFailed    = "analysis.failed"
	ActionAssetMarkFailed   = "asset.mark_failed"
)

// Resource constants for audit events.
const (
	ResourceAccount = "account"
	ResourceAPIKey  = "api_key"
	ResourceAsset   = "asset"
	ResourceQuota   = "quota"
)

// Category constants for audit events.
const (
	CategoryAccess   = "access"
	CategoryUsage    = "usage"
	CategoryAnalysis = "analysis"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
