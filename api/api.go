// Package api exposes a Reel engine over HTTP.
//
// Client routes authenticate with "Authorization: Bearer <key>". Admin
// routes, when enabled, require the configured admin token in the same
// header.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/reel"
	"github.com/xraph/reel/account"
	"github.com/xraph/reel/analysis"
	"github.com/xraph/reel/asset"
	"github.com/xraph/reel/id"
	"github.com/xraph/reel/quota"
	"github.com/xraph/reel/storage"
)

// maxBodyBytes bounds request bodies; every route takes a small JSON object.
const maxBodyBytes = 64 << 10

// Engine is the subset of *reel.Reel the handlers use.
type Engine interface {
	Analyze(ctx context.Context, credential, key string) (analysis.Result, error)
	IssueUpload(ctx context.Context, credential, fileType string) (*storage.Upload, error)
	Ping(ctx context.Context) error

	ProvisionAccount(ctx context.Context, name string, limit int64) (*account.Account, string, error)
	IssueKey(ctx context.Context, accountID id.AccountID) (*account.APIKey, string, error)
	RevokeKey(ctx context.Context, keyID id.APIKeyID) error
	ListKeys(ctx context.Context, accountID id.AccountID) ([]*account.APIKey, error)
	SetQuota(ctx context.Context, accountID id.AccountID, limit int64) error
	Quota(ctx context.Context, accountID id.AccountID) (*quota.Record, error)
	Assets(ctx context.Context, accountID id.AccountID, opts asset.ListOpts) ([]*asset.Asset, error)
}

var _ Engine = (*reel.Reel)(nil)

// Option configures the handler.
type Option func(*handler)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *handler) { h.logger = logger }
}

// WithAdminToken enables the /admin routes guarded by token.
func WithAdminToken(token string) Option {
	return func(h *handler) { h.adminToken = token }
}

// WithMetricsHandler mounts m at GET /metrics.
func WithMetricsHandler(m http.Handler) Option {
	return func(h *handler) { h.metrics = m }
}

type handler struct {
	engine     Engine
	logger     *slog.Logger
	adminToken string
	metrics    http.Handler
}

// NewHandler returns the HTTP routes for engine.
func NewHandler(engine Engine, opts ...Option) *http.ServeMux {
	h := &handler{engine: engine, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /ready", h.ready)

	mux.HandleFunc("POST /api/sentiment-inference", h.analyze)
	mux.HandleFunc("POST /api/upload-url", h.uploadURL)

	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}

	if h.adminToken != "" {
		mux.HandleFunc("POST /admin/accounts", h.admin(h.createAccount))
		mux.HandleFunc("GET /admin/accounts/{id}/keys", h.admin(h.listKeys))
		mux.HandleFunc("POST /admin/accounts/{id}/keys", h.admin(h.createKey))
		mux.HandleFunc("DELETE /admin/keys/{id}", h.admin(h.revokeKey))
		mux.HandleFunc("GET /admin/accounts/{id}/quota", h.admin(h.getQuota))
		mux.HandleFunc("PUT /admin/accounts/{id}/quota", h.admin(h.putQuota))
		mux.HandleFunc("GET /admin/accounts/{id}/assets", h.admin(h.listAssets))
	}

	return mux
}

func (h *handler) ready(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type analyzeRequest struct {
	Key string `json:"key"`
}

type analyzeResponse struct {
	Analysis analysis.Result `json:"analysis"`
}

func (h *handler) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	// A malformed body leaves Key empty; the engine then reports the
	// credential or missing key in its usual order.
	_ = decode(r, &req) //nolint:errcheck // see above

	result, err := h.engine.Analyze(r.Context(), bearer(r), req.Key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Analysis: result})
}

type uploadRequest struct {
	FileType string `json:"fileType"`
}

func (h *handler) uploadURL(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	_ = decode(r, &req) //nolint:errcheck // empty fileType is rejected by the engine

	up, err := h.engine.IssueUpload(r.Context(), bearer(r), req.FileType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

// ──────────────────────────────────────────────────
// Admin routes
// ──────────────────────────────────────────────────

func (h *handler) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := bearer(r)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.adminToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
			return
		}
		next(w, r)
	}
}

type createAccountRequest struct {
	Name  string `json:"name"`
	Limit int64  `json:"limit"`
}

type createAccountResponse struct {
	Account *account.Account `json:"account"`
	Secret  string           `json:"secret"`
}

func (h *handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	a, secret, err := h.engine.ProvisionAccount(r.Context(), req.Name, req.Limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createAccountResponse{Account: a, Secret: secret})
}

type createKeyResponse struct {
	Key    *account.APIKey `json:"key"`
	Secret string          `json:"secret"`
}

func (h *handler) createKey(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, id.PrefixAccount)
	if !ok {
		return
	}
	k, secret, err := h.engine.IssueKey(r.Context(), accountID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createKeyResponse{Key: k, Secret: secret})
}

func (h *handler) listKeys(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, id.PrefixAccount)
	if !ok {
		return
	}
	keys, err := h.engine.ListKeys(r.Context(), accountID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (h *handler) revokeKey(w http.ResponseWriter, r *http.Request) {
	keyID, ok := pathID(w, r, id.PrefixAPIKey)
	if !ok {
		return
	}
	if err := h.engine.RevokeKey(r.Context(), keyID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type quotaRequest struct {
	Limit *int64 `json:"limit"`
}

// quotaResponse is the effective quota with derived fields. Remaining is -1
// for unlimited accounts.
type quotaResponse struct {
	*quota.Record
	Remaining int64     `json:"remaining"`
	ResetsAt  time.Time `json:"resets_at"`
}

func (h *handler) getQuota(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, id.PrefixAccount)
	if !ok {
		return
	}
	q, err := h.engine.Quota(r.Context(), accountID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quotaResponse{
		Record:    q,
		Remaining: q.Remaining(),
		ResetsAt:  quota.PeriodEnd(q.PeriodStart),
	})
}

func (h *handler) putQuota(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, id.PrefixAccount)
	if !ok {
		return
	}
	var req quotaRequest
	if err := decode(r, &req); err != nil || req.Limit == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit is required"})
		return
	}
	if err := h.engine.SetQuota(r.Context(), accountID, *req.Limit); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.getQuota(w, r)
}

func (h *handler) listAssets(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, id.PrefixAccount)
	if !ok {
		return
	}
	opts, err := listOpts(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	assets, err := h.engine.Assets(r.Context(), accountID, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := reel.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	} else {
		h.logger.Debug("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, errorResponse{Error: reel.PublicMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return io.EOF
	}
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func pathID(w http.ResponseWriter, r *http.Request, prefix id.Prefix) (id.ID, bool) {
	parsed, err := id.ParseWithPrefix(r.PathValue("id"), prefix)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid id"})
		return id.Nil, false
	}
	return parsed, true
}

var errBadQuery = errors.New("invalid query parameter")

// listOpts reads ?analyzed=true|false&limit=N&offset=N.
func listOpts(r *http.Request) (asset.ListOpts, error) {
	var opts asset.ListOpts
	q := r.URL.Query()

	if v := q.Get("analyzed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("%w: analyzed", errBadQuery)
		}
		opts.Analyzed = &b
	}
	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("%w: %s", errBadQuery, name)
		}
		*dst = n
	}
	return opts, nil
}
