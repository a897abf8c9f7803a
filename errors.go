package reel

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Every error returned by Analyze and IssueUpload wraps
// exactly one of these.
var (
	ErrUnauthorized     = errors.New("reel: unauthorized")
	ErrBadRequest       = errors.New("reel: bad request")
	ErrNotFound         = errors.New("reel: not found")
	ErrForbidden        = errors.New("reel: forbidden")
	ErrAlreadyAnalyzed  = errors.New("reel: already analyzed")
	ErrQuotaExceeded    = errors.New("reel: quota exceeded")
	ErrAssetNotFound    = errors.New("reel: asset not found in storage")
	ErrAssetInvalid     = errors.New("reel: asset invalid")
	ErrInferenceFailure = errors.New("reel: inference failed")
	ErrInternal         = errors.New("reel: internal error")
)

// ValidationError represents a validation failure with details. It
// classifies as ErrBadRequest.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("reel: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap makes errors.Is(err, ErrBadRequest) hold.
func (e ValidationError) Unwrap() error { return ErrBadRequest }

type classification struct {
	err     error
	status  int
	message string
}

// classes is ordered; the first match wins.
var classes = []classification{
	{ErrUnauthorized, http.StatusUnauthorized, "Invalid API key"},
	{ErrBadRequest, http.StatusBadRequest, "Key is required"},
	{ErrNotFound, http.StatusNotFound, "File not found"},
	{ErrForbidden, http.StatusForbidden, "Unauthorized"},
	{ErrAlreadyAnalyzed, http.StatusBadRequest, "File already analyzed"},
	{ErrQuotaExceeded, http.StatusTooManyRequests, "Monthly quota exceeded"},
	{ErrAssetNotFound, http.StatusNotFound, "Video file not found in storage. Please re-upload."},
	{ErrAssetInvalid, http.StatusBadRequest, "Video file is too small or empty. Upload may have failed."},
	{ErrInferenceFailure, http.StatusInternalServerError, "Analysis failed. Please try again later."},
	{ErrInternal, http.StatusInternalServerError, "Internal server error"},
}

var internal = classes[len(classes)-1]

func classify(err error) classification {
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c
		}
	}
	return internal
}

// HTTPStatus returns the status code for err. Unknown errors are 500.
func HTTPStatus(err error) int {
	return classify(err).status
}

// PublicMessage returns the caller-safe message for err. Collaborator
// detail is never included.
func PublicMessage(err error) string {
	var ve ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return classify(err).message
}

// IsClientError reports whether err is caused by the caller rather than by
// the service or its dependencies.
func IsClientError(err error) bool {
	s := HTTPStatus(err)
	return s >= 400 && s < 500
}

// internalError wraps a collaborator failure as ErrInternal.
func internalError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
