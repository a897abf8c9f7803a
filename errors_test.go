package reel_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/xraph/reel"
)

func TestHTTPStatusAndMessage(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{reel.ErrUnauthorized, http.StatusUnauthorized, "Invalid API key"},
		{reel.ErrBadRequest, http.StatusBadRequest, "Key is required"},
		{reel.ErrNotFound, http.StatusNotFound, "File not found"},
		{reel.ErrForbidden, http.StatusForbidden, "Unauthorized"},
		{reel.ErrAlreadyAnalyzed, http.StatusBadRequest, "File already analyzed"},
		{reel.ErrQuotaExceeded, http.StatusTooManyRequests, "Monthly quota exceeded"},
		{reel.ErrAssetNotFound, http.StatusNotFound, "Video file not found in storage. Please re-upload."},
		{reel.ErrAssetInvalid, http.StatusBadRequest, "Video file is too small or empty. Upload may have failed."},
		{reel.ErrInferenceFailure, http.StatusInternalServerError, "Analysis failed. Please try again later."},
		{reel.ErrInternal, http.StatusInternalServerError, "Internal server error"},
		{errors.New("something unexpected"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("%w: detail that must not leak", tt.err)
			if got := reel.HTTPStatus(wrapped); got != tt.status {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.status)
			}
			if got := reel.PublicMessage(wrapped); got != tt.message {
				t.Errorf("PublicMessage = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := reel.ValidationError{Field: "fileType", Message: "Invalid file type"}

	if !errors.Is(err, reel.ErrBadRequest) {
		t.Error("validation errors should classify as bad request")
	}
	if got := reel.HTTPStatus(err); got != http.StatusBadRequest {
		t.Errorf("HTTPStatus = %d", got)
	}
	if got := reel.PublicMessage(err); got != "Invalid file type" {
		t.Errorf("PublicMessage = %q", got)
	}
}

func TestIsClientError(t *testing.T) {
	if !reel.IsClientError(reel.ErrQuotaExceeded) {
		t.Error("quota exceeded is a client error")
	}
	if reel.IsClientError(reel.ErrInferenceFailure) {
		t.Error("inference failure is not a client error")
	}
}
