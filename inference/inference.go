// Package inference invokes the remote sentiment model on a stored video.
package inference

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/xraph/reel/analysis"
)

// ErrNotConfigured is returned when no invoker has been wired.
var ErrNotConfigured = errors.New("inference: not configured")

// Invoker runs one inference attempt. Implementations never retry.
type Invoker interface {
	Invoke(ctx context.Context, locator string) (analysis.Result, error)
}

// Request is the payload sent to the model endpoint.
type Request struct {
	VideoPath string `json:"video_path"`
}

// EncodeRequest returns the JSON request body for locator.
func EncodeRequest(locator string) ([]byte, error) {
	return json.Marshal(Request{VideoPath: locator})
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, locator string) (analysis.Result, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, locator string) (analysis.Result, error) {
	return f(ctx, locator)
}
