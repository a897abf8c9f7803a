// Package httpinvoker invokes a model served behind a plain HTTP endpoint.
package httpinvoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xraph/reel/analysis"
	"github.com/xraph/reel/inference"
)

var _ inference.Invoker = (*Invoker)(nil)

// DefaultTimeout bounds one inference request.
const DefaultTimeout = 5 * time.Minute

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 16 << 20

// ErrStatus is wrapped by errors for non-2xx responses.
var ErrStatus = errors.New("httpinvoker: unexpected status")

// Invoker POSTs {"video_path": ...} to a fixed URL.
type Invoker struct {
	url    string
	client *http.Client
	header http.Header
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Invoker) { i.client = c }
}

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) { i.client.Timeout = d }
}

// WithHeader adds a header sent on every request, e.g. an auth token.
func WithHeader(key, value string) Option {
	return func(i *Invoker) { i.header.Set(key, value) }
}

// New returns an Invoker for url.
func New(url string, opts ...Option) *Invoker {
	i := &Invoker{
		url:    url,
		client: &http.Client{Timeout: DefaultTimeout},
		header: http.Header{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Invoke implements inference.Invoker.
func (i *Invoker) Invoke(ctx context.Context, locator string) (analysis.Result, error) {
	body, err := inference.EncodeRequest(locator)
	if err != nil {
		return nil, fmt.Errorf("httpinvoker: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpinvoker: build request: %w", err)
	}
	for k, v := range i.header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpinvoker: post: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("httpinvoker: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
	}

	res, err := analysis.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("httpinvoker: %w", err)
	}
	return res, nil
}
