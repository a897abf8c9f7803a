// Package storage abstracts the object store that holds uploaded videos.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MinObjectSize is the smallest object, in bytes, accepted as a complete
// video upload. Anything smaller is treated as a failed or empty upload.
const MinObjectSize int64 = 1000

// ErrNotConfigured is returned by a nil-safe default when no storage backend
// has been wired.
var ErrNotConfigured = errors.New("storage: not configured")

// Object describes the stored state of a key.
type Object struct {
	Key         string `json:"key"`
	Exists      bool   `json:"exists"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type,omitempty"`
}

// Complete reports whether the object exists and meets MinObjectSize.
func (o *Object) Complete() bool {
	return o != nil && o.Exists && o.SizeBytes >= MinObjectSize
}

// Upload is a presigned upload ticket handed to a client.
type Upload struct {
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	ContentType string    `json:"contentType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Verifier inspects stored objects.
type Verifier interface {
	// Head returns the object's metadata. A missing object is reported with
	// Exists=false and a nil error.
	Head(ctx context.Context, key string) (*Object, error)
}

// Presigner issues direct-upload URLs.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*Upload, error)
}

// Locator returns the s3:// URI of key in bucket, the form the inference
// service expects.
func Locator(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
