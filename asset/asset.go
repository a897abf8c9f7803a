// Package asset is the registry of uploaded video files and their
// analysis state.
package asset

import (
	"errors"
	"path"
	"strings"
	"time"

	"github.com/xraph/reel/id"
	"github.com/xraph/reel/types"
)

// ErrNotFound is returned when no asset exists for a key.
var ErrNotFound = errors.New("asset: not found")

// ErrExists is returned when creating an asset whose key is already taken.
var ErrExists = errors.New("asset: already exists")

// KeyPrefix is the storage prefix under which uploads are placed.
const KeyPrefix = "inference/"

// Asset is one uploaded file. Analyzed only ever moves from false to true.
type Asset struct {
	types.Entity
	ID          id.AssetID   `json:"id"`
	Key         string       `json:"key"`
	AccountID   id.AccountID `json:"account_id"`
	ContentType string       `json:"content_type"`
	Analyzed    bool         `json:"analyzed"`
	AnalyzedAt  *time.Time   `json:"analyzed_at,omitempty"`
}

// OwnedBy reports whether the asset belongs to accountID.
func (a *Asset) OwnedBy(accountID id.AccountID) bool {
	return a.AccountID.String() == accountID.String()
}

// ListOpts filters ListAssets.
type ListOpts struct {
	// Analyzed, when non-nil, restricts results to that state.
	Analyzed *bool
	Limit    int
	Offset   int
}

var contentTypes = map[string]string{
	".mp4": "video/mp4",
	".mov": "video/quicktime",
	".avi": "video/x-msvideo",
}

// ContentType returns the MIME type for an accepted video extension.
// The extension may be given with or without the leading dot.
func ContentType(ext string) (string, bool) {
	ext = NormalizeExt(ext)
	ct, ok := contentTypes[ext]
	return ct, ok
}

// NormalizeExt lowercases ext and ensures a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// NewKey returns a fresh storage key for an upload with the given
// extension, e.g. "inference/<uuid>.mp4".
func NewKey(name, ext string) string {
	return path.Join(KeyPrefix, name) + NormalizeExt(ext)
}
