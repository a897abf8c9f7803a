package reel

import (
	"github.com/xraph/reel/analysis"
	"github.com/xraph/reel/storage"
	"github.com/xraph/reel/types"
)

// Re-export common types for convenience so callers don't have to import
// the leaf packages.

// Entity is re-exported from types package.
type Entity = types.Entity

// Result is re-exported from analysis package.
type Result = analysis.Result

// Upload is re-exported from storage package.
type Upload = storage.Upload

// MinObjectSize is re-exported from storage package.
const MinObjectSize = storage.MinObjectSize

// NewEntity is re-exported from types package.
var NewEntity = types.NewEntity
