package reel

import "github.com/xraph/reel/id"

// ID is the primary identifier type for all Reel entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
