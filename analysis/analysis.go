// Package analysis carries the output of the inference service.
package analysis

import (
	"encoding/json"
	"errors"
)

// ErrInvalidResult is returned for inference output that is not JSON.
var ErrInvalidResult = errors.New("analysis: result is not valid JSON")

// Result is the opaque JSON document produced by the inference service. It
// is passed through to callers without interpretation.
type Result json.RawMessage

// Parse validates data as JSON and returns it as a Result.
func Parse(data []byte) (Result, error) {
	if !json.Valid(data) {
		return nil, ErrInvalidResult
	}
	out := make(Result, len(data))
	copy(out, data)
	return out, nil
}

// MarshalJSON emits the result unchanged.
func (r Result) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON stores a copy of data.
func (r *Result) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}
