package stats

import "errors"

// Invalid arguments are rejected at the boundary, before any store or
// cache call, so caller bugs are not masked by silent defaulting.
var (
	ErrUnknownFilter = errors.New("unknown time filter")
	ErrInvalidLimit  = errors.New("limit must be positive")
	ErrInvalidOffset = errors.New("offset must not be negative")
)
