package hnsw

import "errors"

// Sentinel errors for the InvalidArgument kind (spec §7). Uninitialized
// search is deliberately not an error — see Search's degenerate zero-fill
// behavior — and Resource/Internal failures are not modeled as sentinels
// since they are not meant to be recovered from by a caller.
var (
	ErrInvalidDimension    = errors.New("hnsw: dimension must be positive")
	ErrBaseLengthMismatch  = errors.New("hnsw: base length not divisible by dimension")
	ErrOutputBufferTooSmall = errors.New("hnsw: output buffer must hold at least 10 ids")
	ErrDimensionMismatch   = errors.New("hnsw: query dimension does not match index dimension")
	ErrAlreadyBuilt        = errors.New("hnsw: index already built (build is idempotent only on fresh handles)")
	ErrInvalidParameters   = errors.New("hnsw: M, efConstruction and efSearch must be positive")
)
