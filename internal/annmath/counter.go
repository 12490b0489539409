package annmath

import "sync/atomic"

// Counter is an atomic, cumulative tally of distance computations. The
// index engine increments it once per SquaredEuclidean call made on its
// behalf (at every edge considered during build or search) and exposes
// Reset/Load through its own public ResetDistanceComputations /
// GetDistanceComputations operations.
type Counter struct {
	n atomic.Int64
}

// Add increments the counter by delta.
func (c *Counter) Add(delta int64) {
	c.n.Add(delta)
}

// Load returns the cumulative count since the last Reset.
func (c *Counter) Load() int64 {
	return c.n.Load()
}

// Reset zeros the counter.
func (c *Counter) Reset() {
	c.n.Store(0)
}
