package hnsw

import (
	"runtime"
	"sync/atomic"
)

// spinlock is an atomic-flag lock guarding reverse-edge writes to a
// single vertex's neighbor list during parallel build. It is padded to a
// cache line so that two vertices' locks never false-share (spec §9,
// "Per-vertex spinlock array").
//
// Hold times are always short (an append and, rarely, one pruning sort —
// spec §5 bounds this at ~50µs), so a bare CAS spin with Gosched backoff
// is preferable to a full mutex's syscall path.
type spinlock struct {
	locked atomic.Bool
	_       [60]byte // pad struct to 64 bytes (atomic.Bool is 4 bytes)
}

func (s *spinlock) Lock() {
	for !s.locked.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (s *spinlock) Unlock() {
	s.locked.Store(false)
}

// newSpinlocks allocates n independently-padded spinlocks.
func newSpinlocks(n int) []spinlock {
	return make([]spinlock, n)
}
