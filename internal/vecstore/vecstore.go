// Package vecstore holds the base vector set backing an HNSW index: a
// contiguous, row-major array of N×D float32 values addressed by integer
// vertex id. It is created once at build start and is read-only for the
// rest of the index's lifetime.
package vecstore

import "fmt"

// Store is a contiguous row-major array of vectors. Store.At(id) returns a
// slice view into the backing array — callers must not mutate it.
type Store struct {
	dim  int
	n    int
	flat []float32
}

// New builds a Store from a flat row-major buffer of length n*dim.
// It returns an error if dim <= 0 or len(flat) is not divisible by dim.
func New(dim int, flat []float32) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vecstore: dimension must be positive, got %d", dim)
	}
	if len(flat)%dim != 0 {
		return nil, fmt.Errorf("vecstore: base length %d is not divisible by dimension %d", len(flat), dim)
	}
	return &Store{
		dim:  dim,
		n:    len(flat) / dim,
		flat: flat,
	}, nil
}

// Dim returns the vector dimensionality.
func (s *Store) Dim() int { return s.dim }

// Len returns the number of vectors in the store.
func (s *Store) Len() int { return s.n }

// At returns a read-only view of the vector for vertex id. It panics if id
// is out of [0, Len()) — an out-of-range id here is always an internal
// invariant violation, never caller input (build/search validate ids
// before calling At).
func (s *Store) At(id uint32) []float32 {
	off := int(id) * s.dim
	return s.flat[off : off+s.dim : off+s.dim]
}
