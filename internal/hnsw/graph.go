package hnsw

import (
	"sync"

	"github.com/annbench/hnswcore/internal/annmath"
	"github.com/annbench/hnswcore/internal/vecstore"
)

// Index is the in-memory HNSW index: a vector store, a per-level adjacency
// graph, a flattened layer-0 arena built once at the end of Build, and the
// bookkeeping (entry point, max level, distance counter) the spec's six
// external operations need (spec §6).
type Index struct {
	mu sync.RWMutex // guards the handful of fields queries read after build

	params Params

	store *vecstore.Store

	levels   []int32
	maxLevel int

	// layers[level][id] is the ordered neighbor list for vertex id at that
	// level. No layer is mutated after build finishes; queries read layer 0
	// through flat once flattening has run, and read layers[1:] directly
	// for the sparse upper layers (spec §4.1, "Nested dynamic
	// adjacency... keep upper layers as small growable lists").
	layers [][][]uint32
	locks  []spinlock

	flat flatLayer0

	entryPoint uint32
	built      bool

	distCounter annmath.Counter

	scratchPool sync.Pool
}

// New creates an index with the spec's default parameters (spec §6: new()).
func New() *Index {
	return NewWithOptions(defaultParams())
}

// NewWithOptions creates an index with an explicit parameter set,
// including the Alpha/Seed/Workers knobs that sit outside the strict
// SetParameters contract (used by the config/grid-search layer).
func NewWithOptions(p Params) *Index {
	if p.M <= 0 {
		p.M = DefaultM
	}
	if p.EfConstruction <= 0 {
		p.EfConstruction = DefaultEfConstruction
	}
	if p.EfSearch <= 0 {
		p.EfSearch = DefaultEfSearch
	}
	if p.Alpha < 1.0 {
		p.Alpha = DefaultAlpha
	}
	idx := &Index{params: p}
	idx.scratchPool.New = func() any {
		n := 0
		if idx.store != nil {
			n = idx.store.Len()
		}
		return newVisitedScratch(n)
	}
	return idx
}

// SetParameters sets M, efConstruction and efSearch. It must be called
// before Build (spec §6).
func (idx *Index) SetParameters(m, efConstruction, efSearch int) error {
	if err := validatePositiveInts(m, efConstruction, efSearch); err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.built {
		return ErrAlreadyBuilt
	}
	idx.params.M = m
	idx.params.EfConstruction = efConstruction
	idx.params.EfSearch = efSearch
	return nil
}

// SetEfSearchUnchecked changes the search-time candidate pool size after
// Build has already run. Unlike M and EfConstruction, EfSearch affects
// only Search, never the graph structure itself, so it is safe to change
// post-build — this is what lets a grid sweep measure several efSearch
// values against a single built index instead of rebuilding for each one
// (spec §9, "efSearch is a pure query-time knob").
func (idx *Index) SetEfSearchUnchecked(efSearch int) error {
	if efSearch <= 0 {
		return ErrInvalidParameters
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.params.EfSearch = efSearch
	return nil
}

// SetAlpha sets the RobustPrune diversity coefficient (spec §4.3). Not
// part of the strict six-operation core contract; used by the dataset
// auto-tune / grid-search layer.
func (idx *Index) SetAlpha(alpha float32) error {
	if alpha < 1.0 {
		return ErrInvalidParameters
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.built {
		return ErrAlreadyBuilt
	}
	idx.params.Alpha = alpha
	return nil
}

// SetSeed fixes the RNG seed used for level assignment.
func (idx *Index) SetSeed(seed int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.built {
		return ErrAlreadyBuilt
	}
	idx.params.Seed = seed
	return nil
}

// SetWorkers bounds build parallelism; 1 forces a serial, deterministic
// build (spec §5, §9 "Deterministic option").
func (idx *Index) SetWorkers(n int) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.built {
		return ErrAlreadyBuilt
	}
	idx.params.Workers = n
	return nil
}

// Len returns the number of vectors in the index (0 before Build).
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.store == nil {
		return 0
	}
	return idx.store.Len()
}

// ResetDistanceComputations zeros the cumulative distance-call counter
// (spec §6). The counter otherwise accumulates across every Build and
// Search call since the last reset; harnesses that want a per-query count
// call this between queries (spec §9 open question, resolved: cumulative
// by default, explicit reset exposed).
func (idx *Index) ResetDistanceComputations() {
	idx.distCounter.Reset()
}

// GetDistanceComputations returns the cumulative distance-call count
// since the last reset.
func (idx *Index) GetDistanceComputations() int64 {
	return idx.distCounter.Load()
}

// dist computes squared Euclidean distance and counts the call. Every
// edge consideration in build or search goes through this, never through
// annmath.SquaredEuclidean directly (spec §5, "distance-computation
// counter... incremented by every dist call").
func (idx *Index) dist(a, b []float32) float32 {
	idx.distCounter.Add(1)
	return annmath.SquaredEuclidean(a, b)
}

func (idx *Index) neighborsAt(level int, id uint32) []uint32 {
	return idx.layers[level][id]
}
