package hnsw

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/annbench/hnswcore/internal/vecstore"
)

// reverseSlackFactor is the transient over-capacity a neighbor list may
// reach during parallel insertion before it gets pruned back down to
// Mlevel (spec I2: "a transient 2.5x slack is permitted during parallel
// insertion but must be resolved by the final flatten pass").
const reverseSlackFactor = 2.5

// insertChunk is the minimum unit of work handed to a worker at a time
// (spec §4.4 step 5: "chunk >= 64").
const insertChunk = 64

// Build performs the bulk HNSW build of spec §4.4: dimension D, a flat
// row-major base of N=len(base)/D vectors. Build is idempotent only on a
// fresh handle — calling it twice on the same Index returns
// ErrAlreadyBuilt.
func (idx *Index) Build(d int, base []float32) error {
	if d <= 0 {
		return ErrInvalidDimension
	}
	if len(base)%d != 0 {
		return ErrBaseLengthMismatch
	}

	idx.mu.Lock()
	if idx.built {
		idx.mu.Unlock()
		return ErrAlreadyBuilt
	}
	idx.built = true
	idx.mu.Unlock()

	store, err := vecstore.New(d, base)
	if err != nil {
		return err
	}
	idx.store = store
	n := store.Len()

	if n == 0 {
		idx.flat = flatLayer0{}
		return nil
	}

	levels, maxLevel := assignLevels(n, idx.params.Seed)
	idx.levels = levels
	idx.maxLevel = maxLevel
	idx.entryPoint = 0

	idx.layers = make([][][]uint32, maxLevel+1)
	for lc := range idx.layers {
		idx.layers[lc] = make([][]uint32, n)
	}
	idx.locks = newSpinlocks(n)

	workers := idx.params.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	idx.parallelInsert(n, workers)
	idx.finalizePrune()
	idx.flatten()
	return nil
}

func (idx *Index) parallelInsert(n, workers int) {
	if n <= 1 {
		return
	}
	var next atomic.Int64
	next.Store(1) // vertex 0 is the entry point and is never re-inserted

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scratch := newVisitedScratch(n)
			for {
				start := next.Add(insertChunk) - insertChunk
				if start >= int64(n) {
					return
				}
				end := start + insertChunk
				if end > int64(n) {
					end = int64(n)
				}
				for i := start; i < end; i++ {
					idx.insertVertex(uint32(i), scratch)
				}
			}
		}()
	}
	wg.Wait()
}

// insertVertex runs the descent + layered-insert steps of spec §4.4 step 5
// for a single vertex. It is called by exactly one worker for this id, so
// writes to layers[lc][id] (the forward list) need no lock; only the
// reverse-edge writes into other vertices' lists take the per-vertex
// spinlock.
func (idx *Index) insertVertex(i uint32, scratch *visitedScratch) {
	vec := idx.store.At(i)
	level := int(idx.levels[i])

	cur := []uint32{idx.entryPoint}

	for lc := idx.maxLevel; lc > level; lc-- {
		cur = idsOf(idx.searchLayer(vec, cur, 1, lc, scratch))
	}

	top := level
	if top > idx.maxLevel {
		top = idx.maxLevel
	}

	for lc := top; lc >= 0; lc-- {
		cand := idx.searchLayer(vec, cur, idx.params.EfConstruction, lc, scratch)
		mMax := idx.params.mLevel(lc)
		sel := idx.selectNeighbors(i, cand, mMax)

		idx.layers[lc][i] = sel

		for _, s := range sel {
			idx.addReverseEdge(lc, s, i, mMax)
		}

		if len(cand) > 0 {
			cur = idsOf(cand)
		}
	}
}

// addReverseEdge appends i to s's neighbor list at layer lc under s's
// spinlock, pruning back to mMax via RobustPrune (rescored against s) if
// the list has drifted past the transient slack bound (spec §4.4 step 5,
// §5 "Shared-resource policy").
func (idx *Index) addReverseEdge(lc int, s, i uint32, mMax int) {
	idx.locks[s].Lock()
	defer idx.locks[s].Unlock()

	nbs := idx.layers[lc][s]
	if containsID(nbs, i) {
		return
	}
	nbs = append(nbs, i)

	if float64(len(nbs)) > float64(mMax)*reverseSlackFactor {
		cand := idx.rescoreAgainst(s, nbs)
		nbs = idx.selectNeighbors(s, cand, mMax)
	}
	idx.layers[lc][s] = nbs
}

func containsID(ids []uint32, target uint32) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
