package hnsw

import (
	"container/heap"
	"math"
)

// searchLayer performs the layered best-first beam search of spec §4.5.
// entries is the set E of starting vertex ids; ef is the beam width; level
// is the layer to search. It returns up to ef candidates, the closest
// visited during the expansion, sorted ascending by distance.
//
// level==0 on an already-built, already-flattened index is routed through
// the packed int32 arena (flat layer-0) instead of the jagged graph, for
// cache locality (spec §4.5 micro-optimization); during build, before
// flatten runs, layer 0 is still searched through the jagged graph.
func (idx *Index) searchLayer(q []float32, entries []uint32, ef, level int, scratch *visitedScratch) []candidate {
	scratch.ensureSize(idx.store.Len())
	scratch.reset() // visited set is scoped to this single search_layer call

	var C minCandHeap
	var W maxCandHeap

	for _, e := range entries {
		if scratch.visited(e) {
			continue
		}
		scratch.visit(e)
		d := idx.dist(q, idx.store.At(e))
		c := candidate{id: e, dist: d}
		C = append(C, c)
		W = append(W, c)
	}
	heap.Init(&C)
	heap.Init(&W)

	bound := float32(math.Inf(1))
	if len(W) >= ef {
		bound = W[0].dist
	}

	useFlat := level == 0 && idx.flat.ready()

	for C.Len() > 0 {
		c := heap.Pop(&C).(candidate)
		if len(W) >= ef && c.dist > bound {
			break
		}

		var neighbors []uint32
		if useFlat {
			neighbors = idx.flat.neighbors(c.id)
		} else {
			neighbors = idx.neighborsAt(level, c.id)
		}

		for _, n := range neighbors {
			if scratch.visited(n) {
				continue
			}
			scratch.visit(n)
			d := idx.dist(q, idx.store.At(n))
			if len(W) < ef || d < bound {
				cand := candidate{id: n, dist: d}
				heap.Push(&C, cand)
				heap.Push(&W, cand)
				if len(W) > ef {
					heap.Pop(&W)
				}
				if len(W) >= ef {
					bound = W[0].dist
				}
			}
		}
	}

	out := make([]candidate, len(W))
	copy(out, W)
	sortCandidatesAscending(out)
	return out
}

func sortCandidatesAscending(c []candidate) {
	// Insertion sort: result sets are bounded by ef (tens to a few
	// hundred elements), and this keeps the comparator identical to the
	// heaps' tie-break rule (smaller id wins on equal distance).
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && less(c[j], c[j-1]); j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}

func less(a, b candidate) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.id < b.id
}

func idsOf(c []candidate) []uint32 {
	ids := make([]uint32, len(c))
	for i, x := range c {
		ids[i] = x.id
	}
	return ids
}

// Search writes the 10 nearest neighbor ids of q (by squared Euclidean
// distance) into out, ascending by distance with ties broken by smaller
// vertex id (spec §4.6). If the index has not been built, or was built
// over zero vectors, out is filled with vertex id 0 — this is documented
// degenerate behavior, not an error (spec §4.7, §7 "Uninitialized").
func (idx *Index) Search(q []float32, out []uint32) error {
	if len(out) < 10 {
		return ErrOutputBufferTooSmall
	}

	idx.mu.RLock()
	store := idx.store
	idx.mu.RUnlock()

	if store == nil || store.Len() == 0 {
		for i := 0; i < 10; i++ {
			out[i] = 0
		}
		return nil
	}
	if len(q) != store.Dim() {
		return ErrDimensionMismatch
	}

	scratchAny := idx.scratchPool.Get()
	scratch := scratchAny.(*visitedScratch)
	scratch.ensureSize(store.Len())
	defer idx.scratchPool.Put(scratch)

	cur := []uint32{idx.entryPoint}
	for lc := idx.maxLevel; lc >= 1; lc-- {
		cur = idsOf(idx.searchLayer(q, cur, 1, lc, scratch))
	}

	cand := idx.searchLayer(q, cur, idx.params.EfSearch, 0, scratch)

	for i := 0; i < 10; i++ {
		if i < len(cand) {
			out[i] = cand[i].id
		} else {
			out[i] = 0
		}
	}
	return nil
}
