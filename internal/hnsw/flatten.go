package hnsw

// flatLayer0 is the packed layer-0 representation built once at the end
// of Build (spec §3, "Flat layer-0"): a single int array of length
// N*(2M+1), where F[i*(2M+1)] is i's neighbor count and the following
// `count` entries are its neighbor ids. Traversing this arena at query
// time is far more cache-friendly than following the jagged layers[0]
// slice-of-slices.
type flatLayer0 struct {
	stride int // 2M+1
	arena  []uint32
}

func (f *flatLayer0) ready() bool { return f.arena != nil }

func (f *flatLayer0) neighbors(id uint32) []uint32 {
	base := int(id) * f.stride
	cnt := f.arena[base]
	return f.arena[base+1 : base+1+int(cnt) : base+1+int(cnt)]
}

// finalizePrune walks every layer and prunes any vertex whose neighbor
// list still exceeds its level's hard cap (transient slack from parallel
// insertion, spec I2/I3) down to Mlevel via selectNeighbors (spec §4.4
// step 6, invariant I2: "for all i and all l <= L[i], |G[l][i]| <= Ml ...
// must be resolved by the final flatten pass"). Layer 0 and every upper
// layer both get this pass — addReverseEdge only prunes once a list drifts
// past the 2.5x slack bound, so plenty of vertices reach build end sitting
// anywhere in (Mlevel, 2.5*Mlevel] and still need trimming here.
func (idx *Index) finalizePrune() {
	n := idx.store.Len()
	for lc := 0; lc <= idx.maxLevel; lc++ {
		mMax := idx.params.mLevel(lc)
		layer := idx.layers[lc]
		for i := 0; i < n; i++ {
			nbs := layer[i]
			if len(nbs) > mMax {
				cand := idx.rescoreAgainst(uint32(i), nbs)
				layer[i] = idx.selectNeighbors(uint32(i), cand, mMax)
			}
		}
	}
}

// flatten packs layers[0] into F (spec §4.4 step 6). finalizePrune must
// run first so every list is already within its Mlevel cap.
func (idx *Index) flatten() {
	n := idx.store.Len()
	m2 := 2 * idx.params.M
	stride := m2 + 1

	arena := make([]uint32, n*stride)
	for i := 0; i < n; i++ {
		nbs := idx.layers[0][i]
		base := i * stride
		arena[base] = uint32(len(nbs))
		copy(arena[base+1:base+1+len(nbs)], nbs)
	}
	idx.flat = flatLayer0{stride: stride, arena: arena}
}
