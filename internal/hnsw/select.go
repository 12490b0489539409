package hnsw

import "sort"

// selectNeighbors implements the RobustPrune / α-selection heuristic
// (spec §4.3). cand must contain, for each candidate, its distance to the
// vertex named by baseID — that is the "v" in "d(v, c)" — not to anything
// else; selectNeighbors sorts a copy ascending by that distance itself, so
// callers do not need to pre-sort.
//
// The base vertex is an explicit parameter (spec §9 open question,
// resolved): the forward-selection callsite passes the vertex being
// inserted; the reverse-pruning callsite passes the vertex whose
// over-full neighbor list is being shrunk, with distances recomputed
// against that vertex, never against the original inserting vertex.
func (idx *Index) selectNeighbors(baseID uint32, cand []candidate, mMax int) []uint32 {
	if len(cand) == 0 {
		return nil
	}
	sorted := make([]candidate, len(cand))
	copy(sorted, cand)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].dist != sorted[j].dist {
			return sorted[i].dist < sorted[j].dist
		}
		return sorted[i].id < sorted[j].id
	})

	alpha := idx.params.Alpha

	selected := make([]uint32, 0, mMax)
	selectedVecs := make([][]float32, 0, mMax)
	var leftover []uint32

	admit := func(c candidate, cVec []float32) bool {
		for _, sVec := range selectedVecs {
			if idx.dist(cVec, sVec) < c.dist*alpha {
				return false
			}
		}
		return true
	}

	for _, c := range sorted {
		if c.id == baseID {
			continue
		}
		cVec := idx.store.At(c.id)
		if len(selected) < mMax && admit(c, cVec) {
			selected = append(selected, c.id)
			selectedVecs = append(selectedVecs, cVec)
		} else {
			leftover = append(leftover, c.id)
		}
	}

	if len(selected) < mMax {
		for _, id := range leftover {
			if len(selected) >= mMax {
				break
			}
			selected = append(selected, id)
		}
	}

	return selected
}

// rescoreAgainst rebuilds a candidate list with distances measured from
// baseID's own vector, used when pruning a reverse-edge list where the
// existing candidate distances (measured from the original inserting
// vertex) are not the right frame of reference (spec §4.3, §9).
func (idx *Index) rescoreAgainst(baseID uint32, ids []uint32) []candidate {
	baseVec := idx.store.At(baseID)
	out := make([]candidate, len(ids))
	for i, id := range ids {
		out[i] = candidate{id: id, dist: idx.dist(baseVec, idx.store.At(id))}
	}
	return out
}
