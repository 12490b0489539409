package hnsw

import (
	"math"
	"math/rand"
)

// levelFloor is the minimum value random_level will use for r, clamping
// draws that would otherwise produce an unbounded level (spec §4.2).
const levelFloor = 1e-9

// sampleLevel draws r in (0,1] uniformly and returns floor(-ln(r) / ln(2)).
// Note this multiplier is fixed at 1/ln(2) regardless of M — spec §4.2
// specifies this literally, unlike the classical HNSW presentation which
// ties the multiplier to 1/ln(M).
func sampleLevel(rng *rand.Rand) int {
	r := 1 - rng.Float64() // rng.Float64() is [0,1); 1-x is (0,1]
	if r < levelFloor {
		r = levelFloor
	}
	return int(math.Floor(-math.Log(r) / math.Log(2)))
}

// assignLevels samples L[i] for every vertex in [0,n) from a single
// seeded RNG, sequentially. This happens once, before any parallel
// insertion starts, so the level assignment itself is always
// deterministic for a fixed seed and n — only the resulting edges are
// non-deterministic under parallel build (spec §5).
func assignLevels(n int, seed int64) (levels []int32, maxLevel int) {
	rng := rand.New(rand.NewSource(seed))
	levels = make([]int32, n)
	for i := 0; i < n; i++ {
		lvl := sampleLevel(rng)
		levels[i] = int32(lvl)
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}
	if n > 0 {
		// Pin vertex 0's level to max_level. Vertex 0 is the fixed entry
		// point (ep=0) for every layer up to max_level (spec §4.4 step 4);
		// without this, edges created to/from vertex 0 at layers above its
		// sampled level would violate the layer-monotonicity invariant
		// (P1/I1), since vertex 0 is never itself "inserted" through the
		// normal layered-insert loop and so never earns those layers the
		// way an ordinarily-inserted vertex would. This is the documented
		// resolution of the "entry point policy" open question in spec §9.
		levels[0] = int32(maxLevel)
	}
	return levels, maxLevel
}
