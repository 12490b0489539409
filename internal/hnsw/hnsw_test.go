package hnsw

import (
	"math/rand"
	"testing"
)

// --- Helpers ---

func randomVector(dims int, rng *rand.Rand) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

func flatBase(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	d := len(vectors[0])
	out := make([]float32, 0, len(vectors)*d)
	for _, v := range vectors {
		out = append(out, v...)
	}
	return out
}

type scored struct {
	id   uint32
	dist float32
}

// bruteForceNN is the recall oracle: exact top-k by squared Euclidean
// distance, ties broken by smaller id, matching the index's own tie rule.
func bruteForceNN(query []float32, vectors [][]float32, k int) []uint32 {
	all := make([]scored, len(vectors))
	for i, v := range vectors {
		all[i] = scored{id: uint32(i), dist: squaredEuclideanRef(query, v)}
	}
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && (all[j].dist < all[j-1].dist ||
			(all[j].dist == all[j-1].dist && all[j].id < all[j-1].id)); j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	if len(all) > k {
		all = all[:k]
	}
	out := make([]uint32, len(all))
	for i, s := range all {
		out[i] = s.id
	}
	return out
}

func squaredEuclideanRef(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func computeRecall(got, want []uint32) float64 {
	wantSet := make(map[uint32]bool, len(want))
	for _, id := range want {
		wantSet[id] = true
	}
	hits := 0
	for _, id := range got {
		if wantSet[id] {
			hits++
		}
	}
	if len(want) == 0 {
		return 1.0
	}
	return float64(hits) / float64(len(want))
}

// --- Core API tests ---

func TestNew_Defaults(t *testing.T) {
	idx := New()
	if idx.params.M != DefaultM {
		t.Errorf("M = %d, want %d", idx.params.M, DefaultM)
	}
	if idx.Len() != 0 {
		t.Errorf("Len = %d, want 0", idx.Len())
	}
	if idx.GetDistanceComputations() != 0 {
		t.Errorf("GetDistanceComputations = %d, want 0", idx.GetDistanceComputations())
	}
}

func TestSetParameters_RejectsNonPositive(t *testing.T) {
	idx := New()
	if err := idx.SetParameters(0, 10, 10); err == nil {
		t.Error("expected error for M=0")
	}
	if err := idx.SetParameters(16, -1, 10); err == nil {
		t.Error("expected error for negative efConstruction")
	}
}

func TestSetParameters_RejectedAfterBuild(t *testing.T) {
	idx := New()
	rng := rand.New(rand.NewSource(1))
	vecs := make([][]float32, 50)
	for i := range vecs {
		vecs[i] = randomVector(8, rng)
	}
	if err := idx.Build(8, flatBase(vecs)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := idx.SetParameters(32, 100, 100); err != ErrAlreadyBuilt {
		t.Errorf("SetParameters after build = %v, want ErrAlreadyBuilt", err)
	}
}

func TestBuild_RejectsBadDimension(t *testing.T) {
	idx := New()
	if err := idx.Build(0, []float32{1, 2, 3}); err != ErrInvalidDimension {
		t.Errorf("got %v, want ErrInvalidDimension", err)
	}
}

func TestBuild_RejectsMismatchedLength(t *testing.T) {
	idx := New()
	if err := idx.Build(4, []float32{1, 2, 3}); err != ErrBaseLengthMismatch {
		t.Errorf("got %v, want ErrBaseLengthMismatch", err)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	idx := New()
	base := flatBase([][]float32{{0, 0}, {1, 1}})
	if err := idx.Build(2, base); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	if err := idx.Build(2, base); err != ErrAlreadyBuilt {
		t.Errorf("second Build = %v, want ErrAlreadyBuilt", err)
	}
}

func TestSearch_RejectsSmallBuffer(t *testing.T) {
	idx := New()
	out := make([]uint32, 5)
	if err := idx.Search([]float32{1, 2, 3}, out); err != ErrOutputBufferTooSmall {
		t.Errorf("got %v, want ErrOutputBufferTooSmall", err)
	}
}

func TestSearch_UninitializedZeroFills(t *testing.T) {
	idx := New()
	out := make([]uint32, 10)
	for i := range out {
		out[i] = 99
	}
	if err := idx.Search([]float32{1, 2, 3}, out); err != nil {
		t.Fatalf("Search: %v", err)
	}
	for i, id := range out {
		if id != 0 {
			t.Errorf("out[%d] = %d, want 0", i, id)
		}
	}
}

func TestSearch_EmptyIndexAfterBuildZeroFills(t *testing.T) {
	idx := New()
	if err := idx.Build(4, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	out := make([]uint32, 10)
	if err := idx.Search([]float32{0, 0, 0, 0}, out); err != nil {
		t.Fatalf("Search: %v", err)
	}
	for i, id := range out {
		if id != 0 {
			t.Errorf("out[%d] = %d, want 0", i, id)
		}
	}
}

func TestSearch_RejectsDimensionMismatch(t *testing.T) {
	idx := New()
	if err := idx.Build(4, flatBase([][]float32{{0, 0, 0, 0}, {1, 1, 1, 1}})); err != nil {
		t.Fatalf("Build: %v", err)
	}
	out := make([]uint32, 10)
	if err := idx.Search([]float32{1, 2, 3}, out); err != ErrDimensionMismatch {
		t.Errorf("got %v, want ErrDimensionMismatch", err)
	}
}

// --- Scenario 1: tiny exact (N=100, D=4) ---

func TestScenario_TinyExact(t *testing.T) {
	dims := 4
	n := 100
	rng := rand.New(rand.NewSource(7))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = randomVector(dims, rng)
	}

	idx := New()
	if err := idx.Build(dims, flatBase(vecs)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != n {
		t.Fatalf("Len = %d, want %d", idx.Len(), n)
	}

	totalRecall := 0.0
	queries := 20
	for q := 0; q < queries; q++ {
		query := randomVector(dims, rng)
		out := make([]uint32, 10)
		if err := idx.Search(query, out); err != nil {
			t.Fatalf("Search: %v", err)
		}
		want := bruteForceNN(query, vecs, 10)
		totalRecall += computeRecall(out, want)
	}
	avg := totalRecall / float64(queries)
	if avg < 0.95 {
		t.Errorf("avg recall@10 = %.3f, want >= 0.95 for tiny exact scenario", avg)
	}
}

// --- Scenario 2: empty index ---

func TestScenario_EmptyIndex(t *testing.T) {
	idx := New()
	if err := idx.Build(16, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("Len = %d, want 0", idx.Len())
	}
	out := make([]uint32, 10)
	if err := idx.Search(make([]float32, 16), out); err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, id := range out {
		if id != 0 {
			t.Errorf("expected zero-fill on empty index, got %d", id)
		}
	}
}

// --- Scenario 3: single cluster, all identical vectors ---

func TestScenario_SingleClusterIdentical(t *testing.T) {
	dims := 8
	n := 1000
	v := make([]float32, dims)
	for i := range v {
		v[i] = 0.5
	}
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = v
	}

	idx := New()
	if err := idx.Build(dims, flatBase(vecs)); err != nil {
		t.Fatalf("Build: %v", err)
	}

	out := make([]uint32, 10)
	if err := idx.Search(v, out); err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, id := range out {
		if int(id) >= n {
			t.Errorf("returned id %d out of range [0,%d)", id, n)
		}
	}
	// Every vector is equidistant (distance 0); any 10 distinct ids are a
	// correct answer as long as they're valid index members.
	seen := make(map[uint32]bool)
	for _, id := range out {
		seen[id] = true
	}
	if len(seen) != 10 {
		t.Errorf("expected 10 distinct ids, got %d distinct", len(seen))
	}
}

// --- Scenario 4: small random (N=10000, D=16, recall@10 >= 0.95) ---

func TestScenario_SmallRandomRecall(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping recall benchmark in short mode")
	}
	dims := 16
	n := 10000
	rng := rand.New(rand.NewSource(99))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = randomVector(dims, rng)
	}

	idx := New()
	if err := idx.Build(dims, flatBase(vecs)); err != nil {
		t.Fatalf("Build: %v", err)
	}

	totalRecall := 0.0
	queries := 30
	for q := 0; q < queries; q++ {
		query := randomVector(dims, rng)
		out := make([]uint32, 10)
		if err := idx.Search(query, out); err != nil {
			t.Fatalf("Search: %v", err)
		}
		want := bruteForceNN(query, vecs, 10)
		totalRecall += computeRecall(out, want)
	}
	avg := totalRecall / float64(queries)
	if avg < 0.95 {
		t.Errorf("avg recall@10 = %.3f, want >= 0.95", avg)
	}
}

// --- Scenario 5: sift-128 shaped profile (M=16, efC=100, efS=200) ---

func TestScenario_Sift128Profile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping recall benchmark in short mode")
	}
	dims := 128
	n := 10000
	rng := rand.New(rand.NewSource(1234))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = randomVector(dims, rng)
	}

	idx := New()
	if err := idx.SetParameters(16, 100, 200); err != nil {
		t.Fatalf("SetParameters: %v", err)
	}
	if err := idx.Build(dims, flatBase(vecs)); err != nil {
		t.Fatalf("Build: %v", err)
	}

	totalRecall := 0.0
	queries := 25
	for q := 0; q < queries; q++ {
		query := randomVector(dims, rng)
		out := make([]uint32, 10)
		if err := idx.Search(query, out); err != nil {
			t.Fatalf("Search: %v", err)
		}
		want := bruteForceNN(query, vecs, 10)
		totalRecall += computeRecall(out, want)
	}
	avg := totalRecall / float64(queries)
	if avg < 0.95 {
		t.Errorf("avg recall@10 = %.3f, want >= 0.95 for sift-128 profile", avg)
	}
}

// --- Scenario 6: determinism of serial build ---

func TestScenario_SerialBuildDeterministic(t *testing.T) {
	dims := 12
	n := 500
	rng := rand.New(rand.NewSource(55))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = randomVector(dims, rng)
	}
	base := flatBase(vecs)

	build := func() []uint32 {
		idx := New()
		if err := idx.SetWorkers(1); err != nil {
			t.Fatalf("SetWorkers: %v", err)
		}
		if err := idx.SetSeed(42); err != nil {
			t.Fatalf("SetSeed: %v", err)
		}
		if err := idx.Build(dims, base); err != nil {
			t.Fatalf("Build: %v", err)
		}
		return append([]uint32(nil), idx.flat.arena...)
	}

	a := build()
	b := build()
	if len(a) != len(b) {
		t.Fatalf("arena length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("arena differs at index %d: %d vs %d", i, a[i], b[i])
		}
	}
}

// --- Property tests ---

// P1: layer monotonicity — a vertex's level in layers[lc] is nonzero only
// for lc <= levels[id] (except vertex 0, pinned to maxLevel).
func TestProperty_LayerMonotonicity(t *testing.T) {
	dims := 8
	n := 300
	rng := rand.New(rand.NewSource(3))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = randomVector(dims, rng)
	}
	idx := New()
	if err := idx.Build(dims, flatBase(vecs)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	for lc := 1; lc <= idx.maxLevel; lc++ {
		for id := 0; id < n; id++ {
			if len(idx.layers[lc][id]) > 0 && int(idx.levels[id]) < lc {
				t.Errorf("vertex %d has edges at layer %d but levels[%d]=%d", id, lc, id, idx.levels[id])
			}
		}
	}
}

// P2: no self-loops at any layer.
func TestProperty_NoSelfLoops(t *testing.T) {
	dims := 8
	n := 300
	rng := rand.New(rand.NewSource(4))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = randomVector(dims, rng)
	}
	idx := New()
	if err := idx.Build(dims, flatBase(vecs)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	for lc := 0; lc <= idx.maxLevel; lc++ {
		for id := 0; id < n; id++ {
			var nbs []uint32
			if lc == 0 {
				nbs = idx.flat.neighbors(uint32(id))
			} else {
				nbs = idx.layers[lc][id]
			}
			for _, nb := range nbs {
				if nb == uint32(id) {
					t.Errorf("vertex %d has a self-loop at layer %d", id, lc)
				}
			}
		}
	}
}

// P3: capacity after flatten — no layer-0 list exceeds 2*M.
func TestProperty_CapacityAfterFlatten(t *testing.T) {
	dims := 8
	n := 500
	rng := rand.New(rand.NewSource(5))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = randomVector(dims, rng)
	}
	idx := New()
	if err := idx.Build(dims, flatBase(vecs)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	m2 := 2 * idx.params.M
	for id := 0; id < n; id++ {
		nbs := idx.flat.neighbors(uint32(id))
		if len(nbs) > m2 {
			t.Errorf("vertex %d has %d layer-0 neighbors, want <= %d", id, len(nbs), m2)
		}
	}
}

// P3 (upper layers): upper-layer lists never exceed M either.
func TestProperty_UpperLayerCapacity(t *testing.T) {
	dims := 8
	n := 500
	rng := rand.New(rand.NewSource(6))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = randomVector(dims, rng)
	}
	idx := New()
	if err := idx.Build(dims, flatBase(vecs)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	for lc := 1; lc <= idx.maxLevel; lc++ {
		for id := 0; id < n; id++ {
			if len(idx.layers[lc][id]) > idx.params.M {
				t.Errorf("vertex %d has %d neighbors at layer %d, want <= %d", id, len(idx.layers[lc][id]), lc, idx.params.M)
			}
		}
	}
}

// Search results come back sorted ascending by distance to the query,
// measured with a reference distance loop. (The P5 distance contract
// itself is covered by annmath's own tests.)
func TestProperty_ResultsSortedByDistance(t *testing.T) {
	dims := 8
	n := 400
	rng := rand.New(rand.NewSource(8))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = randomVector(dims, rng)
	}
	idx := New()
	if err := idx.Build(dims, flatBase(vecs)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	query := randomVector(dims, rng)
	out := make([]uint32, 10)
	if err := idx.Search(query, out); err != nil {
		t.Fatalf("Search: %v", err)
	}
	var prev float32 = -1
	for i, id := range out {
		d := squaredEuclideanRef(query, vecs[id])
		if i > 0 && d < prev {
			t.Errorf("result %d (id=%d) has distance %f < previous %f, not sorted", i, id, d, prev)
		}
		prev = d
	}
}

// P6: search monotonicity — increasing efSearch never decreases recall.
func TestProperty_EfSearchMonotonicRecall(t *testing.T) {
	dims := 16
	n := 3000
	rng := rand.New(rand.NewSource(9))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = randomVector(dims, rng)
	}
	base := flatBase(vecs)

	recallAt := func(ef int) float64 {
		idx := New()
		if err := idx.SetParameters(16, 100, ef); err != nil {
			t.Fatalf("SetParameters: %v", err)
		}
		if err := idx.SetSeed(42); err != nil {
			t.Fatalf("SetSeed: %v", err)
		}
		if err := idx.Build(dims, base); err != nil {
			t.Fatalf("Build: %v", err)
		}
		total := 0.0
		q := rand.New(rand.NewSource(777))
		queries := 15
		for i := 0; i < queries; i++ {
			query := randomVector(dims, q)
			out := make([]uint32, 10)
			if err := idx.Search(query, out); err != nil {
				t.Fatalf("Search: %v", err)
			}
			want := bruteForceNN(query, vecs, 10)
			total += computeRecall(out, want)
		}
		return total / float64(queries)
	}

	low := recallAt(20)
	high := recallAt(300)
	// Allow small noise since build itself is parallel/non-deterministic;
	// require the higher ef to not be meaningfully worse.
	if high < low-0.05 {
		t.Errorf("recall at efSearch=300 (%.3f) is worse than at efSearch=20 (%.3f)", high, low)
	}
}

// P7-style determinism: repeated Search calls on the same built index,
// same query, return identical results. With n=400 no padding occurs, so
// the padded tail itself is not exercised here.
func TestProperty_SearchIdempotent(t *testing.T) {
	dims := 8
	n := 400
	rng := rand.New(rand.NewSource(11))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = randomVector(dims, rng)
	}
	idx := New()
	if err := idx.Build(dims, flatBase(vecs)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	query := randomVector(dims, rng)

	out1 := make([]uint32, 10)
	out2 := make([]uint32, 10)
	if err := idx.Search(query, out1); err != nil {
		t.Fatalf("Search 1: %v", err)
	}
	if err := idx.Search(query, out2); err != nil {
		t.Fatalf("Search 2: %v", err)
	}
	for i := range out1 {
		if out1[i] != out2[i] {
			t.Errorf("result %d differs between repeated calls: %d vs %d", i, out1[i], out2[i])
		}
	}
}

// --- Distance counter ---

func TestDistanceCounter_IncrementsAndResets(t *testing.T) {
	dims := 8
	n := 200
	rng := rand.New(rand.NewSource(13))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = randomVector(dims, rng)
	}
	idx := New()
	if err := idx.Build(dims, flatBase(vecs)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.GetDistanceComputations() == 0 {
		t.Error("expected nonzero distance computations after build")
	}

	idx.ResetDistanceComputations()
	if idx.GetDistanceComputations() != 0 {
		t.Errorf("GetDistanceComputations after reset = %d, want 0", idx.GetDistanceComputations())
	}

	out := make([]uint32, 10)
	query := randomVector(dims, rng)
	if err := idx.Search(query, out); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if idx.GetDistanceComputations() == 0 {
		t.Error("expected nonzero distance computations after search")
	}
}

// --- Concurrency: parallel build with multiple workers produces a valid
// (if not byte-identical) index, exercising the spinlock/visited-scratch
// machinery under contention.

func TestBuild_ParallelWorkersProduceValidIndex(t *testing.T) {
	dims := 16
	n := 2000
	rng := rand.New(rand.NewSource(21))
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = randomVector(dims, rng)
	}
	idx := New()
	if err := idx.SetWorkers(8); err != nil {
		t.Fatalf("SetWorkers: %v", err)
	}
	if err := idx.Build(dims, flatBase(vecs)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != n {
		t.Fatalf("Len = %d, want %d", idx.Len(), n)
	}

	query := randomVector(dims, rng)
	out := make([]uint32, 10)
	if err := idx.Search(query, out); err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := bruteForceNN(query, vecs, 10)
	recall := computeRecall(out, want)
	if recall < 0.5 {
		t.Errorf("recall = %.2f too low for a parallel-built index", recall)
	}
}
