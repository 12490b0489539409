// Package recall computes Recall@K against ground truth, grounded on
// grid_search_sift.cpp's calculate_recall, and caches brute-force ground
// truth computed on the fly so repeated grid-search sweeps over the same
// base/query set don't re-scan it for every parameter combination.
package recall

import (
	"fmt"
	"sort"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/annbench/hnswcore/internal/annmath"
)

// AtK computes recall@k across a batch of queries: for each query, the
// fraction of its top-k ground-truth ids that also appear in the
// corresponding result's top-k, averaged over all queries (matches
// calculate_recall's total_hits / (n*k) definition exactly).
func AtK(results, groundTruth [][]int, k int) (float64, error) {
	if len(results) != len(groundTruth) {
		return 0, fmt.Errorf("recall: results/groundTruth size mismatch: %d vs %d", len(results), len(groundTruth))
	}
	if len(results) == 0 {
		return 0, nil
	}

	totalHits := 0
	for i := range results {
		gtSet := make(map[int]struct{}, k)
		for j := 0; j < k && j < len(groundTruth[i]); j++ {
			gtSet[groundTruth[i][j]] = struct{}{}
		}
		for j := 0; j < k && j < len(results[i]); j++ {
			if _, ok := gtSet[results[i][j]]; ok {
				totalHits++
			}
		}
	}
	return float64(totalHits) / float64(len(results)*k), nil
}

// Oracle computes exact brute-force top-k ground truth for a query set
// against a base set, caching per-query results keyed by a caller-chosen
// key (typically a hash of the query vector plus dataset name) so a grid
// search that tries many (M, efConstruction, efSearch) combinations pays
// the brute-force cost once per query, not once per combination.
type Oracle struct {
	dim  int
	base [][]float32
	c    *cache.Cache
}

// NewOracle builds an oracle over a row-major base of n vectors of the
// given dimension. The cache entries never expire (a sweep is a single
// short-lived process); the cache's janitor runs every 10 minutes but only
// removes expired entries, so nothing cached here is ever evicted.
func NewOracle(dim int, flatBase []float32) *Oracle {
	n := len(flatBase) / dim
	base := make([][]float32, n)
	for i := range base {
		base[i] = flatBase[i*dim : (i+1)*dim]
	}
	return &Oracle{dim: dim, base: base, c: cache.New(cache.NoExpiration, 10*time.Minute)}
}

// TopK returns the k nearest base ids to query by squared Euclidean
// distance, ascending, ties broken by smaller id — the same tie rule the
// index itself uses, so recall numbers aren't skewed by a tie-break
// mismatch between the oracle and the system under test.
func (o *Oracle) TopK(key string, query []float32, k int) []int {
	if cached, ok := o.c.Get(key); ok {
		return cached.([]int)
	}

	type scored struct {
		id   int
		dist float32
	}
	all := make([]scored, len(o.base))
	for i, v := range o.base {
		all[i] = scored{id: i, dist: annmath.SquaredEuclidean(query, v)}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].dist != all[j].dist {
			return all[i].dist < all[j].dist
		}
		return all[i].id < all[j].id
	})
	if len(all) > k {
		all = all[:k]
	}
	out := make([]int, len(all))
	for i, s := range all {
		out[i] = s.id
	}
	o.c.Set(key, out, cache.DefaultExpiration)
	return out
}
