// Package grid sweeps (M, efConstruction, efSearch) combinations and
// measures recall@10 and query latency for each, grounded on
// grid_search_sift.cpp's cartesian-product sweep loop.
package grid

import (
	"fmt"
	"time"

	"github.com/annbench/hnswcore/internal/bench/recall"
	"github.com/annbench/hnswcore/internal/hnsw"
)

// Values is one parameter grid to sweep.
type Values struct {
	M              []int
	EfConstruction []int
	EfSearch       []int
}

// Result is one grid point's measured outcome.
type Result struct {
	M              int
	EfConstruction int
	EfSearch       int
	BuildSeconds   float64
	AvgQueryMicros float64
	RecallAt10     float64
	DistanceCount  int64
}

// Dataset bundles the vectors a sweep runs against. Seed fixes level
// assignment so every grid point builds from the same random level
// sample, isolating the effect of M/efConstruction/efSearch from level
// sampling noise. GroundTruth is optional: when the caller already has an
// authoritative top-k file (grid_search_sift.cpp always does — it never
// computes recall against anything else), Sweep scores against that
// instead of a brute-force oracle; when nil, Sweep falls back to brute
// force.
type Dataset struct {
	Dim         int
	Base        []float32
	Queries     [][]float32
	GroundTruth [][]int
	Seed        int64
	Workers     int
}

// Sweep runs every (M, efConstruction, efSearch) combination in v against
// ds, reporting recall@10 computed against ds.GroundTruth when supplied,
// or a brute-force oracle otherwise. Building ef_search variants share one
// build per (M, efConstruction) pair since efSearch only affects Search,
// not Build (mirrors the original sweep's structure of rebuilding only
// when M or efConstruction changes).
func Sweep(ds Dataset, v Values, report func(Result)) ([]Result, error) {
	groundTruth := ds.GroundTruth
	if groundTruth == nil {
		oracle := recall.NewOracle(ds.Dim, ds.Base)
		groundTruth = make([][]int, len(ds.Queries))
		for i, q := range ds.Queries {
			groundTruth[i] = oracle.TopK(fmt.Sprintf("q-%d", i), q, 10)
		}
	} else if len(groundTruth) != len(ds.Queries) {
		return nil, fmt.Errorf("grid: ground truth has %d rows, want %d (one per query)", len(groundTruth), len(ds.Queries))
	}

	var results []Result
	for _, m := range v.M {
		for _, efc := range v.EfConstruction {
			idx := hnsw.New()
			if err := idx.SetParameters(m, efc, hnsw.DefaultEfSearch); err != nil {
				return nil, fmt.Errorf("grid: SetParameters(%d,%d,_): %w", m, efc, err)
			}
			if ds.Seed != 0 {
				if err := idx.SetSeed(ds.Seed); err != nil {
					return nil, err
				}
			}
			if ds.Workers != 0 {
				if err := idx.SetWorkers(ds.Workers); err != nil {
					return nil, err
				}
			}

			buildStart := time.Now()
			if err := idx.Build(ds.Dim, ds.Base); err != nil {
				return nil, fmt.Errorf("grid: Build: %w", err)
			}
			buildSeconds := time.Since(buildStart).Seconds()

			for _, efs := range v.EfSearch {
				if err := idx.SetEfSearchUnchecked(efs); err != nil {
					return nil, fmt.Errorf("grid: setting efSearch=%d: %w", efs, err)
				}

				idx.ResetDistanceComputations()
				queryResults := make([][]int, len(ds.Queries))
				start := time.Now()
				out := make([]uint32, 10)
				for i, q := range ds.Queries {
					if err := idx.Search(q, out); err != nil {
						return nil, fmt.Errorf("grid: Search: %w", err)
					}
					row := make([]int, 10)
					for j, id := range out {
						row[j] = int(id)
					}
					queryResults[i] = row
				}
				elapsed := time.Since(start)

				r, err := recall.AtK(queryResults, groundTruth, 10)
				if err != nil {
					return nil, err
				}

				avgMicros := 0.0
				if len(ds.Queries) > 0 {
					avgMicros = float64(elapsed.Microseconds()) / float64(len(ds.Queries))
				}

				res := Result{
					M:              m,
					EfConstruction: efc,
					EfSearch:       efs,
					BuildSeconds:   buildSeconds,
					AvgQueryMicros: avgMicros,
					RecallAt10:     r,
					DistanceCount:  idx.GetDistanceComputations(),
				}
				results = append(results, res)
				if report != nil {
					report(res)
				}
			}
		}
	}
	return results, nil
}
