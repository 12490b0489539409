// Package report formats grid-search and build results for terminal and
// CSV output, using the same humanize/number-formatting libraries the
// rest of the pack reaches for instead of hand-rolled formatting.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/annbench/hnswcore/internal/bench/grid"
)

var printer = message.NewPrinter(language.English)

// Table writes a fixed-width summary table of grid-search results to w,
// grounded on grid_search_sift.cpp's setw-column console table.
func Table(w io.Writer, results []grid.Result) error {
	header := fmt.Sprintf("%4s | %6s | %6s | %9s | %10s | %7s | %10s\n",
		"M", "ef_c", "ef_s", "Build(s)", "Query(us)", "R@10", "Distances")
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if _, err := io.WriteString(w, strings.Repeat("-", len(header)-1)+"\n"); err != nil {
		return err
	}
	for _, r := range results {
		line := printer.Sprintf("%4d | %6d | %6d | %9.2f | %10.1f | %6.1f%% | %10d\n",
			r.M, r.EfConstruction, r.EfSearch, r.BuildSeconds, r.AvgQueryMicros, r.RecallAt10*100, r.DistanceCount)
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Best returns the result with the highest recall@10, ties broken by
// lower average query latency — the same ranking history.Store.Best uses.
func Best(results []grid.Result) (grid.Result, bool) {
	if len(results) == 0 {
		return grid.Result{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.RecallAt10 > best.RecallAt10 ||
			(r.RecallAt10 == best.RecallAt10 && r.AvgQueryMicros < best.AvgQueryMicros) {
			best = r
		}
	}
	return best, true
}

// Summary renders one human-readable line describing a result, e.g.
// "M=16 ef_c=100 ef_s=200: recall@10=95.3%, 1.20 ms/query, 2,100,000 distance computations".
func Summary(r grid.Result) string {
	return fmt.Sprintf(
		"M=%d ef_c=%d ef_s=%d: recall@10=%.1f%%, %s/query, %s distance computations",
		r.M, r.EfConstruction, r.EfSearch, r.RecallAt10*100,
		humanizeMicros(r.AvgQueryMicros), humanize.Comma(r.DistanceCount),
	)
}

func humanizeMicros(micros float64) string {
	if micros >= 1000 {
		return fmt.Sprintf("%.2f ms", micros/1000)
	}
	return fmt.Sprintf("%.0f us", micros)
}

// CSV writes grid-search results as CSV, one row per combination.
func CSV(w io.Writer, results []grid.Result) error {
	if _, err := io.WriteString(w, "m,ef_construction,ef_search,build_seconds,avg_query_micros,recall_at_10,distance_count\n"); err != nil {
		return err
	}
	for _, r := range results {
		line := fmt.Sprintf("%d,%d,%d,%f,%f,%f,%d\n",
			r.M, r.EfConstruction, r.EfSearch, r.BuildSeconds, r.AvgQueryMicros, r.RecallAt10, r.DistanceCount)
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}
