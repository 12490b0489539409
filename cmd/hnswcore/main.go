package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/mark3labs/mcp-go/server"
	"github.com/schollz/progressbar/v2"

	"github.com/annbench/hnswcore/internal/bench/grid"
	"github.com/annbench/hnswcore/internal/bench/history"
	"github.com/annbench/hnswcore/internal/bench/report"
	hnswconfig "github.com/annbench/hnswcore/internal/config"
	"github.com/annbench/hnswcore/internal/hnsw"
	"github.com/annbench/hnswcore/internal/loader"
	"github.com/annbench/hnswcore/internal/mcpsrv"
)

var version = "0.1.0-dev"

var (
	globalConfigPath string
	globalVerbose    bool
)

func main() {
	args := parseGlobalFlags(os.Args[1:])

	if len(args) < 1 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch args[0] {
	case "build":
		err = runBuild(args[1:])
	case "search":
		err = runSearch(args[1:])
	case "bench":
		err = runBench(args[1:])
	case "serve-mcp":
		err = runServeMCP(args[1:])
	case "version":
		fmt.Println(version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseGlobalFlags(args []string) []string {
	var filtered []string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--config" && i+1 < len(args):
			i++
			globalConfigPath = args[i]
		case strings.HasPrefix(args[i], "--config="):
			globalConfigPath = strings.TrimPrefix(args[i], "--config=")
		case args[i] == "--verbose" || args[i] == "-v":
			globalVerbose = true
		default:
			filtered = append(filtered, args[i])
		}
	}
	return filtered
}

func printUsage() {
	fmt.Printf(`hnswcore %s — in-memory HNSW approximate nearest neighbor index

Usage:
  hnswcore [global-flags] <command> [arguments]

Commands:
  build <base-file>              Build an index from a whitespace-separated vector file and print stats
  search <base-file> <query-file> Build an index then search each query, printing top-10 ids per line
  bench grid <base> <query> <gt> Sweep M/efConstruction/efSearch and report recall@10 and latency
  serve-mcp                      Start the MCP (Model Context Protocol) server over stdio
  version                        Print version

Global Flags:
  --config <path>     Config file path (default ~/.hnswcore/config.yaml)
  --verbose, -v        Show detailed output

Build/Search/Bench Flags:
  --m <N>              Neighbors per vertex above layer 0 (default %d)
  --ef-construction <N> Candidate pool size during insertion (default %d)
  --ef-search <N>      Candidate pool size during search (default %d)
  --alpha <F>          RobustPrune diversity coefficient (default %g)
  --seed <N>           Level-assignment RNG seed (default %d)
  --workers <N>        Build parallelism (1 forces deterministic serial build)
  --profile <name>     Dataset profile hint: sift-128, glove-100
  --history <path>     SQLite run-history file for bench grid (optional)
`, version, hnsw.DefaultM, hnsw.DefaultEfConstruction, hnsw.DefaultEfSearch, hnsw.DefaultAlpha, hnsw.DefaultSeed)
}

type commonFlags struct {
	m, efConstruction, efSearch, workers int
	alpha                                float64
	seed                                 int64
	profile                              string
	historyPath                          string
}

func parseCommonFlags(args []string) (commonFlags, []string, error) {
	opts := hnswconfig.ResolveOptions{ConfigPath: globalConfigPath}
	var positional []string

	for i := 0; i < len(args); i++ {
		a := args[i]
		next := func() (string, error) {
			if i+1 >= len(args) {
				return "", fmt.Errorf("flag %s requires a value", a)
			}
			i++
			return args[i], nil
		}
		var err error
		switch {
		case a == "--m":
			opts.CLIM, err = next()
		case a == "--ef-construction":
			opts.CLIEfConstruction, err = next()
		case a == "--ef-search":
			opts.CLIEfSearch, err = next()
		case a == "--alpha":
			opts.CLIAlpha, err = next()
		case a == "--seed":
			opts.CLISeed, err = next()
		case a == "--workers":
			opts.CLIWorkers, err = next()
		case a == "--profile":
			opts.CLIProfile, err = next()
		case a == "--history":
			var v string
			v, err = next()
			if err == nil {
				globalHistoryPath = v
			}
		default:
			positional = append(positional, a)
		}
		if err != nil {
			return commonFlags{}, nil, err
		}
	}

	resolved, err := hnswconfig.ResolveConfig(opts)
	if err != nil {
		return commonFlags{}, nil, err
	}

	return commonFlags{
		m:              resolved.M.IntValue(hnsw.DefaultM),
		efConstruction: resolved.EfConstruction.IntValue(hnsw.DefaultEfConstruction),
		efSearch:       resolved.EfSearch.IntValue(hnsw.DefaultEfSearch),
		workers:        resolved.Workers.IntValue(0),
		alpha:          float64(resolved.Alpha.Float32Value(hnsw.DefaultAlpha)),
		seed:           resolved.Seed.Int64Value(hnsw.DefaultSeed),
		profile:        resolved.Profile.Value,
		historyPath:    globalHistoryPath,
	}, positional, nil
}

// globalHistoryPath is set by parseCommonFlags; kept as a package var
// since --history isn't modeled in config.ResolveOptions (it names a
// report sink, not an index tunable).
var globalHistoryPath string

func buildIndex(cf commonFlags, dim int, base []float32, showProgress bool) (*hnsw.Index, error) {
	idx := hnsw.New()
	if err := idx.SetParameters(cf.m, cf.efConstruction, cf.efSearch); err != nil {
		return nil, err
	}
	if err := idx.SetAlpha(float32(cf.alpha)); err != nil {
		return nil, err
	}
	if err := idx.SetSeed(cf.seed); err != nil {
		return nil, err
	}
	if cf.workers != 0 {
		if err := idx.SetWorkers(cf.workers); err != nil {
			return nil, err
		}
	}

	var bar *progressbar.ProgressBar
	if showProgress && isatty.IsTerminal(os.Stdout.Fd()) {
		bar = progressbar.New(1)
		bar.Describe("building index")
	}

	if err := idx.Build(dim, base); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	if bar != nil {
		bar.Add(1)
		fmt.Println()
	}
	return idx, nil
}

func runBuild(args []string) error {
	cf, pos, err := parseCommonFlags(args)
	if err != nil {
		return err
	}
	if len(pos) < 1 {
		return fmt.Errorf("usage: hnswcore build <base-file>")
	}

	bv, err := loader.LoadBaseVectors(pos[0])
	if err != nil {
		return fmt.Errorf("loading base vectors: %w", err)
	}
	if globalVerbose {
		fmt.Printf("Loaded %d vectors, dim=%d\n", bv.N, bv.Dim)
	}

	runID := uuid.New().String()
	start := time.Now()
	idx, err := buildIndex(cf, bv.Dim, bv.Flat, true)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("run %s: built index over %d vectors (dim=%d) in %s\n", runID, idx.Len(), bv.Dim, elapsed.Round(time.Millisecond))
	fmt.Printf("  M=%d efConstruction=%d efSearch=%d alpha=%g seed=%d\n", cf.m, cf.efConstruction, cf.efSearch, cf.alpha, cf.seed)
	fmt.Printf("  distance computations: %d\n", idx.GetDistanceComputations())
	return nil
}

func runSearch(args []string) error {
	cf, pos, err := parseCommonFlags(args)
	if err != nil {
		return err
	}
	if len(pos) < 2 {
		return fmt.Errorf("usage: hnswcore search <base-file> <query-file>")
	}

	bv, err := loader.LoadBaseVectors(pos[0])
	if err != nil {
		return fmt.Errorf("loading base vectors: %w", err)
	}
	queries, err := loader.LoadQueryVectors(pos[1], bv.Dim)
	if err != nil {
		return fmt.Errorf("loading query vectors: %w", err)
	}

	idx, err := buildIndex(cf, bv.Dim, bv.Flat, true)
	if err != nil {
		return err
	}

	out := make([]uint32, 10)
	for _, q := range queries {
		if err := idx.Search(q, out); err != nil {
			return fmt.Errorf("search: %w", err)
		}
		ids := make([]string, len(out))
		for i, id := range out {
			ids[i] = strconv.FormatUint(uint64(id), 10)
		}
		fmt.Println(strings.Join(ids, " "))
	}
	return nil
}

func runBench(args []string) error {
	if len(args) < 1 || args[0] != "grid" {
		return fmt.Errorf("usage: hnswcore bench grid <base-file> <query-file> <groundtruth-file>")
	}
	cf, pos, err := parseCommonFlags(args[1:])
	if err != nil {
		return err
	}
	if len(pos) < 3 {
		return fmt.Errorf("usage: hnswcore bench grid <base-file> <query-file> <groundtruth-file>")
	}

	bv, err := loader.LoadBaseVectors(pos[0])
	if err != nil {
		return fmt.Errorf("loading base vectors: %w", err)
	}
	queries, err := loader.LoadQueryVectors(pos[1], bv.Dim)
	if err != nil {
		return fmt.Errorf("loading query vectors: %w", err)
	}
	groundTruth, err := loader.LoadGroundTruth(pos[2])
	if err != nil {
		return fmt.Errorf("loading ground truth: %w", err)
	}

	ds := grid.Dataset{Dim: bv.Dim, Base: bv.Flat, Queries: queries, GroundTruth: groundTruth, Seed: cf.seed, Workers: cf.workers}
	values := grid.Values{
		M:              []int{cf.m},
		EfConstruction: []int{cf.efConstruction},
		EfSearch:       []int{cf.efSearch},
	}

	results, err := grid.Sweep(ds, values, func(r grid.Result) {
		if globalVerbose {
			fmt.Println(report.Summary(r))
		}
	})
	if err != nil {
		return err
	}

	if err := report.Table(os.Stdout, results); err != nil {
		return err
	}

	if cf.historyPath != "" {
		store, err := history.Open(cf.historyPath)
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer store.Close()

		for _, r := range results {
			run := history.Run{
				Dataset:        pos[0],
				M:              r.M,
				EfConstruction: r.EfConstruction,
				EfSearch:       r.EfSearch,
				N:              bv.N,
				Dim:            bv.Dim,
				RecallAt10:     r.RecallAt10,
				AvgQueryMicros: r.AvgQueryMicros,
				DistanceCount:  r.DistanceCount,
			}
			if _, err := store.Insert(run); err != nil {
				return fmt.Errorf("recording run history: %w", err)
			}
		}
	}

	if best, ok := report.Best(results); ok {
		fmt.Println()
		fmt.Println("Best:", report.Summary(best))
	}
	return nil
}

func runServeMCP(args []string) error {
	srv := mcpsrv.NewServer(mcpsrv.Config{Version: version})
	fmt.Fprintln(os.Stderr, "hnswcore MCP server listening on stdio")
	return server.ServeStdio(srv)
}
