// Package loader reads the whitespace-separated vector and ground-truth
// text formats used by the bulk-load benchmark harness (spec §6 "load
// bulk vectors", §8 dataset scenarios).
package loader

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// BaseVectors is a flat, row-major base ready to hand to hnsw.Index.Build.
type BaseVectors struct {
	Dim  int
	N    int
	Flat []float32
}

// LoadBaseVectors reads a base file: one vector per line, whitespace
// separated floats. The dimension is inferred from the first non-empty
// line and every subsequent line must match it (grounded on
// grid_search_sift.cpp's load_base_vectors).
func LoadBaseVectors(path string) (*BaseVectors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var flat []float32
	dim := 0
	n := 0

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		vals, err := parseFloats(line)
		if err != nil {
			return nil, fmt.Errorf("loader: base file %s line %d: %w", path, lineNo, err)
		}
		if dim == 0 {
			dim = len(vals)
		} else if len(vals) != dim {
			return nil, fmt.Errorf("loader: base file %s line %d: got %d fields, want %d", path, lineNo, len(vals), dim)
		}
		flat = append(flat, vals...)
		n++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &BaseVectors{Dim: dim, N: n, Flat: flat}, nil
}

// LoadQueryVectors reads a query file in the same format as base files,
// except the first line may be a "N D" header (two whitespace-separated
// integers) which is sniffed and skipped rather than treated as a
// 2-dimensional query vector (grounded on load_query_vectors' "skip
// metadata line" handling).
func LoadQueryVectors(path string, dim int) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var queries [][]float32
	first := true

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		vals, err := parseFloats(line)
		if err != nil {
			return nil, fmt.Errorf("loader: query file %s line %d: %w", path, lineNo, err)
		}
		if first {
			first = false
			if len(vals) == 2 && dim != 2 {
				continue // "N D" header line
			}
		}
		if dim > 0 && len(vals) != dim {
			continue
		}
		queries = append(queries, vals)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return queries, nil
}

// LoadGroundTruth reads a ground-truth file: one line per query, up to 10
// whitespace-separated integer vertex ids per line, ascending by rank
// (spec §8 recall scenarios). A leading "N K" header line is sniffed and
// skipped the same way LoadQueryVectors skips its header.
func LoadGroundTruth(path string) ([][]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var truth [][]int
	first := true

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		vals := make([]int, 0, len(fields))
		for _, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("loader: ground truth file %s line %d: %w", path, lineNo, err)
			}
			vals = append(vals, v)
		}
		if first {
			first = false
			if len(vals) == 2 {
				continue
			}
		}
		truth = append(truth, vals)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return truth, nil
}

func parseFloats(line string) ([]float32, error) {
	fields := strings.Fields(line)
	out := make([]float32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, err
		}
		out = append(out, float32(v))
	}
	return out, nil
}
