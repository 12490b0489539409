// Package mcpsrv exposes the HNSW index as a Model Context Protocol
// server, grounded on cortex's internal/mcp server: one *server.MCPServer,
// one registerXTool function per tool, JSON results via
// mcp.NewToolResultText, errors via mcp.NewToolResultError rather than a
// Go error (so the LLM caller sees the failure as tool output, not a
// protocol-level fault).
package mcpsrv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/annbench/hnswcore/internal/hnsw"
)

// indexHandle holds the single shared index behind a mutex that guards
// swapping it out, the same role cortex's dbMu plays for SQLite access —
// the mcp-go library dispatches tool handlers concurrently, and a rebuild
// must not race a concurrent search. Build swaps in a freshly-built
// *hnsw.Index rather than mutating one in place, since hnsw.Index embeds
// a sync.RWMutex and sync.Pool that must never be copied by value.
type indexHandle struct {
	mu  sync.RWMutex
	idx *hnsw.Index
}

func (h *indexHandle) get() *hnsw.Index {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idx
}

func (h *indexHandle) set(idx *hnsw.Index) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.idx = idx
}

// Config configures the server; Version defaults to "dev" if empty.
type Config struct {
	Version string
}

// NewServer creates an MCP server exposing build_index, search_index and
// get_stats tools over a single in-process *hnsw.Index shared across
// calls (spec §6 operations, wrapped as MCP tools per SPEC_FULL §"Domain
// Stack").
func NewServer(cfg Config) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"hnswcore",
		ver,
		server.WithToolCapabilities(false),
	)

	handle := &indexHandle{idx: hnsw.New()}

	registerBuildIndexTool(s, handle)
	registerSearchIndexTool(s, handle)
	registerGetStatsTool(s, handle)

	return s
}

func registerBuildIndexTool(s *server.MCPServer, handle *indexHandle) {
	tool := mcp.NewTool("build_index",
		mcp.WithDescription("Build the HNSW index from a flat row-major array of base vectors. Replaces any previously built index by creating a fresh one in its place. NOT incremental — every call does a full bulk build."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithNumber("dim",
			mcp.Required(),
			mcp.Description("Vector dimension"),
		),
		mcp.WithArray("vectors",
			mcp.Required(),
			mcp.Description("Flat row-major array of length n*dim, n vectors concatenated"),
			mcp.Items(map[string]any{"type": "number"}),
		),
		mcp.WithNumber("m",
			mcp.Description(fmt.Sprintf("Neighbors per vertex per layer above layer 0 (default %d)", hnsw.DefaultM)),
		),
		mcp.WithNumber("ef_construction",
			mcp.Description(fmt.Sprintf("Candidate pool size during insertion (default %d)", hnsw.DefaultEfConstruction)),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dimVal, err := req.RequireFloat("dim")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("dim: %v", err)), nil
		}
		dim := int(dimVal)
		if dim <= 0 {
			return mcp.NewToolResultError("dim must be positive"), nil
		}

		rawVecs, ok := req.GetArguments()["vectors"].([]any)
		if !ok {
			return mcp.NewToolResultError("vectors must be an array of numbers"), nil
		}
		flat := make([]float32, len(rawVecs))
		for i, v := range rawVecs {
			f, ok := v.(float64)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("vectors[%d] is not a number", i)), nil
			}
			flat[i] = float32(f)
		}

		m := hnsw.DefaultM
		if v, err := req.RequireFloat("m"); err == nil && v > 0 {
			m = int(v)
		}
		efc := hnsw.DefaultEfConstruction
		if v, err := req.RequireFloat("ef_construction"); err == nil && v > 0 {
			efc = int(v)
		}

		fresh := hnsw.New()
		if err := fresh.SetParameters(m, efc, hnsw.DefaultEfSearch); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("set_parameters error: %v", err)), nil
		}
		if err := fresh.Build(dim, flat); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("build error: %v", err)), nil
		}
		handle.set(fresh)

		data, _ := json.MarshalIndent(map[string]any{
			"n":   fresh.Len(),
			"dim": dim,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerSearchIndexTool(s *server.MCPServer, handle *indexHandle) {
	tool := mcp.NewTool("search_index",
		mcp.WithDescription("Find the 10 nearest neighbor vertex ids to a query vector by squared Euclidean distance. Requires build_index to have run first; an unbuilt or empty index returns all-zero ids."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithArray("query",
			mcp.Required(),
			mcp.Description("Query vector, length must match the built index's dimension"),
			mcp.Items(map[string]any{"type": "number"}),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idx := handle.get()

		rawQuery, ok := req.GetArguments()["query"].([]any)
		if !ok {
			return mcp.NewToolResultError("query must be an array of numbers"), nil
		}
		q := make([]float32, len(rawQuery))
		for i, v := range rawQuery {
			f, ok := v.(float64)
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("query[%d] is not a number", i)), nil
			}
			q[i] = float32(f)
		}

		out := make([]uint32, 10)
		if err := idx.Search(q, out); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(map[string]any{"ids": out}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerGetStatsTool(s *server.MCPServer, handle *indexHandle) {
	tool := mcp.NewTool("get_stats",
		mcp.WithDescription("Get index size and cumulative distance-computation count. Use to understand whether build_index has run and how much distance work subsequent searches have done."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idx := handle.get()

		data, _ := json.MarshalIndent(map[string]any{
			"n":                     idx.Len(),
			"distance_computations": idx.GetDistanceComputations(),
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}
