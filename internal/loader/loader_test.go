package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadBaseVectors(t *testing.T) {
	path := writeTemp(t, "1 2 3 4\n5 6 7 8\n\n9 10 11 12\n")
	bv, err := LoadBaseVectors(path)
	if err != nil {
		t.Fatalf("LoadBaseVectors: %v", err)
	}
	if bv.Dim != 4 || bv.N != 3 {
		t.Fatalf("got dim=%d n=%d, want dim=4 n=3", bv.Dim, bv.N)
	}
	want := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if len(bv.Flat) != len(want) {
		t.Fatalf("got %d floats, want %d", len(bv.Flat), len(want))
	}
	for i := range want {
		if bv.Flat[i] != want[i] {
			t.Errorf("Flat[%d] = %f, want %f", i, bv.Flat[i], want[i])
		}
	}
}

func TestLoadBaseVectors_RejectsRaggedRows(t *testing.T) {
	path := writeTemp(t, "1 2 3 4\n5 6 7\n")
	if _, err := LoadBaseVectors(path); err == nil {
		t.Error("expected error for ragged row widths")
	}
}

func TestLoadQueryVectors_SkipsHeaderLine(t *testing.T) {
	path := writeTemp(t, "2 4\n1 2 3 4\n5 6 7 8\n")
	qs, err := LoadQueryVectors(path, 4)
	if err != nil {
		t.Fatalf("LoadQueryVectors: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("got %d queries, want 2", len(qs))
	}
}

func TestLoadQueryVectors_NoHeaderWhenDimIsTwo(t *testing.T) {
	path := writeTemp(t, "1 2\n3 4\n")
	qs, err := LoadQueryVectors(path, 2)
	if err != nil {
		t.Fatalf("LoadQueryVectors: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("got %d queries, want 2 (no header should be sniffed when dim==2)", len(qs))
	}
}

func TestLoadGroundTruth(t *testing.T) {
	path := writeTemp(t, "2 3\n1 2 3\n4 5 6\n")
	truth, err := LoadGroundTruth(path)
	if err != nil {
		t.Fatalf("LoadGroundTruth: %v", err)
	}
	if len(truth) != 2 {
		t.Fatalf("got %d rows, want 2", len(truth))
	}
	if truth[0][0] != 1 || truth[1][2] != 6 {
		t.Errorf("unexpected ground truth contents: %v", truth)
	}
}
