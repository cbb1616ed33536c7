package pointset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testMap() *Map {
	return &Map{
		Name: "test-atlas",
		Articles: Layer{
			Coords:         PointSet{{0.2, 0.3}, {0.7, 0.8}},
			CoordsOriginal: PointSet{{0.25, 0.35}, {0.65, 0.75}},
			Domains:        []string{"biology", "history"},
			Labels:         []string{"Cell", "Rome"},
		},
		Questions: Layer{
			Coords: PointSet{{0.5, 0.5}},
		},
		FlattenParams: &FlattenParams{Mu: 0.75, ClusterCount: 2, NeighborK: 1, Margin: 0.02, Seed: 42},
		Stats:         &DensityStats{EmptyBefore: 0.9, EmptyAfter: 0.5},
	}
}

func TestMapRoundTrip(t *testing.T) {
	m := testMap()

	data, err := MarshalMap(m)
	if err != nil {
		t.Fatalf("MarshalMap: %v", err)
	}

	got, err := UnmarshalMap(data)
	if err != nil {
		t.Fatalf("UnmarshalMap: %v", err)
	}

	if got.Name != m.Name {
		t.Errorf("Name = %q, want %q", got.Name, m.Name)
	}
	if len(got.Articles.Coords) != 2 || got.Articles.Coords[1] != (Point{0.7, 0.8}) {
		t.Errorf("Articles.Coords = %v", got.Articles.Coords)
	}
	if got.Articles.Domains[0] != "biology" {
		t.Errorf("Domains = %v", got.Articles.Domains)
	}
	if got.FlattenParams == nil || got.FlattenParams.Mu != 0.75 {
		t.Errorf("FlattenParams = %+v", got.FlattenParams)
	}
	if got.Stats == nil || got.Stats.EmptyAfter != 0.5 {
		t.Errorf("Stats = %+v", got.Stats)
	}
}

func TestMapFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")

	if err := WriteMapFile(testMap(), path); err != nil {
		t.Fatalf("WriteMapFile: %v", err)
	}

	got, err := ReadMapFile(path)
	if err != nil {
		t.Fatalf("ReadMapFile: %v", err)
	}
	if got.Articles.Len() != 2 || got.Questions.Len() != 1 {
		t.Errorf("layer sizes = %d, %d", got.Articles.Len(), got.Questions.Len())
	}

	// Atomic write leaves no temp files behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestWriteMapFileReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")

	if err := WriteMapFile(testMap(), path); err != nil {
		t.Fatalf("first write: %v", err)
	}

	updated := testMap()
	updated.Name = "updated-atlas"
	if err := WriteMapFile(updated, path); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := ReadMapFile(path)
	if err != nil {
		t.Fatalf("ReadMapFile: %v", err)
	}
	if got.Name != "updated-atlas" {
		t.Errorf("Name = %q, want updated-atlas", got.Name)
	}
}

func TestReadMapInvalid(t *testing.T) {
	// Malformed JSON
	if _, err := UnmarshalMap([]byte("{not json")); err == nil {
		t.Error("expected decode error")
	}

	// Valid JSON, invalid map (coordinates out of range)
	bad := `{"articles": {"coords": [{"x": 2.0, "y": 0.5}]}}`
	if _, err := UnmarshalMap([]byte(bad)); err == nil {
		t.Error("expected validation error")
	}

	// Missing file
	if _, err := ReadMapFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
