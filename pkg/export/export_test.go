package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/maplab/flatland/pkg/errors"
	"github.com/maplab/flatland/pkg/pointset"
)

func testMap() *pointset.Map {
	return &pointset.Map{
		Name: "science",
		Articles: pointset.Layer{
			Coords: pointset.PointSet{
				{X: 0.1, Y: 0.1},
				{X: 0.2, Y: 0.15},
				{X: 0.8, Y: 0.9},
				{X: 0.85, Y: 0.85},
				{X: 0.82, Y: 0.92},
			},
			Domains: []string{"physics", "physics", "biology", "biology", "biology"},
			Labels:  []string{"a", "b", "c", "d", "e"},
		},
	}
}

func TestBuildGroupsByDomain(t *testing.T) {
	bundle, err := Build(testMap(), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if bundle.MapName != "science" {
		t.Errorf("MapName = %q", bundle.MapName)
	}
	if bundle.ID == "" {
		t.Error("empty bundle ID")
	}
	if bundle.GridCells != DefaultGridCells {
		t.Errorf("GridCells = %d, want %d", bundle.GridCells, DefaultGridCells)
	}

	if len(bundle.Domains) != 2 {
		t.Fatalf("len(Domains) = %d, want 2", len(bundle.Domains))
	}
	// Sorted alphabetically.
	if bundle.Domains[0].Domain != "biology" || bundle.Domains[1].Domain != "physics" {
		t.Errorf("domain order = %q, %q", bundle.Domains[0].Domain, bundle.Domains[1].Domain)
	}
	if bundle.Domains[0].Count != 3 || bundle.Domains[1].Count != 2 {
		t.Errorf("counts = %d, %d", bundle.Domains[0].Count, bundle.Domains[1].Count)
	}

	region := bundle.Domains[1].Region
	if region.MinX != 0.1 || region.MaxX != 0.2 || region.MinY != 0.1 || region.MaxY != 0.15 {
		t.Errorf("physics region = %+v", region)
	}
}

func TestBuildCellLabels(t *testing.T) {
	bundle, err := Build(testMap(), Options{GridCells: 4})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(bundle.Cells) == 0 {
		t.Fatal("no cell labels")
	}
	for _, cell := range bundle.Cells {
		if cell.Row < 0 || cell.Row >= 4 || cell.Col < 0 || cell.Col >= 4 {
			t.Errorf("cell %+v out of grid", cell)
		}
		if cell.Domain == "" || cell.Count == 0 {
			t.Errorf("unlabeled cell %+v", cell)
		}
	}

	// Physics points live in cell (0,0) of the 4x4 grid.
	found := false
	for _, cell := range bundle.Cells {
		if cell.Row == 0 && cell.Col == 0 {
			found = true
			if cell.Domain != "physics" || cell.Count != 2 {
				t.Errorf("cell (0,0) = %+v", cell)
			}
		}
	}
	if !found {
		t.Error("cell (0,0) missing")
	}
}

func TestBuildDomainFilter(t *testing.T) {
	bundle, err := Build(testMap(), Options{Domain: "biology"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(bundle.Domains) != 1 || bundle.Domains[0].Domain != "biology" {
		t.Errorf("Domains = %+v", bundle.Domains)
	}

	_, err = Build(testMap(), Options{Domain: "geology"})
	if !errors.Is(err, errors.ErrCodeInvalidDomain) {
		t.Errorf("error = %v, want ErrCodeInvalidDomain", err)
	}
}

func TestBuildInvalidOptions(t *testing.T) {
	if _, err := Build(testMap(), Options{GridCells: 1000}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want ErrCodeInvalidInput", err)
	}
}

func TestBuildDeterministicLayout(t *testing.T) {
	a, err := Build(testMap(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(testMap(), Options{})
	if err != nil {
		t.Fatal(err)
	}

	// IDs and timestamps differ; everything else must not.
	a.ID, b.ID = "", ""
	a.GeneratedAt = b.GeneratedAt
	aj, _ := Marshal(a)
	bj, _ := Marshal(b)
	if string(aj) != string(bj) {
		t.Error("bundle content differs across identical builds")
	}
}

func TestWriteFile(t *testing.T) {
	bundle, err := Build(testMap(), Options{})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "bundle.json")
	if err := WriteFile(path, bundle); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Bundle
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal written bundle: %v", err)
	}
	if got.ID != bundle.ID || len(got.Domains) != len(bundle.Domains) {
		t.Error("written bundle does not round-trip")
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}
