package pipeline

import (
	"context"
	stderrors "errors"
	"math/rand/v2"
	"testing"

	"github.com/maplab/flatland/pkg/cache"
	"github.com/maplab/flatland/pkg/errors"
	"github.com/maplab/flatland/pkg/flatten"
)

func testVectors(n, dim int, seed uint64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, seed^1))
	vectors := make([][]float64, n)
	for i := range vectors {
		vec := make([]float64, dim)
		for j := range vec {
			vec[j] = rng.NormFloat64()
		}
		vectors[i] = vec
	}
	return vectors
}

func testDomains(n int) []string {
	domains := make([]string, n)
	for i := range domains {
		if i%2 == 0 {
			domains[i] = "physics"
		} else {
			domains[i] = "biology"
		}
	}
	return domains
}

func testOptions() Options {
	n := 200
	return Options{
		Name:            "science",
		Vectors:         testVectors(n, 8, 1),
		QuestionVectors: testVectors(20, 8, 2),
		Domains:         testDomains(n),
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := testOptions()
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}

	if opts.Mu != DefaultMu {
		t.Errorf("Mu = %v, want %v", opts.Mu, DefaultMu)
	}
	if opts.ClusterCount != DefaultClusterCount {
		t.Errorf("ClusterCount = %v, want %v", opts.ClusterCount, DefaultClusterCount)
	}
	if opts.NeighborK != DefaultNeighborK {
		t.Errorf("NeighborK = %v, want %v", opts.NeighborK, DefaultNeighborK)
	}
	if opts.Margin != DefaultMargin {
		t.Errorf("Margin = %v, want %v", opts.Margin, DefaultMargin)
	}
	if opts.Seed != DefaultSeed {
		t.Errorf("Seed = %v, want %v", opts.Seed, DefaultSeed)
	}
	if opts.GridCells != DefaultGridCells {
		t.Errorf("GridCells = %v, want %v", opts.GridCells, DefaultGridCells)
	}
}

func TestValidateAndSetDefaultsKeepsExplicitZeroMu(t *testing.T) {
	opts := testOptions()
	opts.MuSet = true
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Mu != 0 {
		t.Errorf("Mu = %v, want explicit 0", opts.Mu)
	}
}

func TestSetFlattenDefaultsKeepsExplicitZeros(t *testing.T) {
	opts := testOptions()
	opts.MarginSet = true
	opts.SeedSet = true
	opts.SetFlattenDefaults()

	if opts.Margin != 0 {
		t.Errorf("Margin = %v, want explicit 0", opts.Margin)
	}
	if opts.Seed != 0 {
		t.Errorf("Seed = %v, want explicit 0", opts.Seed)
	}

	// Without the set markers the zeros mean "unset".
	opts = testOptions()
	opts.SetFlattenDefaults()
	if opts.Margin != DefaultMargin || opts.Seed != DefaultSeed {
		t.Errorf("defaults not applied: margin=%v seed=%v", opts.Margin, opts.Seed)
	}
}

func TestValidateRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"missing name", func(o *Options) { o.Name = "" }},
		{"missing vectors", func(o *Options) { o.Vectors = nil }},
		{"mismatched domains", func(o *Options) { o.Domains = []string{"one"} }},
		{"mismatched labels", func(o *Options) { o.Labels = []string{"one"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.mutate(&opts)
			if err := opts.ValidateAndSetDefaults(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestExecuteEndToEnd(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	defer runner.Close()

	result, err := runner.Execute(context.Background(), testOptions())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.Map == nil || result.Bundle == nil {
		t.Fatal("missing map or bundle")
	}
	if result.MapHash == "" {
		t.Error("empty map hash")
	}
	if result.Stats.PointCount != 200 || result.Stats.QuestionCount != 20 {
		t.Errorf("counts = %d, %d", result.Stats.PointCount, result.Stats.QuestionCount)
	}
	if result.Stats.DomainCount != 2 {
		t.Errorf("DomainCount = %d, want 2", result.Stats.DomainCount)
	}

	if !result.Map.Articles.Coords.InUnitSquare() {
		t.Error("article coordinates escape unit square")
	}
	if !result.Map.Questions.Coords.InUnitSquare() {
		t.Error("question coordinates escape unit square")
	}
	if result.Map.FlattenParams == nil || result.Map.Stats == nil {
		t.Error("flatten metadata missing from map")
	}
	if len(result.Map.Articles.CoordsOriginal) != 200 {
		t.Error("original coordinates not preserved")
	}

	if result.CacheInfo.ProjectHit || result.CacheInfo.FlattenHit || result.CacheInfo.ExportHit {
		t.Error("unexpected cache hit with null cache")
	}
}

func TestExecuteCaching(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, nil)
	defer runner.Close()

	opts := testOptions()

	first, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !second.CacheInfo.ProjectHit || !second.CacheInfo.FlattenHit || !second.CacheInfo.ExportHit {
		t.Errorf("expected full cache hits on second run, got %+v", second.CacheInfo)
	}
	if first.MapHash != second.MapHash {
		t.Error("map hash differs between cached and fresh runs")
	}

	// Refresh bypasses the cache.
	opts.Refresh = true
	third, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("refresh run: %v", err)
	}
	if third.CacheInfo.ProjectHit || third.CacheInfo.FlattenHit || third.CacheInfo.ExportHit {
		t.Errorf("refresh run hit the cache: %+v", third.CacheInfo)
	}
}

func TestExecuteCarriesFlattenErrorCodes(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	defer runner.Close()

	opts := testOptions()
	opts.Mu = 2
	opts.MuSet = true

	_, err := runner.Execute(context.Background(), opts)
	if err == nil {
		t.Fatal("expected error for mu out of range")
	}
	if !errors.Is(err, errors.ErrCodeInvalidParameter) {
		t.Errorf("err = %v, want code %s", err, errors.ErrCodeInvalidParameter)
	}

	// Fewer distinct points than clusters: 30 points, 5 distinct vectors.
	vectors := testVectors(30, 8, 3)
	for i := range vectors {
		vectors[i] = vectors[i%5]
	}
	opts = Options{Name: "dupes", Vectors: vectors}
	_, err = runner.Execute(context.Background(), opts)
	if err == nil {
		t.Fatal("expected error for degenerate input")
	}
	if !errors.Is(err, errors.ErrCodeDegenerateInput) {
		t.Errorf("err = %v, want code %s", err, errors.ErrCodeDegenerateInput)
	}
}

func TestStageCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.Code
	}{
		{"invalid parameter", &flatten.InvalidParameterError{Field: "mu"}, errors.ErrCodeInvalidParameter},
		{"degenerate input", &flatten.DegenerateInputError{Distinct: 1, ClusterCount: 20}, errors.ErrCodeDegenerateInput},
		{"coded error", errors.New(errors.ErrCodeFileNotFound, "missing"), errors.ErrCodeFileNotFound},
		{"plain error", stderrors.New("boom"), errors.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stageCode(tt.err); got != tt.want {
				t.Errorf("stageCode = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFlattenFromOriginals(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	defer runner.Close()
	ctx := context.Background()

	m, err := runner.Project(ctx, testOptions())
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	opts := testOptions()
	flat, err := runner.Flatten(ctx, m, opts)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	// Flattening the already-flattened map at mu=0 restores the
	// original projected layout.
	opts.Mu = 0
	opts.MuSet = true
	restored, err := runner.Flatten(ctx, flat, opts)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	for i := range m.Articles.Coords {
		if restored.Articles.Coords[i] != m.Articles.Coords[i] {
			t.Fatalf("coordinate %d not restored at mu=0", i)
		}
	}
}
