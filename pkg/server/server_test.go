package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maplab/flatland/pkg/export"
	"github.com/maplab/flatland/pkg/pointset"
	"github.com/maplab/flatland/pkg/store"
)

func testServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	return New(s, Options{}), s
}

func publishTestBundle(t *testing.T, s *store.MemoryStore) *export.Bundle {
	t.Helper()
	bundle := &export.Bundle{
		ID:          "bundle-1",
		MapName:     "science",
		GeneratedAt: time.Now().UTC(),
		GridCells:   24,
		Domains: []export.DomainBundle{
			{Domain: "physics", Count: 2, Points: pointset.PointSet{{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.4}}},
		},
		Stats: &pointset.DensityStats{EmptyBefore: 0.9, EmptyAfter: 0.4},
	}
	if err := s.Publish(context.Background(), bundle); err != nil {
		t.Fatal(err)
	}
	return bundle
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(t, srv, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q", body["status"])
	}
}

func TestListBundles(t *testing.T) {
	srv, s := testServer(t)
	publishTestBundle(t, s)

	rec := get(t, srv, "/api/v1/bundles")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Bundles []store.BundleInfo `json:"bundles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Bundles) != 1 || body.Bundles[0].MapName != "science" {
		t.Errorf("bundles = %+v", body.Bundles)
	}
}

func TestGetBundleByID(t *testing.T) {
	srv, s := testServer(t)
	want := publishTestBundle(t, s)

	rec := get(t, srv, "/api/v1/bundles/bundle-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got export.Bundle
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != want.ID || len(got.Domains) != 1 {
		t.Errorf("bundle = %+v", got)
	}
}

func TestGetMapByName(t *testing.T) {
	srv, s := testServer(t)
	publishTestBundle(t, s)

	rec := get(t, srv, "/api/v1/maps/science")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	srv, s := testServer(t)
	publishTestBundle(t, s)

	rec := get(t, srv, "/api/v1/maps/science/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		MapName string                 `json:"map_name"`
		Stats   *pointset.DensityStats `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.MapName != "science" || body.Stats == nil || body.Stats.EmptyAfter != 0.4 {
		t.Errorf("stats response = %+v", body)
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := testServer(t)

	for _, path := range []string{
		"/api/v1/bundles/missing",
		"/api/v1/maps/missing",
		"/api/v1/maps/missing/stats",
	} {
		rec := get(t, srv, path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rec.Code)
		}
	}
}
