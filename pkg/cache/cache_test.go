package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNullCacheNeverStores(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "coords", []byte("value"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "coords")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hit || data != nil {
		t.Errorf("Get = (%v, %v), want miss with nil data", data, hit)
	}
	if err := c.Delete(ctx, "coords"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	// Miss before set
	if _, hit, _ := c.Get(ctx, "coords"); hit {
		t.Error("expected miss before Set")
	}

	// Round-trip
	if err := c.Set(ctx, "coords", []byte(`[0.5,0.5]`), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "coords")
	if err != nil || !hit {
		t.Fatalf("Get after Set: hit=%v err=%v", hit, err)
	}
	if string(data) != `[0.5,0.5]` {
		t.Errorf("Get data = %s", data)
	}

	// Expired entries are treated as a miss
	if err := c.Set(ctx, "stale", []byte("x"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "stale"); hit {
		t.Error("expected expired entry to miss")
	}

	// Delete removes the entry; deleting again is not an error
	if err := c.Delete(ctx, "coords"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "coords"); hit {
		t.Error("expected miss after Delete")
	}
	if err := c.Delete(ctx, "coords"); err != nil {
		t.Errorf("Delete missing key: %v", err)
	}
}

func TestFileCachePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	if err := first.Set(ctx, "flatten:abc", []byte("layout"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	first.Close()

	second, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer second.Close()

	data, hit, err := second.Get(ctx, "flatten:abc")
	if err != nil || !hit {
		t.Fatalf("Get from second instance: hit=%v err=%v", hit, err)
	}
	if string(data) != "layout" {
		t.Errorf("data = %s, want layout", data)
	}
}

func TestHash(t *testing.T) {
	a := Hash([]byte("hello"))
	b := Hash([]byte("hello"))
	c := Hash([]byte("world"))

	if a != b {
		t.Error("same input should hash to the same value")
	}
	if a == c {
		t.Error("different inputs should hash to different values")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	// ProjectionKey should include options in hash
	pk1 := k.ProjectionKey("hash123", ProjectionKeyOpts{Components: 2, Normalize: true})
	pk2 := k.ProjectionKey("hash123", ProjectionKeyOpts{Components: 3, Normalize: true})
	if pk1 == pk2 {
		t.Error("Different ProjectionKeyOpts should produce different keys")
	}

	// FlattenKey is sensitive to every parameter
	fk1 := k.FlattenKey("hash123", FlattenKeyOpts{Mu: 0.75, ClusterCount: 20, Seed: 42})
	fk2 := k.FlattenKey("hash123", FlattenKeyOpts{Mu: 0.9, ClusterCount: 20, Seed: 42})
	if fk1 == fk2 {
		t.Error("Different FlattenKeyOpts should produce different keys")
	}

	// BundleKey
	bk1 := k.BundleKey("hash123", BundleKeyOpts{GridCells: 16, Domain: "biology"})
	bk2 := k.BundleKey("hash123", BundleKeyOpts{GridCells: 16, Domain: "history"})
	if bk1 == bk2 {
		t.Error("Different BundleKeyOpts should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "atlas:de:")

	// All keys should be prefixed
	key := scoped.FlattenKey("hash", FlattenKeyOpts{Mu: 0.5})
	if len(key) < 10 || key[:9] != "atlas:de:" {
		t.Errorf("ScopedKeyer FlattenKey should be prefixed: %s", key)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.BundleKey("h", BundleKeyOpts{})
	if key[:7] != "prefix:" {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	wrapped := Retryable(ErrNetwork)
	if !IsRetryable(wrapped) {
		t.Error("wrapped error should be retryable")
	}
	if wrapped.Error() != ErrNetwork.Error() {
		t.Errorf("wrapping changed the message: %s", wrapped.Error())
	}
	if !errors.Is(wrapped, ErrNetwork) {
		t.Error("wrapped error should unwrap to the original")
	}
	if IsRetryable(ErrNotFound) {
		t.Error("plain error should not be retryable")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	tests := []struct {
		name      string
		results   []error
		wantCalls int
		wantErr   error
	}{
		{
			name:      "first try succeeds",
			results:   []error{nil},
			wantCalls: 1,
		},
		{
			name:      "non-retryable stops immediately",
			results:   []error{ErrNotFound},
			wantCalls: 1,
			wantErr:   ErrNotFound,
		},
		{
			name:      "retryable then success",
			results:   []error{Retryable(ErrNetwork), nil},
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(context.Background(), func() error {
				calls++
				return tt.results[calls-1]
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
