// Package store persists export bundles for the sharing surfaces.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/maplab/flatland/pkg/errors"
	"github.com/maplab/flatland/pkg/export"
)

// BundleInfo is a bundle listing entry without the point payload.
type BundleInfo struct {
	ID          string    `json:"id" bson:"_id"`
	MapName     string    `json:"map_name" bson:"map_name"`
	GeneratedAt time.Time `json:"generated_at" bson:"generated_at"`
	DomainCount int       `json:"domain_count" bson:"domain_count"`
}

// Store persists bundles. One bundle is kept per map name; publishing
// again replaces the previous bundle for that map.
type Store interface {
	// Publish upserts a bundle keyed by its map name.
	Publish(ctx context.Context, b *export.Bundle) error

	// Get returns a bundle by ID.
	Get(ctx context.Context, id string) (*export.Bundle, error)

	// GetByMap returns the current bundle for a map name.
	GetByMap(ctx context.Context, mapName string) (*export.Bundle, error)

	// List returns all stored bundles, newest first.
	List(ctx context.Context) ([]BundleInfo, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// =============================================================================
// Memory Store
// =============================================================================

// MemoryStore is an in-process Store used by the preview server and in
// tests.
type MemoryStore struct {
	mu    sync.RWMutex
	byMap map[string]*export.Bundle
	byID  map[string]*export.Bundle
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byMap: make(map[string]*export.Bundle),
		byID:  make(map[string]*export.Bundle),
	}
}

// Publish implements Store.
func (s *MemoryStore) Publish(_ context.Context, b *export.Bundle) error {
	if b == nil || b.ID == "" || b.MapName == "" {
		return errors.New(errors.ErrCodeInvalidInput, "bundle must have an ID and map name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byMap[b.MapName]; ok {
		delete(s.byID, old.ID)
	}
	s.byMap[b.MapName] = b
	s.byID[b.ID] = b
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*export.Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byID[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeBundleNotFound, "bundle not found: %s", id)
	}
	return b, nil
}

// GetByMap implements Store.
func (s *MemoryStore) GetByMap(_ context.Context, mapName string) (*export.Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byMap[mapName]
	if !ok {
		return nil, errors.New(errors.ErrCodeBundleNotFound, "no bundle for map: %s", mapName)
	}
	return b, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]BundleInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]BundleInfo, 0, len(s.byMap))
	for _, b := range s.byMap {
		infos = append(infos, BundleInfo{
			ID:          b.ID,
			MapName:     b.MapName,
			GeneratedAt: b.GeneratedAt,
			DomainCount: len(b.Domains),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].GeneratedAt.Equal(infos[j].GeneratedAt) {
			return infos[i].GeneratedAt.After(infos[j].GeneratedAt)
		}
		return infos[i].MapName < infos[j].MapName
	})
	return infos, nil
}

// Close implements Store.
func (s *MemoryStore) Close(context.Context) error { return nil }

var _ Store = (*MemoryStore)(nil)
