package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// This is useful when several map collections share one Redis instance
// and need separate cache namespaces.
//
// Example usage:
//
//	// Collection-specific keys
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "atlas:de:")
//
//	// Global keys
//	globalKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ProjectionKey generates a prefixed key for projected coordinates.
func (k *ScopedKeyer) ProjectionKey(sourceHash string, opts ProjectionKeyOpts) string {
	return k.prefix + k.inner.ProjectionKey(sourceHash, opts)
}

// FlattenKey generates a prefixed key for flattened coordinates.
func (k *ScopedKeyer) FlattenKey(mapHash string, opts FlattenKeyOpts) string {
	return k.prefix + k.inner.FlattenKey(mapHash, opts)
}

// BundleKey generates a prefixed key for an export bundle.
func (k *ScopedKeyer) BundleKey(mapHash string, opts BundleKeyOpts) string {
	return k.prefix + k.inner.BundleKey(mapHash, opts)
}
