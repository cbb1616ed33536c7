package cache

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"time"
)

// FileCache stores entries as files under an XDG-style cache directory.
// Entries carry their expiry inline so stale files are dropped on read;
// there is no background sweeper.
type FileCache struct {
	dir string
}

// entryHeaderLen is the size of the expiry prefix on each cache file:
// the expiration time as big-endian unix nanoseconds, zero for no expiry.
const entryHeaderLen = 8

// NewFileCache creates a file-based cache rooted at dir, creating the
// directory if needed.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Get retrieves a value, treating missing, malformed, and expired files
// as a miss.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := os.ReadFile(c.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if len(raw) < entryHeaderLen {
		_ = os.Remove(c.path(key))
		return nil, false, nil
	}

	if expiry := int64(binary.BigEndian.Uint64(raw[:entryHeaderLen])); expiry != 0 {
		if time.Now().UnixNano() > expiry {
			_ = os.Remove(c.path(key))
			return nil, false, nil
		}
	}
	return raw[entryHeaderLen:], true, nil
}

// Set stores a value. A TTL of 0 stores it without expiration.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	var expiry int64
	if ttl > 0 {
		expiry = time.Now().Add(ttl).UnixNano()
	}

	raw := make([]byte, entryHeaderLen+len(data))
	binary.BigEndian.PutUint64(raw[:entryHeaderLen], uint64(expiry))
	copy(raw[entryHeaderLen:], data)

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// Delete removes a value. Deleting a missing key is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close is a no-op for the file cache.
func (c *FileCache) Close() error { return nil }

// path maps a key to a file path, sharding by the first hash byte so no
// single directory accumulates every entry.
func (c *FileCache) path(key string) string {
	sum := Hash([]byte(key))
	return filepath.Join(c.dir, sum[:2], sum[2:]+".cache")
}

var _ Cache = (*FileCache)(nil)
