package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash computes the SHA-256 content hash of data as a 64-character hex
// string. All cache keys and map hashes in the pipeline use this form.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey builds a namespaced cache key from a stage prefix and the
// key components. Components are serialized to JSON before hashing so
// two option structs with equal fields always yield the same key.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}
