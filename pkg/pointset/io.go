package pointset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// =============================================================================
// Map Serialization API
// =============================================================================

// MarshalMap converts a Map to pretty-printed JSON bytes.
func MarshalMap(m *Map) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeMapTo(m, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalMap decodes JSON bytes into a Map and validates it.
func UnmarshalMap(data []byte) (*Map, error) {
	return readMapFrom(bytes.NewReader(data))
}

// WriteMap writes a Map as JSON to an io.Writer.
func WriteMap(m *Map, w io.Writer) error {
	return writeMapTo(m, w)
}

// ReadMap decodes a JSON map from an io.Reader.
func ReadMap(r io.Reader) (*Map, error) {
	return readMapFrom(r)
}

// ReadMapFile reads a JSON file and returns the decoded Map.
// Returns validation errors for malformed or inconsistent maps.
func ReadMapFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readMapFrom(f)
}

// WriteMapFile writes a Map to a JSON file atomically: the content is
// written to a temporary file in the same directory and renamed over the
// target. A failed run never leaves a partially-written map behind.
func WriteMapFile(m *Map, path string) error {
	data, err := MarshalMap(m)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeMapTo(m *Map, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readMapFrom(r io.Reader) (*Map, error) {
	var m Map
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
