package project

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/maplab/flatland/pkg/errors"
)

// LoadVectors reads embedding vectors from path, dispatching on the
// file extension: .json for a JSON array of float arrays, .fvecs for
// the binary format used by common vector benchmarks.
func LoadVectors(path string) ([][]float64, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSONVectors(path)
	case ".fvecs":
		return LoadFvecs(path)
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported vector format: %s", filepath.Ext(path))
	}
}

// LoadJSONVectors reads a JSON array of float arrays.
func LoadJSONVectors(path string) ([][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "vector file not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to read vector file")
	}

	var vectors [][]float64
	if err := json.Unmarshal(data, &vectors); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "failed to parse vector JSON")
	}
	return vectors, nil
}

// LoadFvecs reads vectors from a .fvecs file. Each record is a
// little-endian int32 dimension followed by that many float32 values;
// all records must share one dimension.
func LoadFvecs(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "vector file not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "failed to open fvecs file")
	}
	defer f.Close()

	return ReadFvecs(f)
}

// ReadFvecs reads fvecs records from r until EOF.
func ReadFvecs(r io.Reader) ([][]float64, error) {
	var vectors [][]float64
	expected := int32(-1)

	for {
		var dim int32
		err := binary.Read(r, binary.LittleEndian, &dim)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "failed to read fvecs dimension")
		}
		if dim <= 0 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "invalid fvecs dimension: %d", dim)
		}
		if expected == -1 {
			expected = dim
		} else if dim != expected {
			return nil, errors.New(errors.ErrCodeInvalidFormat,
				"inconsistent fvecs dimensions: expected %d, got %d", expected, dim)
		}

		floats := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, floats); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "failed to read fvecs values")
		}

		vec := make([]float64, dim)
		for i, v := range floats {
			vec[i] = float64(v)
		}
		vectors = append(vectors, vec)
	}

	return vectors, nil
}

// WriteFvecs writes vectors to w in fvecs format.
func WriteFvecs(w io.Writer, vectors [][]float64) error {
	for _, vec := range vectors {
		if err := binary.Write(w, binary.LittleEndian, int32(len(vec))); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "failed to write fvecs dimension")
		}
		floats := make([]float32, len(vec))
		for i, v := range vec {
			floats[i] = float32(v)
		}
		if err := binary.Write(w, binary.LittleEndian, floats); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "failed to write fvecs values")
		}
	}
	return nil
}
