package demprep

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"gonum.org/v1/gonum/mat"

	"demprep/internal/fsutil"
)

// DefaultTensorExt is the file extension of every tensor artifact.
const DefaultTensorExt = "tensor"

// TileTensor converts a tile to a float32 tensor with a leading unit channel
// dimension, shape (1, rows, cols).
func TileTensor(tile mat.Matrix) *tensors.Tensor {
	r, c := tile.Dims()
	flat := make([]float32, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			flat = append(flat, float32(tile.At(i, j)))
		}
	}
	return tensors.FromFlatDataAndDimensions(flat, 1, r, c)
}

// MaskTensor converts a mask to an int64 tensor of shape (1, n, n).
func MaskTensor(m *Mask) *tensors.Tensor {
	flat := make([]int64, len(m.Pix))
	for i, v := range m.Pix {
		flat[i] = int64(v)
	}
	return tensors.FromFlatDataAndDimensions(flat, 1, m.Rows, m.Cols)
}

// WeightTensor converts a weight matrix to a float32 tensor of shape (n, n).
func WeightTensor(w mat.Matrix) *tensors.Tensor {
	r, c := w.Dims()
	flat := make([]float32, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			flat = append(flat, float32(w.At(i, j)))
		}
	}
	return tensors.FromFlatDataAndDimensions(flat, r, c)
}

// EncodeTensor serialises t into the gob wire format understood by DecodeTensor.
func EncodeTensor(t *tensors.Tensor) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.GobSerialize(gob.NewEncoder(&buf)); err != nil {
		return nil, fmt.Errorf("encoding tensor: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeTensor parses bytes produced by EncodeTensor.
func DecodeTensor(data []byte) (*tensors.Tensor, error) {
	t, err := tensors.GobDeserialize(gob.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("decoding tensor: %w", err)
	}
	return t, nil
}

// writeTensor encodes t and stores it at path. Every failure wraps ErrStorageWrite.
func writeTensor(fsys fsutil.FileSystem, path string, t *tensors.Tensor) error {
	data, err := EncodeTensor(t)
	if err != nil {
		return fmt.Errorf("writing %s: %w: %w", path, ErrStorageWrite, err)
	}
	if err := fsys.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w: %w", path, ErrStorageWrite, err)
	}
	return nil
}
