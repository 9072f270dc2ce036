package demprep

import (
	"fmt"
	"image"
	"image/color"
)

// Pixel values of a Mask.
const (
	Occluded uint8 = 0
	Visible  uint8 = 1
)

// Mask is a binary occlusion mask stored row-major. Generators always produce
// square masks; Rows and Cols are kept separate so malformed input can be detected.
type Mask struct {
	Rows, Cols int
	Pix        []uint8
}

// NewMask returns an n×n mask with every pixel visible.
func NewMask(n int) (*Mask, error) {
	if n <= 0 {
		return nil, fmt.Errorf("canvas size %d: %w", n, ErrInvalidSize)
	}
	pix := make([]uint8, n*n)
	for i := range pix {
		pix[i] = Visible
	}
	return &Mask{Rows: n, Cols: n, Pix: pix}, nil
}

// MaskFromRows builds a mask from a row slice. Rows must be non-empty, of equal
// length, and hold only 0 or 1.
func MaskFromRows(rows [][]uint8) (*Mask, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty mask: %w", ErrShapeMismatch)
	}
	cols := len(rows[0])
	pix := make([]uint8, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), cols, ErrShapeMismatch)
		}
		for j, v := range row {
			if v != Occluded && v != Visible {
				return nil, fmt.Errorf("pixel (%d,%d)=%d is not binary: %w", i, j, v, ErrShapeMismatch)
			}
		}
		pix = append(pix, row...)
	}
	return &Mask{Rows: len(rows), Cols: cols, Pix: pix}, nil
}

// Size returns the side length of a square mask.
func (m *Mask) Size() int { return m.Rows }

// At returns the pixel at row i, column j.
func (m *Mask) At(i, j int) uint8 { return m.Pix[i*m.Cols+j] }

// OccludedCount returns the number of occluded pixels.
func (m *Mask) OccludedCount() int {
	n := 0
	for _, v := range m.Pix {
		if v == Occluded {
			n++
		}
	}
	return n
}

// Gray renders the mask with visible pixels white and occluded pixels black.
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Cols, m.Rows))
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			if m.At(i, j) == Visible {
				img.SetGray(j, i, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// validate reports ErrShapeMismatch unless m is square, fully backed and binary.
func (m *Mask) validate() error {
	if m == nil {
		return fmt.Errorf("nil mask: %w", ErrShapeMismatch)
	}
	if m.Rows <= 0 || m.Rows != m.Cols || len(m.Pix) != m.Rows*m.Cols {
		return fmt.Errorf("mask %dx%d with %d pixels: %w", m.Rows, m.Cols, len(m.Pix), ErrShapeMismatch)
	}
	for k, v := range m.Pix {
		if v != Occluded && v != Visible {
			return fmt.Errorf("pixel (%d,%d)=%d is not binary: %w", k/m.Cols, k%m.Cols, v, ErrShapeMismatch)
		}
	}
	return nil
}
