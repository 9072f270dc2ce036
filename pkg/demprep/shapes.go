package demprep

import "fmt"

// Every generator returns a fresh n×n mask, all visible except the shape's
// interior. Positions are derived from n so the catalog scales with the canvas.

// SquareMask occludes a centred square of side hole.
func SquareMask(n, hole int) (*Mask, error) {
	m, err := newShapeCanvas(n, hole)
	if err != nil {
		return nil, err
	}
	lo, hi := centredSpan(n, hole)
	m.occludeRect(lo, hi, lo, hi)
	return m, nil
}

// CentreStripMask occludes a full-height band of width columns centred horizontally.
func CentreStripMask(n, width int) (*Mask, error) {
	m, err := newShapeCanvas(n, width)
	if err != nil {
		return nil, err
	}
	lo, hi := centredSpan(n, width)
	m.occludeRect(0, n, lo, hi)
	return m, nil
}

// HorizontalStripMask occludes a full-width band of height rows centred vertically.
func HorizontalStripMask(n, height int) (*Mask, error) {
	m, err := newShapeCanvas(n, height)
	if err != nil {
		return nil, err
	}
	lo, hi := centredSpan(n, height)
	m.occludeRect(lo, hi, 0, n)
	return m, nil
}

// TopStripMask occludes the first height rows.
func TopStripMask(n, height int) (*Mask, error) {
	m, err := newShapeCanvas(n, height)
	if err != nil {
		return nil, err
	}
	m.occludeRect(0, height, 0, n)
	return m, nil
}

// LeftStripMask occludes the first width columns.
func LeftStripMask(n, width int) (*Mask, error) {
	m, err := newShapeCanvas(n, width)
	if err != nil {
		return nil, err
	}
	m.occludeRect(0, n, 0, width)
	return m, nil
}

// CircleMask occludes a disk of the given radius centred on the canvas.
func CircleMask(n, radius int) (*Mask, error) {
	return EllipseMask(n, radius, radius)
}

// EllipseMask occludes an axis-aligned ellipse centred on the canvas.
func EllipseMask(n, rowRadius, colRadius int) (*Mask, error) {
	if rowRadius <= 0 || colRadius <= 0 {
		return nil, fmt.Errorf("ellipse radii %d,%d: %w", rowRadius, colRadius, ErrInvalidSize)
	}
	m, err := NewMask(n)
	if err != nil {
		return nil, err
	}
	c := float64(n / 2)
	m.occludeEllipse(c, c, float64(rowRadius), float64(colRadius))
	return m, nil
}

// PolygonMask occludes the filled polygon through vertices.
func PolygonMask(n int, vertices []Vertex) (*Mask, error) {
	if len(vertices) < 3 {
		return nil, fmt.Errorf("polygon needs at least 3 vertices, got %d", len(vertices))
	}
	m, err := NewMask(n)
	if err != nil {
		return nil, err
	}
	m.occludePolygon(vertices)
	return m, nil
}

// TriangleMask occludes the triangle a, b, c.
func TriangleMask(n int, a, b, c Vertex) (*Mask, error) {
	return PolygonMask(n, []Vertex{a, b, c})
}

// QuadMask occludes the quadrilateral a, b, c, d.
func QuadMask(n int, a, b, c, d Vertex) (*Mask, error) {
	return PolygonMask(n, []Vertex{a, b, c, d})
}

// CentreTriangleMask occludes a thin triangle from the canvas centre up to the top edge.
func CentreTriangleMask(n int) (*Mask, error) {
	return TriangleMask(n,
		Vertex{Row: n / 2, Col: n / 2},
		Vertex{Row: 0, Col: n / 2},
		Vertex{Row: 0, Col: frac(n, 3, 5)},
	)
}

// TopLeftEdgeMask occludes a right triangle in the top-left corner.
func TopLeftEdgeMask(n int) (*Mask, error) {
	return TriangleMask(n,
		Vertex{Row: 0, Col: 0},
		Vertex{Row: 0, Col: frac(n, 4, 10)},
		Vertex{Row: frac(n, 6, 10), Col: 0},
	)
}

// TopRightEdgeMask occludes a right triangle in the top-right corner.
func TopRightEdgeMask(n int) (*Mask, error) {
	return TriangleMask(n,
		Vertex{Row: 0, Col: n - 1},
		Vertex{Row: 0, Col: frac(n, 6, 10)},
		Vertex{Row: frac(n, 4, 10), Col: n - 1},
	)
}

// TopLeftStripMask occludes a diagonal band across the top-left corner.
func TopLeftStripMask(n int) (*Mask, error) {
	return QuadMask(n,
		Vertex{Row: frac(n, 2, 10), Col: 0},
		Vertex{Row: frac(n, 4, 10), Col: 0},
		Vertex{Row: 0, Col: frac(n, 4, 10)},
		Vertex{Row: 0, Col: frac(n, 2, 10)},
	)
}

// BottomRightStripMask occludes a diagonal band reaching the bottom-right corner.
func BottomRightStripMask(n int) (*Mask, error) {
	return QuadMask(n,
		Vertex{Row: frac(n, 2, 10), Col: n - 1},
		Vertex{Row: frac(n, 6, 10), Col: n - 1},
		Vertex{Row: n - 1, Col: frac(n, 8, 10)},
		Vertex{Row: n - 1, Col: frac(n, 6, 10)},
	)
}

func newShapeCanvas(n, extent int) (*Mask, error) {
	if extent < 0 {
		return nil, fmt.Errorf("shape extent %d: %w", extent, ErrInvalidSize)
	}
	return NewMask(n)
}

// centredSpan returns [int(n/2 - w/2), int(n/2 + w/2)) with real-valued halves.
func centredSpan(n, w int) (int, int) {
	half := float64(n) / 2
	return int(half - float64(w)/2), int(half + float64(w)/2)
}

// frac returns floor(n*num/den).
func frac(n, num, den int) int {
	return n * num / den
}
