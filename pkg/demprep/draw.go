package demprep

import "math"

// Vertex is a polygon corner in (row, column) pixel coordinates.
type Vertex struct {
	Row, Col int
}

// occludeRect zeroes rows [r0, r1) and columns [c0, c1), clipped to the mask.
func (m *Mask) occludeRect(r0, r1, c0, c1 int) {
	r0, r1 = clampSpan(r0, r1, m.Rows)
	c0, c1 = clampSpan(c0, c1, m.Cols)
	for i := r0; i < r1; i++ {
		row := m.Pix[i*m.Cols : (i+1)*m.Cols]
		for j := c0; j < c1; j++ {
			row[j] = Occluded
		}
	}
}

// occludeEllipse zeroes every pixel strictly inside the axis-aligned ellipse
// centred at (cr, cc). Only the bounding box [ceil(c-r), floor(c+r)] is scanned.
func (m *Mask) occludeEllipse(cr, cc, rowRadius, colRadius float64) {
	r0 := max(0, int(math.Ceil(cr-rowRadius)))
	r1 := min(m.Rows-1, int(math.Floor(cr+rowRadius)))
	c0 := max(0, int(math.Ceil(cc-colRadius)))
	c1 := min(m.Cols-1, int(math.Floor(cc+colRadius)))
	for i := r0; i <= r1; i++ {
		dr := (float64(i) - cr) / rowRadius
		for j := c0; j <= c1; j++ {
			dc := (float64(j) - cc) / colRadius
			if dr*dr+dc*dc < 1 {
				m.Pix[i*m.Cols+j] = Occluded
			}
		}
	}
}

// occludePolygon zeroes every pixel whose integer coordinate lies inside the
// polygon under the even-odd rule.
func (m *Mask) occludePolygon(vertices []Vertex) {
	if len(vertices) < 3 {
		return
	}
	rows := make([]float64, len(vertices))
	cols := make([]float64, len(vertices))
	minR, maxR := math.Inf(1), math.Inf(-1)
	minC, maxC := math.Inf(1), math.Inf(-1)
	for k, v := range vertices {
		rows[k], cols[k] = float64(v.Row), float64(v.Col)
		minR, maxR = math.Min(minR, rows[k]), math.Max(maxR, rows[k])
		minC, maxC = math.Min(minC, cols[k]), math.Max(maxC, cols[k])
	}
	r0 := int(math.Max(0, minR))
	r1 := min(m.Rows-1, int(math.Ceil(maxR)))
	c0 := int(math.Max(0, minC))
	c1 := min(m.Cols-1, int(math.Ceil(maxC)))
	for i := r0; i <= r1; i++ {
		for j := c0; j <= c1; j++ {
			if pointInPolygon(cols, rows, float64(j), float64(i)) {
				m.Pix[i*m.Cols+j] = Occluded
			}
		}
	}
}

// pointInPolygon is the crossing-number test with xp/yp as the polygon's x
// (column) and y (row) coordinates.
func pointInPolygon(xp, yp []float64, x, y float64) bool {
	inside := false
	j := len(xp) - 1
	for i := range xp {
		if ((yp[i] <= y && y < yp[j]) || (yp[j] <= y && y < yp[i])) &&
			x < (xp[j]-xp[i])*(y-yp[i])/(yp[j]-yp[i])+xp[i] {
			inside = !inside
		}
		j = i
	}
	return inside
}

func clampSpan(lo, hi, n int) (int, int) {
	lo = max(0, min(lo, n))
	hi = max(lo, min(hi, n))
	return lo, hi
}
