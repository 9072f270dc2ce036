package demprep

import (
	"gonum.org/v1/gonum/mat"
)

// OccludedWeight is the flat confidence assigned to every occluded pixel.
const OccludedWeight = 0.5

// neighbourOffsets lists the 8-connected (row, col) offsets: N, NE, E, SE, S, SW, W, NW.
var neighbourOffsets = [8][2]int{{-1, 0}, {-1, 1}, {0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}}

// DeriveWeights computes the confidence matrix of a square mask. Occluded
// pixels get OccludedWeight. A visible pixel gets the fraction of its in-bounds
// 8-neighbours that are occluded, so corners average over 3 neighbours, edges
// over 5 and interior pixels over 8. A 1×1 visible mask has no neighbours and
// gets weight 0.
func DeriveWeights(m *Mask) (*mat.Dense, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	n := m.Rows
	w := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if m.Pix[i*n+j] == Occluded {
				w.Set(i, j, OccludedWeight)
				continue
			}
			occluded, total := 0, 0
			for _, d := range neighbourOffsets {
				ni, nj := i+d[0], j+d[1]
				if !inBounds(n, ni, nj) {
					continue
				}
				total++
				if m.Pix[ni*n+nj] == Occluded {
					occluded++
				}
			}
			if total > 0 {
				w.Set(i, j, float64(occluded)/float64(total))
			}
		}
	}
	return w, nil
}

// Neighbours returns the in-bounds 8-neighbours of (i, j) on an n×n grid.
func Neighbours(n, i, j int) [][2]int {
	out := make([][2]int, 0, len(neighbourOffsets))
	for _, d := range neighbourOffsets {
		ni, nj := i+d[0], j+d[1]
		if inBounds(n, ni, nj) {
			out = append(out, [2]int{ni, nj})
		}
	}
	return out
}

// NeighbourCount returns len(Neighbours(n, i, j)) without allocating.
func NeighbourCount(n, i, j int) int {
	count := 0
	for _, d := range neighbourOffsets {
		if inBounds(n, i+d[0], j+d[1]) {
			count++
		}
	}
	return count
}

func inBounds(n, i, j int) bool {
	return i >= 0 && i < n && j >= 0 && j < n
}
