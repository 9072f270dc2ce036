// Package demprep prepares inpainting training data from planetary elevation
// rasters: it tiles a DEM, synthesises a catalog of occlusion masks with their
// per-pixel confidence weights, and assembles the lookup table that pairs them.
package demprep

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// DefaultBorderColumns is the number of void columns removed from each side of
// an input DEM before tiling.
const DefaultBorderColumns = 50

// RasterInfo describes a decoded elevation raster.
type RasterInfo struct {
	Path      string
	Width     int
	Height    int
	Bands     int
	NoData    float64
	HasNoData bool
}

// RasterStats summarises the elevation samples of a raster.
type RasterStats struct {
	Min    float64
	Max    float64
	Median float64
	MAD    float64
	Count  int
}

// TrimBorderColumns drops border columns from both sides of the width axis.
// The result is a view sharing storage with raster.
func TrimBorderColumns(raster *mat.Dense, border int) (*mat.Dense, error) {
	if border < 0 {
		return nil, fmt.Errorf("border %d: %w", border, ErrInvalidSize)
	}
	h, w := raster.Dims()
	if border == 0 {
		return raster, nil
	}
	if w-2*border <= 0 {
		return nil, fmt.Errorf("width %d with border %d: %w", w, border, ErrBorderTooWide)
	}
	return raster.Slice(0, h, border, w-border).(*mat.Dense), nil
}

// CropToMultiple truncates trailing rows and columns so both dimensions are
// divisible by size. It returns nil when nothing remains.
func CropToMultiple(raster *mat.Dense, size int) (*mat.Dense, error) {
	if size <= 0 {
		return nil, fmt.Errorf("tile size %d: %w", size, ErrInvalidSize)
	}
	h, w := raster.Dims()
	hr := h - h%size
	wr := w - w%size
	if hr == 0 || wr == 0 {
		return nil, nil
	}
	return raster.Slice(0, hr, 0, wr).(*mat.Dense), nil
}

// ComputeRasterStats computes min, max, median and the scaled median absolute
// deviation over every finite sample, skipping noData when hasNoData is set.
func ComputeRasterStats(raster mat.Matrix, noData float64, hasNoData bool) RasterStats {
	h, w := raster.Dims()
	values := make([]float64, 0, h*w)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			v := raster.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if hasNoData && v == noData {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return RasterStats{Min: math.NaN(), Max: math.NaN(), Median: math.NaN(), MAD: math.NaN()}
	}
	median, mad := medianMAD(values)
	return RasterStats{
		Min:    lo,
		Max:    hi,
		Median: median,
		MAD:    mad,
		Count:  len(values),
	}
}

// medianMAD sorts values in place.
func medianMAD(values []float64) (float64, float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	sort.Float64s(values)
	median := middle(values)

	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - median)
	}
	sort.Float64s(deviations)

	return median, 1.4826 * middle(deviations)
}

func middle(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2.0
	}
	return sorted[n/2]
}
