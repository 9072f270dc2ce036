//go:build !purego && !js

package demprep

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

var registerDrivers sync.Once

// openImageRaster reads GDAL datasets (GeoTIFF, PDS4, VRT...) with godal and
// plain image files with OpenCV.
func openImageRaster(path string) (*mat.Dense, *RasterInfo, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp":
		return openCVRaster(path)
	}
	return openGDALRaster(path)
}

func openGDALRaster(path string) (*mat.Dense, *RasterInfo, error) {
	registerDrivers.Do(godal.RegisterAll)

	ds, err := godal.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer ds.Close()

	st := ds.Structure()
	bands := ds.Bands()
	if len(bands) == 0 || st.SizeX == 0 || st.SizeY == 0 {
		return nil, nil, fmt.Errorf("dataset has no raster data (%dx%d, %d bands)", st.SizeX, st.SizeY, len(bands))
	}

	buf := make([]float64, st.SizeX*st.SizeY)
	if err := bands[0].Read(0, 0, buf, st.SizeX, st.SizeY); err != nil {
		return nil, nil, fmt.Errorf("reading band 1: %w", err)
	}

	info := &RasterInfo{Width: st.SizeX, Height: st.SizeY, Bands: st.NBands}
	info.NoData, info.HasNoData = bands[0].NoData()
	return mat.NewDense(st.SizeY, st.SizeX, buf), info, nil
}

func openCVRaster(path string) (*mat.Dense, *RasterInfo, error) {
	src := gocv.IMRead(path, gocv.IMReadUnchanged)
	if src.Empty() {
		return nil, nil, fmt.Errorf("could not load image: %s", path)
	}
	defer src.Close()

	bands := src.Channels()
	if bands > 1 {
		gray := gocv.NewMat()
		defer gray.Close()
		code := gocv.ColorBGRToGray
		if bands == 4 {
			code = gocv.ColorBGRAToGray
		}
		gocv.CvtColor(src, &gray, code)
		gray.CopyTo(&src)
	}

	floatMat := gocv.NewMat()
	defer floatMat.Close()
	src.ConvertTo(&floatMat, gocv.MatTypeCV64F)

	data, err := floatMat.DataPtrFloat64()
	if err != nil {
		return nil, nil, fmt.Errorf("reading pixels: %w", err)
	}
	w, h := floatMat.Cols(), floatMat.Rows()
	pixels := make([]float64, w*h)
	copy(pixels, data[:w*h])

	return mat.NewDense(h, w, pixels), &RasterInfo{Width: w, Height: h, Bands: bands}, nil
}
