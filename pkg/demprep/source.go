package demprep

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// OpenRaster decodes the first band of the elevation raster at path. FITS
// files are read directly; every other format goes through the build's
// image backend. Any failure wraps ErrSourceUnavailable.
func OpenRaster(path string) (*mat.Dense, *RasterInfo, error) {
	var (
		raster *mat.Dense
		info   *RasterInfo
		err    error
	)
	if isFitsPath(path) {
		raster, info, err = openFitsRaster(path)
	} else {
		raster, info, err = openImageRaster(path)
	}
	if err != nil {
		if !errors.Is(err, ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	info.Path = path
	Logger.Debug().Str("source", path).Int("width", info.Width).Int("height", info.Height).Int("bands", info.Bands).Msg("raster decoded")
	return raster, info, nil
}

// LoadDEM opens a raster and removes its void border columns.
func LoadDEM(path string, border int) (*mat.Dense, *RasterInfo, error) {
	raster, info, err := OpenRaster(path)
	if err != nil {
		return nil, nil, err
	}
	trimmed, err := TrimBorderColumns(raster, border)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return trimmed, info, nil
}

// SourceBaseName is the tile name prefix derived from a source path.
func SourceBaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isFitsPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fits", ".fit", ".fts":
		return true
	}
	return false
}

func openFitsRaster(path string) (*mat.Dense, *RasterInfo, error) {
	fr, err := ReadFits(path)
	if err != nil {
		return nil, nil, err
	}
	return fitsToDense(fr)
}

func fitsToDense(fr *FitsRaster) (*mat.Dense, *RasterInfo, error) {
	info := &RasterInfo{
		Width:     fr.Width,
		Height:    fr.Height,
		Bands:     1,
		NoData:    fr.NoData,
		HasNoData: fr.HasNoData,
	}
	return mat.NewDense(fr.Height, fr.Width, fr.Data), info, nil
}
