package demprep

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"demprep/internal/fsutil"
)

// TileOptions controls how a raster is sliced and where its tiles are stored.
type TileOptions struct {
	// Side length of every tile, in pixels.
	Size int
	// Artifact name prefix; tiles are named {BaseName}_{index}.{Ext}.
	BaseName string
	Dir      string
	Ext      string
	// MaxTilesPerSource caps how many tiles are persisted. Zero means no cap.
	MaxTilesPerSource int
}

// ArtifactOutcome records the persistence result of one artifact.
type ArtifactOutcome struct {
	Path string
	Err  error
}

// TileReport summarises one SliceDEM call.
type TileReport struct {
	// Tiles available in the cropped raster.
	Available int
	Written   []string
	Failed    []ArtifactOutcome
	// Tiles not persisted because of MaxTilesPerSource.
	Capped int
}

// Tile crops raster to a multiple of size and partitions it into row-major,
// non-overlapping size×size tiles. Each tile owns its data.
func Tile(raster *mat.Dense, size int) ([]*mat.Dense, error) {
	cropped, err := CropToMultiple(raster, size)
	if err != nil {
		return nil, err
	}
	if cropped == nil {
		return nil, nil
	}
	gridRows, gridCols := gridDims(cropped, size)
	tiles := make([]*mat.Dense, 0, gridRows*gridCols)
	for k := 0; k < gridRows*gridCols; k++ {
		tiles = append(tiles, tileAt(cropped, size, k, gridCols))
	}
	return tiles, nil
}

// TilePath returns the artifact path of the tile with the given 1-based index.
func TilePath(dir, baseName string, index int, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d.%s", baseName, index, ext))
}

// SliceDEM tiles raster and persists each tile as it is produced. A tile that
// fails to persist is logged and reported; the remaining tiles are still written.
func SliceDEM(raster *mat.Dense, opts TileOptions, fsys fsutil.FileSystem) (*TileReport, error) {
	if opts.MaxTilesPerSource < 0 {
		return nil, fmt.Errorf("max tiles per source %d: %w", opts.MaxTilesPerSource, ErrInvalidSize)
	}
	ext := opts.Ext
	if ext == "" {
		ext = DefaultTensorExt
	}
	cropped, err := CropToMultiple(raster, opts.Size)
	if err != nil {
		return nil, err
	}
	report := &TileReport{}
	if cropped == nil {
		return report, nil
	}
	if err := fsys.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating tile dir %s: %w: %w", opts.Dir, ErrStorageWrite, err)
	}

	gridRows, gridCols := gridDims(cropped, opts.Size)
	report.Available = gridRows * gridCols
	limit := report.Available
	if opts.MaxTilesPerSource > 0 && opts.MaxTilesPerSource < limit {
		limit = opts.MaxTilesPerSource
		report.Capped = report.Available - limit
	}

	for k := 0; k < limit; k++ {
		path := TilePath(opts.Dir, opts.BaseName, k+1, ext)
		if err := writeTensor(fsys, path, TileTensor(tileAt(cropped, opts.Size, k, gridCols))); err != nil {
			Logger.Error().Err(err).Str("tile", path).Msg("tile could not be saved, or the file only contains partial data")
			report.Failed = append(report.Failed, ArtifactOutcome{Path: path, Err: err})
			continue
		}
		report.Written = append(report.Written, path)
	}
	if report.Capped > 0 {
		Logger.Warn().Int("capped", report.Capped).Int("limit", limit).Str("source", opts.BaseName).Msg("tile cap reached")
	}
	return report, nil
}

func gridDims(cropped *mat.Dense, size int) (int, int) {
	h, w := cropped.Dims()
	return h / size, w / size
}

func tileAt(cropped *mat.Dense, size, k, gridCols int) *mat.Dense {
	r := (k / gridCols) * size
	c := (k % gridCols) * size
	return mat.DenseCopyOf(cropped.Slice(r, r+size, c, c+size))
}
