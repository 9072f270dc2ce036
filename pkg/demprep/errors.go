package demprep

import "errors"

var (
	// ErrInvalidSize indicates a non-positive tile size, canvas size, batch size or shape parameter.
	ErrInvalidSize = errors.New("demprep: size must be positive")
	// ErrShapeMismatch indicates a mask that is not square or whose pixel buffer disagrees with its dimensions.
	ErrShapeMismatch = errors.New("demprep: mask must be square with rows*cols pixels")
	// ErrStorageWrite indicates an artifact (tile, mask, weight, preview) could not be persisted.
	ErrStorageWrite = errors.New("demprep: artifact write failed")
	// ErrSourceUnavailable indicates the input raster could not be opened or decoded.
	ErrSourceUnavailable = errors.New("demprep: raster source unavailable")
	// ErrLookupTableMissing indicates the lookup table could not be found or parsed.
	ErrLookupTableMissing = errors.New("demprep: lookup table missing or unreadable")
	// ErrUnknownShape indicates a shape id that is not part of the catalog.
	ErrUnknownShape = errors.New("demprep: unknown shape id")
	// ErrBorderTooWide indicates border trimming would leave no columns.
	ErrBorderTooWide = errors.New("demprep: border trim leaves no columns")
)
