package demprep

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"demprep/internal/fsutil"
)

// LookupRow pairs one tile artifact with one mask and its weights.
type LookupRow struct {
	Tile   string
	Mask   string
	Weight string
}

// AssembleLookup cross-joins tile ids with the enabled catalog entries. Rows
// are grouped by tile, and within a tile follow catalog order.
func AssembleLookup(tileIDs []string, sel Selection, ext string) []LookupRow {
	if ext == "" {
		ext = DefaultTensorExt
	}
	enabled := sel.Enabled()
	rows := make([]LookupRow, 0, len(tileIDs)*len(enabled))
	for _, tile := range tileIDs {
		for _, e := range enabled {
			rows = append(rows, LookupRow{
				Tile:   tile,
				Mask:   MaskName(e.ID, ext),
				Weight: WeightName(e.ID, ext),
			})
		}
	}
	return rows
}

// TrimToBatch returns the longest prefix of rows whose length is a multiple of batch.
func TrimToBatch(rows []LookupRow, batch int) ([]LookupRow, error) {
	if batch <= 0 {
		return nil, fmt.Errorf("batch size %d: %w", batch, ErrInvalidSize)
	}
	return rows[:len(rows)-len(rows)%batch], nil
}

// WriteLookup writes rows as three-column CSV without a header.
func WriteLookup(w io.Writer, rows []LookupRow) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	for _, r := range rows {
		if err := cw.Write([]string{r.Tile, r.Mask, r.Weight}); err != nil {
			return fmt.Errorf("writing lookup row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadLookup parses the CSV produced by WriteLookup.
func ReadLookup(r io.Reader) ([]LookupRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	var rows []LookupRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading lookup: %w: %w", ErrLookupTableMissing, err)
		}
		rows = append(rows, LookupRow{Tile: rec[0], Mask: rec[1], Weight: rec[2]})
	}
}

// WriteLookupFile writes rows to path, creating its directory.
func WriteLookupFile(fsys fsutil.FileSystem, path string, rows []LookupRow) error {
	var buf bytes.Buffer
	if err := WriteLookup(&buf, rows); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w: %w", dir, ErrStorageWrite, err)
		}
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w: %w", path, ErrStorageWrite, err)
	}
	return nil
}

// ReadLookupFile loads the lookup table at path.
func ReadLookupFile(fsys fsutil.FileSystem, path string) ([]LookupRow, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w: %w", path, ErrLookupTableMissing, err)
	}
	return ReadLookup(bytes.NewReader(data))
}

// TrimLookupFile truncates the table at path to a multiple of batch and
// rewrites it in place. It returns the row counts before and after.
func TrimLookupFile(fsys fsutil.FileSystem, path string, batch int) (int, int, error) {
	if batch <= 0 {
		return 0, 0, fmt.Errorf("batch size %d: %w", batch, ErrInvalidSize)
	}
	rows, err := ReadLookupFile(fsys, path)
	if err != nil {
		return 0, 0, err
	}
	trimmed, err := TrimToBatch(rows, batch)
	if err != nil {
		return 0, 0, err
	}
	if len(trimmed) == len(rows) {
		return len(rows), len(rows), nil
	}
	if err := WriteLookupFile(fsys, path, trimmed); err != nil {
		return 0, 0, err
	}
	Logger.Info().Int("batch", batch).Int("before", len(rows)).Int("after", len(trimmed)).Msg("dataset trimmed to fit batch size")
	return len(rows), len(trimmed), nil
}

// ListTileIDs returns the tile artifact names in dir with the given extension,
// ordered by source name and then by numeric tile index.
func ListTileIDs(fsys fsutil.FileSystem, dir, ext string) ([]string, error) {
	if ext == "" {
		ext = DefaultTensorExt
	}
	names, err := fsys.ListFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("listing tiles in %s: %w", dir, err)
	}
	suffix := "." + ext
	var ids []string
	for _, name := range names {
		if strings.HasSuffix(name, suffix) {
			ids = append(ids, name)
		}
	}
	sort.SliceStable(ids, func(a, b int) bool {
		baseA, idxA := splitTileName(ids[a], suffix)
		baseB, idxB := splitTileName(ids[b], suffix)
		if baseA != baseB {
			return baseA < baseB
		}
		return idxA < idxB
	})
	return ids, nil
}

// splitTileName splits "{base}_{index}{suffix}" into base and index. Names
// without a numeric index sort after indexed ones of the same base.
func splitTileName(name, suffix string) (string, int) {
	stem := strings.TrimSuffix(name, suffix)
	cut := strings.LastIndexByte(stem, '_')
	if cut < 0 {
		return stem, int(^uint(0) >> 1)
	}
	idx, err := strconv.Atoi(stem[cut+1:])
	if err != nil {
		return stem, int(^uint(0) >> 1)
	}
	return stem[:cut], idx
}
