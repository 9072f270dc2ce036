package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demprep/pkg/demprep"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := fmt.Sprintf(`
canvas_size: 16
tile_size: 8
border_columns: 2
max_tiles_per_source: 3
batch_size: 4
workers: 2
preview_thumb: 0
dirs:
  tiles: %[1]s/tiles
  masks: %[1]s/masks
  weights: %[1]s/weights
lookup_path: %[1]s/lookup.csv
manifest_path: %[1]s/manifest.db
shapes:
  tl_edge: true
  tr_edge: false
  tl_strip: false
  br_edge: false
  c_strip: false
  l_strip: false
  h_strip: false
  t_strip: true
log_level: error
`, dir)
	path := filepath.Join(dir, "demprep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

// writeFitsDEM writes a height x width BITPIX -32 FITS ramp to dir/name.
func writeFitsDEM(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	var buf bytes.Buffer
	card := func(s string) { fmt.Fprintf(&buf, "%-80s", s) }
	card("SIMPLE  =                    T")
	card("BITPIX  =                  -32")
	card("NAXIS   =                    2")
	card(fmt.Sprintf("NAXIS1  = %20d", width))
	card(fmt.Sprintf("NAXIS2  = %20d", height))
	card("END")
	for buf.Len()%2880 != 0 {
		buf.WriteByte(' ')
	}
	data := make([]float32, width*height)
	for i := range data {
		data[i] = float32(i)
	}
	require.NoError(t, binary.Write(&buf, binary.BigEndian, data))
	for buf.Len()%2880 != 0 {
		buf.WriteByte(0)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func readLookupLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\r\n"), "\r\n")
}

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func TestRunUsage(t *testing.T) {
	err := run(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: demprep")

	dir := t.TempDir()
	err = run([]string{"explode", "-config", writeConfig(t, dir)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "explode"`)
}

func TestRunTileWithoutInput(t *testing.T) {
	dir := t.TempDir()
	err := run([]string{"tile", "-config", writeConfig(t, dir)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input DEM")
}

func TestRunRejectsBadBatch(t *testing.T) {
	dir := t.TempDir()
	err := run([]string{"trim", "-config", writeConfig(t, dir), "-batch", "-3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")
}

func TestRunMasksLookupTrim(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir)
	out := captureStdout(t)

	require.NoError(t, run([]string{"masks", "-config", configPath}))
	for _, name := range []string{"masks/tl_edge.tensor", "weights/tl_edge_w.tensor", "masks/t_strip.tensor", "weights/t_strip_w.tensor"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	_, err := os.Stat(filepath.Join(dir, "masks/circle.tensor"))
	assert.True(t, os.IsNotExist(err))
	assert.Contains(t, out.String(), "=== Mask Catalog")

	tiles := filepath.Join(dir, "tiles")
	require.NoError(t, os.MkdirAll(tiles, 0o755))
	for i := 1; i <= 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(tiles, fmt.Sprintf("dem_%d.tensor", i)), []byte("x"), 0o644))
	}

	require.NoError(t, run([]string{"lookup", "-config", configPath}))
	data, err := os.ReadFile(filepath.Join(dir, "lookup.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\r\n"), "\r\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "dem_1.tensor,tl_edge.tensor,tl_edge_w.tensor", lines[0])
	assert.Equal(t, "dem_1.tensor,t_strip.tensor,t_strip_w.tensor", lines[1])
	assert.Equal(t, "dem_3.tensor,t_strip.tensor,t_strip_w.tensor", lines[5])

	require.NoError(t, run([]string{"trim", "-config", configPath}))
	data, err = os.ReadFile(filepath.Join(dir, "lookup.csv"))
	require.NoError(t, err)
	lines = strings.Split(strings.TrimRight(string(data), "\r\n"), "\r\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, out.String(), "Trim: 6 -> 4 rows")

	_, err = os.Stat(filepath.Join(dir, "manifest.db"))
	assert.NoError(t, err)
}

func TestRunTileCapsTiles(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir)
	// 28 columns less a 2-column border each side leave 20x24: 2x3 tiles of 8.
	dem := writeFitsDEM(t, dir, "jezero.fits", 28, 20)
	out := captureStdout(t)

	require.NoError(t, run([]string{"tile", "-config", configPath, dem}))
	for i := 1; i <= 3; i++ {
		_, err := os.Stat(filepath.Join(dir, "tiles", fmt.Sprintf("jezero_%d.tensor", i)))
		assert.NoError(t, err, i)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "tiles"))
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	assert.Contains(t, out.String(), "After trim:      24 x 20")
	assert.Contains(t, out.String(), "Tiles available: 6")
	assert.Contains(t, out.String(), "Tiles written:   3")
	assert.Contains(t, out.String(), "Tiles capped:    3")
	_, err = os.Stat(filepath.Join(dir, "manifest.db"))
	assert.NoError(t, err)
}

func TestRunTileUsesConfigInput(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir)
	dem := writeFitsDEM(t, dir, "gale.fits", 12, 8)
	f, err := os.OpenFile(configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = fmt.Fprintf(f, "input: %s\n", dem)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	captureStdout(t)

	require.NoError(t, run([]string{"tile", "-config", configPath}))
	_, err = os.Stat(filepath.Join(dir, "tiles", "gale_1.tensor"))
	assert.NoError(t, err)
}

func TestRunTileUnreadableSourceIsFatal(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir)
	good := writeFitsDEM(t, dir, "good.fits", 12, 8)
	corrupt := filepath.Join(dir, "corrupt.fits")
	require.NoError(t, os.WriteFile(corrupt, []byte("SIMPLE  =  not a raster"), 0o644))
	captureStdout(t)

	err := run([]string{"tile", "-config", configPath, corrupt, good})
	require.Error(t, err)
	assert.True(t, errors.Is(err, demprep.ErrSourceUnavailable), err)
	_, statErr := os.Stat(filepath.Join(dir, "tiles", "good_1.tensor"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunAll(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir)
	dem := writeFitsDEM(t, dir, "dem.fits", 28, 20)
	out := captureStdout(t)

	require.NoError(t, run([]string{"all", "-config", configPath, "-input", dem}))

	lines := readLookupLines(t, filepath.Join(dir, "lookup.csv"))
	require.Len(t, lines, 4)
	assert.Equal(t, []string{
		"dem_1.tensor,tl_edge.tensor,tl_edge_w.tensor",
		"dem_1.tensor,t_strip.tensor,t_strip_w.tensor",
		"dem_2.tensor,tl_edge.tensor,tl_edge_w.tensor",
		"dem_2.tensor,t_strip.tensor,t_strip_w.tensor",
	}, lines)
	assert.Contains(t, out.String(), "=== Tiling Results")
	assert.Contains(t, out.String(), "=== Mask Catalog")
	assert.Contains(t, out.String(), "Lookup: 3 tiles x 2 masks = 6 rows")
	assert.Contains(t, out.String(), "Trim: 6 -> 4 rows (batch size 4)")
}
