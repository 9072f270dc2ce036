package demprep

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/mat"

	"demprep/internal/fsutil"
)

// DefaultThumbSize is the side length of each panel on a catalog sheet.
const DefaultThumbSize = 128

const (
	previewGap    = 8
	previewLabelH = 20
)

var (
	previewBackground = color.RGBA{0, 0, 0, 255}
	previewText       = color.RGBA{220, 220, 220, 255}
	previewHole       = color.RGBA{90, 90, 90, 255}
)

// RenderMaskPreview draws the mask next to its weight map, scaled to thumb
// pixels per panel, with label underneath.
func RenderMaskPreview(m *Mask, weights mat.Matrix, label string, thumb int) (*image.RGBA, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	if thumb <= 0 {
		return nil, fmt.Errorf("thumb size %d: %w", thumb, ErrInvalidSize)
	}
	if r, c := weights.Dims(); r != m.Rows || c != m.Cols {
		return nil, fmt.Errorf("weights %dx%d for mask %dx%d: %w", r, c, m.Rows, m.Cols, ErrShapeMismatch)
	}

	imgW := 2*thumb + 3*previewGap
	imgH := thumb + 2*previewGap + previewLabelH
	img := image.NewRGBA(image.Rect(0, 0, imgW, imgH))
	fill(img, previewBackground)

	drawPanel(img, m, weights, label, previewGap, previewGap, thumb)
	return img, nil
}

// RenderCatalogSheet lays out every successfully built entry as a row of
// mask and weight panels.
func RenderCatalogSheet(entries []EntryOutcome, thumb int) (*image.RGBA, error) {
	if thumb <= 0 {
		return nil, fmt.Errorf("thumb size %d: %w", thumb, ErrInvalidSize)
	}
	var rows []EntryOutcome
	for _, e := range entries {
		if e.Mask != nil && e.Weights != nil {
			rows = append(rows, e)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no masks to preview")
	}

	rowH := thumb + previewGap + previewLabelH
	imgW := 2*thumb + 3*previewGap
	imgH := len(rows)*rowH + previewGap
	img := image.NewRGBA(image.Rect(0, 0, imgW, imgH))
	fill(img, previewBackground)

	for i, e := range rows {
		label := fmt.Sprintf("%s  occluded=%d", e.ID, e.Mask.OccludedCount())
		drawPanel(img, e.Mask, e.Weights, label, previewGap, previewGap+i*rowH, thumb)
	}
	return img, nil
}

// WritePreview encodes img as PNG and stores it at path.
func WritePreview(fsys fsutil.FileSystem, path string, img image.Image) error {
	data, err := EncodePNG(img)
	if err != nil {
		return fmt.Errorf("writing %s: %w: %w", path, ErrStorageWrite, err)
	}
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("writing %s: %w: %w", path, ErrStorageWrite, err)
	}
	if err := fsys.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w: %w", path, ErrStorageWrite, err)
	}
	return nil
}

// WriteCatalogPreviews stores one preview per built entry plus catalog.png in
// dir. Individual failures are reported, not returned.
func WriteCatalogPreviews(report *CatalogReport, dir string, thumb int, fsys fsutil.FileSystem) []ArtifactOutcome {
	var out []ArtifactOutcome
	for _, e := range report.Entries {
		if e.Mask == nil || e.Weights == nil {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s.png", e.ID))
		img, err := RenderMaskPreview(e.Mask, e.Weights, string(e.ID), thumb)
		if err == nil {
			err = WritePreview(fsys, path, img)
		}
		out = append(out, ArtifactOutcome{Path: path, Err: err})
	}

	path := filepath.Join(dir, "catalog.png")
	sheet, err := RenderCatalogSheet(report.Entries, thumb)
	if err == nil {
		err = WritePreview(fsys, path, sheet)
	}
	out = append(out, ArtifactOutcome{Path: path, Err: err})

	for _, o := range out {
		if o.Err != nil {
			Logger.Warn().Err(o.Err).Str("preview", o.Path).Msg("preview not written")
		}
	}
	return out
}

func drawPanel(img *image.RGBA, m *Mask, weights mat.Matrix, label string, x0, y0, thumb int) {
	n := m.Rows
	for y := 0; y < thumb; y++ {
		i := y * n / thumb
		for x := 0; x < thumb; x++ {
			j := x * n / thumb
			if m.At(i, j) == Visible {
				img.Set(x0+x, y0+y, color.RGBA{255, 255, 255, 255})
				img.Set(x0+thumb+previewGap+x, y0+y, weightColor(weights.At(i, j)))
			} else {
				img.Set(x0+x, y0+y, color.RGBA{30, 30, 30, 255})
				img.Set(x0+thumb+previewGap+x, y0+y, previewHole)
			}
		}
	}
	drawText(img, basicfont.Face7x13, label, x0, y0+thumb+14, previewText)
}

// weightColor maps the weight of a visible pixel onto a dark blue -> green ->
// yellow ramp.
func weightColor(w float64) color.RGBA {
	t := math.Max(0, math.Min(w, 1))

	var r, g, b uint8
	switch {
	case t <= 0.5:
		s := t / 0.5
		r = 10
		g = uint8(20 + s*160)
		b = uint8(80 - s*40)
	default:
		s := (t - 0.5) / 0.5
		r = uint8(10 + s*235)
		g = uint8(180 + s*55)
		b = uint8(40 - s*30)
	}
	return color.RGBA{r, g, b, 255}
}

func fill(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// drawText draws a string with its baseline at (x, y).
func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
