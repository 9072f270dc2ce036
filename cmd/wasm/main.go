//go:build js && wasm

package main

import (
	"syscall/js"

	"gonum.org/v1/gonum/mat"

	"demprep/pkg/demprep"
)

func main() {
	js.Global().Set("listShapes", js.FuncOf(listShapes))
	js.Global().Set("renderMask", js.FuncOf(renderMask))
	js.Global().Set("maskStats", js.FuncOf(maskStats))
	js.Global().Set("analyzeDEM", js.FuncOf(analyzeDEM))
	select {} // block forever
}

func listShapes(this js.Value, args []js.Value) interface{} {
	defaults := demprep.DefaultSelection()
	entries := demprep.Catalog()
	jsShapes := make([]interface{}, len(entries))
	for i, e := range entries {
		jsShapes[i] = map[string]interface{}{
			"id":      string(e.ID),
			"label":   e.Label,
			"default": defaults[e.ID],
		}
	}
	return js.ValueOf(jsShapes)
}

// renderMask returns the PNG preview (mask next to its weight map) of one
// catalog shape as a Uint8Array, or null on failure.
func renderMask(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.Null()
	}
	m, w, err := buildShape(args[0].String(), args[1].Int())
	if err != nil {
		return js.Null()
	}
	thumb := demprep.DefaultThumbSize
	if len(args) >= 3 && args[2].Type() == js.TypeNumber {
		thumb = args[2].Int()
	}
	img, err := demprep.RenderMaskPreview(m, w, args[0].String(), thumb)
	if err != nil {
		return js.Null()
	}
	pngBytes, err := demprep.EncodePNG(img)
	if err != nil {
		return js.Null()
	}

	uint8Array := js.Global().Get("Uint8Array").New(len(pngBytes))
	js.CopyBytesToJS(uint8Array, pngBytes)
	return uint8Array
}

func maskStats(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("usage: maskStats(shapeId, canvas)")
	}
	m, w, err := buildShape(args[0].String(), args[1].Int())
	if err != nil {
		return errorResult(err.Error())
	}
	n := m.Size()
	visibleSum, boundary := 0.0, 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if m.At(i, j) == demprep.Visible {
				v := w.At(i, j)
				visibleSum += v
				if v > 0 {
					boundary++
				}
			}
		}
	}
	return js.ValueOf(map[string]interface{}{
		"canvas":         n,
		"occluded":       m.OccludedCount(),
		"boundaryPixels": boundary,
		"visibleWeight":  visibleSum,
	})
}

// analyzeDEM parses FITS bytes and reports raster statistics together with
// the tile grid produced by the given tile size and border.
func analyzeDEM(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("usage: analyzeDEM(fileBytes, tileSize, border)")
	}
	jsBytes := args[0]
	length := jsBytes.Get("length").Int()
	fileBytes := make([]byte, length)
	js.CopyBytesToGo(fileBytes, jsBytes)

	tileSize := args[1].Int()
	border := demprep.DefaultBorderColumns
	if len(args) >= 3 && args[2].Type() == js.TypeNumber {
		border = args[2].Int()
	}

	fr, err := demprep.ReadFitsFromBytes(fileBytes)
	if err != nil {
		return errorResult("FITS parse error: " + err.Error())
	}
	raster := mat.NewDense(fr.Height, fr.Width, fr.Data)
	trimmed, err := demprep.TrimBorderColumns(raster, border)
	if err != nil {
		return errorResult(err.Error())
	}
	tiles, err := demprep.Tile(trimmed, tileSize)
	if err != nil {
		return errorResult(err.Error())
	}
	stats := demprep.ComputeRasterStats(trimmed, fr.NoData, fr.HasNoData)
	h, w := trimmed.Dims()

	return js.ValueOf(map[string]interface{}{
		"width":    fr.Width,
		"height":   fr.Height,
		"trimmedW": w,
		"trimmedH": h,
		"tiles":    len(tiles),
		"min":      stats.Min,
		"max":      stats.Max,
		"median":   stats.Median,
		"mad":      stats.MAD,
		"unit":     fr.Metadata.Unit(),
	})
}

func buildShape(id string, canvas int) (*demprep.Mask, *mat.Dense, error) {
	entry, err := demprep.LookupShape(demprep.ShapeID(id))
	if err != nil {
		return nil, nil, err
	}
	m, err := entry.Generate(canvas)
	if err != nil {
		return nil, nil, err
	}
	w, err := demprep.DeriveWeights(m)
	if err != nil {
		return nil, nil, err
	}
	return m, w, nil
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{
		"error": msg,
	})
}
