//go:build purego || js

package demprep

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"
)

// openImageRaster decodes TIFF, PNG, JPEG and BMP rasters with the image
// package. 16-bit grey samples are kept as-is; colour images become luminance.
func openImageRaster(path string) (*mat.Dense, *RasterInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding image: %w", err)
	}
	raster, bands := rasterFromImage(img)
	h, w := raster.Dims()
	return raster, &RasterInfo{Width: w, Height: h, Bands: bands}, nil
}

func rasterFromImage(img image.Image) (*mat.Dense, int) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]float64, w*h)
	bands := 3

	switch src := img.(type) {
	case *image.Gray16:
		bands = 1
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pixels[y*w+x] = float64(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
	case *image.Gray:
		bands = 1
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pixels[y*w+x] = float64(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
				pixels[y*w+x] = float64(g.Y)
			}
		}
	}
	return mat.NewDense(h, w, pixels), bands
}
