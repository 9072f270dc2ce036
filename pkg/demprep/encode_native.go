//go:build !purego && !js

package demprep

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// EncodePNG encodes img as PNG through OpenCV.
func EncodePNG(img image.Image) ([]byte, error) {
	m, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("converting preview: %w", err)
	}
	defer m.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, m)
	if err != nil {
		return nil, fmt.Errorf("encoding preview: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
