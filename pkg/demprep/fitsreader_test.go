package demprep

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFits assembles a minimal primary-HDU FITS file. extra cards are
// inserted verbatim after NAXIS2.
func buildFits(t *testing.T, bitpix, width, height int, extra []string, data any) []byte {
	t.Helper()
	var hdr bytes.Buffer
	card := func(s string) { fmt.Fprintf(&hdr, "%-80s", s) }
	card("SIMPLE  =                    T")
	card(fmt.Sprintf("BITPIX  = %20d", bitpix))
	card("NAXIS   =                    2")
	card(fmt.Sprintf("NAXIS1  = %20d", width))
	card(fmt.Sprintf("NAXIS2  = %20d", height))
	for _, c := range extra {
		card(c)
	}
	card("END")
	for hdr.Len()%2880 != 0 {
		hdr.WriteByte(' ')
	}

	var body bytes.Buffer
	require.NoError(t, binary.Write(&body, binary.BigEndian, data))
	for body.Len()%2880 != 0 {
		body.WriteByte(0)
	}
	return append(hdr.Bytes(), body.Bytes()...)
}

func TestReadFitsFloat32(t *testing.T) {
	data := []float32{-1200.5, 0, 350.25, 8000, -3.5, 12}
	raw := buildFits(t, -32, 3, 2, []string{
		"OBJECT  = 'Jezero  '           / target",
		"BUNIT   = 'm       '",
	}, data)

	fr, err := ReadFitsFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, fr.Width)
	assert.Equal(t, 2, fr.Height)
	assert.Equal(t, -32, fr.BitPix)
	assert.False(t, fr.HasNoData)
	require.Len(t, fr.Data, 6)
	for i, v := range data {
		assert.Equal(t, float64(v), fr.Data[i])
	}
	assert.Equal(t, "Jezero", fr.Metadata.Target())
	assert.Equal(t, "m", fr.Metadata.Unit())
}

func TestReadFitsScaledIntegers(t *testing.T) {
	data := []int16{-32768, 0, 100, 32767}
	raw := buildFits(t, 16, 2, 2, []string{
		"BZERO   =                 -500.",
		"BSCALE  =                  0.5",
		"BLANK   =               -32768",
	}, data)

	fr, err := ReadFitsFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, []float64{-16884, -500, -450, 15883.5}, fr.Data)
	assert.True(t, fr.HasNoData)
	assert.Equal(t, -16884.0, fr.NoData)

	scale, ok := fr.Metadata.GetDouble("bscale")
	assert.True(t, ok)
	assert.Equal(t, 0.5, scale)
	blank, ok := fr.Metadata.GetInt("BLANK")
	assert.True(t, ok)
	assert.Equal(t, -32768, blank)
}

func TestReadFitsFloat64KeepsPrecision(t *testing.T) {
	data := []float64{math.Pi, -2.5e6}
	fr, err := ReadFitsFromBytes(buildFits(t, -64, 2, 1, nil, data))
	require.NoError(t, err)
	assert.Equal(t, data, fr.Data)
}

func TestReadFitsErrors(t *testing.T) {
	truncated := buildFits(t, 16, 4, 4, nil, []int16{1, 2})[:2880+4]
	tests := map[string][]byte{
		"not fits":       []byte("SIMPLE"),
		"truncated data": truncated,
		"bitpix 24":      buildFits(t, 24, 1, 1, nil, []uint8{1, 2, 3}),
		"negative width": buildFits(t, -32, -4, 2, nil, []float32{0}),
		"negative rows":  buildFits(t, -32, 4, -2, nil, []float32{0}),
		"zero width":     buildFits(t, -32, 0, 2, nil, []float32{0}),
		"huge header":    buildFits(t, -32, 1<<31, 1<<31, nil, []float32{0}),
		"too many rows":  buildFits(t, 8, 1<<15, 1<<14, nil, []uint8{0}),
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { _, err = ReadFitsFromBytes(raw) })
			assert.ErrorIs(t, err, ErrSourceUnavailable)
		})
	}

	_, err := ReadFits("does/not/exist.fits")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}
