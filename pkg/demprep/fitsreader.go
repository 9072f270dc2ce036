package demprep

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// FitsMetadata holds parsed FITS header key-value pairs.
type FitsMetadata struct {
	Headers map[string]string
}

// NewFitsMetadata creates an empty FitsMetadata.
func NewFitsMetadata() *FitsMetadata {
	return &FitsMetadata{Headers: make(map[string]string)}
}

func (m *FitsMetadata) GetString(key string) string {
	if v, ok := m.Headers[strings.ToUpper(key)]; ok {
		return v
	}
	return ""
}

func (m *FitsMetadata) GetDouble(key string) (float64, bool) {
	v, ok := m.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

func (m *FitsMetadata) GetInt(key string) (int, bool) {
	v, ok := m.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return i, true
}

func (m *FitsMetadata) Target() string { return m.GetString("OBJECT") }
func (m *FitsMetadata) Unit() string   { return m.GetString("BUNIT") }

// FitsRaster holds the physical sample values of a FITS primary image.
type FitsRaster struct {
	// Samples in file order, row-major, Width*Height long.
	Data      []float64
	Width     int
	Height    int
	BitPix    int
	NoData    float64
	HasNoData bool
	Metadata  *FitsMetadata
}

// maxFitsPixels bounds the sample count accepted from a header so a
// corrupt NAXIS card cannot drive an oversized allocation.
const maxFitsPixels = 1 << 28

// ReadFits reads a single-band FITS elevation image from a file.
// Errors wrap ErrSourceUnavailable.
func ReadFits(filePath string) (*FitsRaster, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening FITS file: %w", ErrSourceUnavailable, err)
	}
	defer f.Close()
	fr, err := readFitsFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return fr, nil
}

// ReadFitsFromBytes reads a FITS elevation image from memory.
// Errors wrap ErrSourceUnavailable.
func ReadFitsFromBytes(data []byte) (*FitsRaster, error) {
	fr, err := readFitsFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return fr, nil
}

func readFitsFromReader(r io.Reader) (*FitsRaster, error) {
	var bitpix, naxis, width, height int
	bzero := 0.0
	bscale := 1.0
	blank, hasBlank := 0.0, false
	headerDone := false
	metadata := NewFitsMetadata()

	recordBuf := make([]byte, 80)

	for !headerDone {
		for i := 0; i < 36; i++ {
			if _, err := io.ReadFull(r, recordBuf); err != nil {
				return nil, fmt.Errorf("reading FITS header record: %w", err)
			}
			record := string(recordBuf)
			keyword := strings.TrimSpace(record[:8])

			if keyword == "END" {
				headerDone = true
				if remaining := 35 - i; remaining > 0 {
					if _, err := io.ReadFull(r, make([]byte, remaining*80)); err != nil {
						return nil, fmt.Errorf("skipping FITS header padding: %w", err)
					}
				}
				break
			}

			if record[8] == '=' && record[9] == ' ' {
				rawValue := strings.TrimSpace(strings.SplitN(record[10:], "/", 2)[0])
				if parsed := parseFitsValue(rawValue); keyword != "" && parsed != "" {
					metadata.Headers[strings.ToUpper(keyword)] = parsed
				}

				switch keyword {
				case "BITPIX":
					bitpix, _ = strconv.Atoi(rawValue)
				case "NAXIS":
					naxis, _ = strconv.Atoi(rawValue)
				case "NAXIS1":
					width, _ = strconv.Atoi(rawValue)
				case "NAXIS2":
					height, _ = strconv.Atoi(rawValue)
				case "BZERO":
					bzero, _ = strconv.ParseFloat(rawValue, 64)
				case "BSCALE":
					bscale, _ = strconv.ParseFloat(rawValue, 64)
				case "BLANK":
					if v, err := strconv.ParseFloat(rawValue, 64); err == nil {
						blank, hasBlank = v, true
					}
				}
			}
		}
	}

	if naxis < 2 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid FITS: NAXIS=%d, NAXIS1=%d, NAXIS2=%d", naxis, width, height)
	}
	if width > maxFitsPixels/height {
		return nil, fmt.Errorf("invalid FITS: %dx%d exceeds %d samples", width, height, maxFitsPixels)
	}

	switch bitpix {
	case 8, 16, 32, -32, -64:
	default:
		return nil, fmt.Errorf("unsupported BITPIX: %d", bitpix)
	}
	numPixels := width * height
	bytesPerPixel := intAbs(bitpix) / 8
	rawBytes := make([]byte, numPixels*bytesPerPixel)
	if _, err := io.ReadFull(r, rawBytes); err != nil {
		return nil, fmt.Errorf("reading BITPIX %d pixel data: %w", bitpix, err)
	}

	out := &FitsRaster{
		Data:     make([]float64, numPixels),
		Width:    width,
		Height:   height,
		BitPix:   bitpix,
		Metadata: metadata,
	}
	if hasBlank && bitpix > 0 {
		out.NoData, out.HasNoData = blank*bscale+bzero, true
	}

	for i := 0; i < numPixels; i++ {
		var raw float64
		switch bitpix {
		case 8:
			raw = float64(rawBytes[i])
		case 16:
			raw = float64(int16(binary.BigEndian.Uint16(rawBytes[i*2:])))
		case 32:
			raw = float64(int32(binary.BigEndian.Uint32(rawBytes[i*4:])))
		case -32:
			raw = float64(math.Float32frombits(binary.BigEndian.Uint32(rawBytes[i*4:])))
		case -64:
			raw = math.Float64frombits(binary.BigEndian.Uint64(rawBytes[i*8:]))
		}
		out.Data[i] = raw*bscale + bzero
	}
	return out, nil
}

func parseFitsValue(rawValue string) string {
	if rawValue == "" {
		return ""
	}
	if rawValue == "T" {
		return "True"
	}
	if rawValue == "F" {
		return "False"
	}
	if strings.HasPrefix(rawValue, "'") {
		endQuote := strings.LastIndex(rawValue, "'")
		if endQuote > 0 {
			return strings.TrimRight(rawValue[1:endQuote], " ")
		}
		return strings.TrimLeft(strings.TrimRight(rawValue, " "), "'")
	}
	return rawValue
}

func intAbs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
