package pyguide

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

// FITSImage is a single-HDU FITS image with its parsed header cards.
type FITSImage struct {
	Image   *Image
	Headers map[string]string
}

func (f *FITSImage) GetString(key string) string {
	return f.Headers[strings.ToUpper(key)]
}

func (f *FITSImage) GetDouble(key string) (float64, bool) {
	v, ok := f.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

func (f *FITSImage) GetInt(key string) (int, bool) {
	v, ok := f.Headers[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return i, true
}

// CCDInfo builds camera noise parameters from the FITS headers, falling back
// to defaults for anything the camera did not record. RDNOISE is read noise
// in e-, EGAIN or GAIN is the gain in e-/ADU, and PEDESTAL is the bias in
// ADU.
func (f *FITSImage) CCDInfo(defaults CCDInfo) CCDInfo {
	ccd := defaults
	if v, ok := f.GetDouble("RDNOISE"); ok {
		ccd.ReadNoise = v
	}
	if v, ok := f.GetDouble("EGAIN"); ok {
		ccd.CCDGain = v
	} else if v, ok := f.GetDouble("GAIN"); ok {
		ccd.CCDGain = v
	}
	if v, ok := f.GetDouble("PEDESTAL"); ok {
		ccd.Bias = v
	}
	return ccd
}

// ReadFITS reads the primary HDU of a FITS file.
func ReadFITS(filePath string) (*FITSImage, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening FITS file: %w", err)
	}
	defer f.Close()
	return readFITS(f)
}

// ReadFITSFromBytes reads the primary HDU of an in-memory FITS file.
func ReadFITSFromBytes(data []byte) (*FITSImage, error) {
	return readFITS(bytes.NewReader(data))
}

func readFITS(r io.Reader) (*FITSImage, error) {
	var bitpix, naxis, width, height int
	bzero := 0.0
	bscale := 1.0
	headers := make(map[string]string)
	headerDone := false

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
					skipBuf := make([]byte, remaining*80)
					io.ReadFull(r, skipBuf)
				}
				break
			}

			if len(record) > 10 && record[8] == '=' && record[9] == ' ' {
				rawValue := strings.TrimSpace(strings.SplitN(record[10:], "/", 2)[0])
				parsedValue := parseFITSValue(rawValue)
				if keyword != "" && parsedValue != "" {
					headers[strings.ToUpper(keyword)] = parsedValue
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
				}
			}
		}
	}

	if naxis < 2 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid FITS: NAXIS=%d, NAXIS1=%d, NAXIS2=%d", naxis, width, height)
	}

	numPixels := width * height
	im := NewImage(height, width)

	switch bitpix {
	case 8:
		rawBytes := make([]byte, numPixels)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 8-bit pixel data: %w", err)
		}
		for i, b := range rawBytes {
			im.pix[i] = float32(float64(b)*bscale + bzero)
		}

	case 16:
		rawBytes := make([]byte, numPixels*2)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 16-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			signedVal := int16(binary.BigEndian.Uint16(rawBytes[i*2:]))
			im.pix[i] = float32(float64(signedVal)*bscale + bzero)
		}

	case 32:
		rawBytes := make([]byte, numPixels*4)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading 32-bit pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			intVal := int32(binary.BigEndian.Uint32(rawBytes[i*4:]))
			im.pix[i] = float32(float64(intVal)*bscale + bzero)
		}

	case -32:
		rawBytes := make([]byte, numPixels*4)
		if _, err := io.ReadFull(r, rawBytes); err != nil {
			return nil, fmt.Errorf("reading -32 float pixel data: %w", err)
		}
		for i := 0; i < numPixels; i++ {
			floatVal := math.Float32frombits(binary.BigEndian.Uint32(rawBytes[i*4:]))
			im.pix[i] = float32(float64(floatVal)*bscale + bzero)
		}

	default:
		return nil, fmt.Errorf("unsupported BITPIX: %d", bitpix)
	}

	return &FITSImage{Image: im, Headers: headers}, nil
}

func parseFITSValue(rawValue string) string {
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
		if endQuote := strings.LastIndex(rawValue, "'"); endQuote > 0 {
			return strings.TrimRight(rawValue[1:endQuote], " ")
		}
		return strings.TrimLeft(strings.TrimRight(rawValue, " "), "'")
	}
	return rawValue
}
