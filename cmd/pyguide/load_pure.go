//go:build purego || js

package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"pyguide/pkg/pyguide"
)

func loadNonFitsImage(path string) (*pyguide.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]uint16, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// grayscale luminance in the uint16 range
			pixels[y*w+x] = uint16((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
		}
	}
	return pyguide.ImageFromUint16(pixels, h, w)
}
