//go:build !purego && !js

package main

import (
	"fmt"

	"gocv.io/x/gocv"

	"pyguide/pkg/pyguide"
)

func loadNonFitsImage(path string) (*pyguide.Image, error) {
	src := gocv.IMRead(path, gocv.IMReadGrayScale|gocv.IMReadAnyDepth)
	if src.Empty() {
		return nil, fmt.Errorf("could not load image: %s", path)
	}
	defer src.Close()

	floatMat := gocv.NewMat()
	defer floatMat.Close()
	src.ConvertTo(&floatMat, gocv.MatTypeCV32F)

	h, w := floatMat.Rows(), floatMat.Cols()
	data, _ := floatMat.DataPtrFloat32()
	pixels := make([]float32, h*w)
	copy(pixels, data[:h*w])
	return pyguide.ImageFromFloat32(pixels, h, w)
}
