//go:build !purego && !js

package pyguide

import "gocv.io/x/gocv"

// medianFilter3 returns a 3x3 median filtered copy of im, delegating to
// OpenCV's median blur.
func medianFilter3(im *Image) *Image {
	src := gocv.NewMatWithSize(im.rows, im.cols, gocv.MatTypeCV32F)
	defer src.Close()
	data, _ := src.DataPtrFloat32()
	for i := 0; i < im.rows; i++ {
		copy(data[i*im.cols:(i+1)*im.cols], im.row(i))
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.MedianBlur(src, &dst, 3)

	out := NewImage(im.rows, im.cols)
	blurred, _ := dst.DataPtrFloat32()
	copy(out.pix, blurred)
	return out
}
