package pyguide

import (
	"fmt"
	"image"
)

// Image is a 2-D view over row-major float32 samples in ADU. Sub-views
// created with Region share storage with their parent, so the stride may
// differ from the column count.
type Image struct {
	pix    []float32
	rows   int
	cols   int
	stride int
	off    int
}

// NewImage allocates a zeroed rows x cols image.
func NewImage(rows, cols int) *Image {
	return &Image{
		pix:    make([]float32, rows*cols),
		rows:   rows,
		cols:   cols,
		stride: cols,
	}
}

// ImageFromFloat32 wraps an existing row-major buffer without copying.
func ImageFromFloat32(pix []float32, rows, cols int) (*Image, error) {
	if rows < 0 || cols < 0 || len(pix) != rows*cols {
		return nil, fmt.Errorf("%w: buffer length %d does not match %dx%d", ErrInvalidArgument, len(pix), rows, cols)
	}
	return &Image{pix: pix, rows: rows, cols: cols, stride: cols}, nil
}

// ImageFromUint16 copies 16-bit pixel data into a new image, keeping ADU values.
func ImageFromUint16(pix []uint16, rows, cols int) (*Image, error) {
	if rows < 0 || cols < 0 || len(pix) != rows*cols {
		return nil, fmt.Errorf("%w: buffer length %d does not match %dx%d", ErrInvalidArgument, len(pix), rows, cols)
	}
	im := NewImage(rows, cols)
	for i, v := range pix {
		im.pix[i] = float32(v)
	}
	return im, nil
}

func (im *Image) Rows() int { return im.rows }
func (im *Image) Cols() int { return im.cols }

// At returns the sample at row i, column j.
func (im *Image) At(i, j int) float32 { return im.pix[im.off+i*im.stride+j] }

// Set stores a sample at row i, column j.
func (im *Image) Set(i, j int, v float32) { im.pix[im.off+i*im.stride+j] = v }

// row returns row i as a slice of cols elements.
func (im *Image) row(i int) []float32 {
	start := im.off + i*im.stride
	return im.pix[start : start+im.cols]
}

// Region returns a sub-view sharing storage with im.
func (im *Image) Region(r image.Rectangle) *Image {
	return &Image{
		pix:    im.pix,
		rows:   r.Dy(),
		cols:   r.Dx(),
		stride: im.stride,
		off:    im.off + r.Min.Y*im.stride + r.Min.X,
	}
}

// Clone returns a contiguous copy of im.
func (im *Image) Clone() *Image {
	out := NewImage(im.rows, im.cols)
	for i := 0; i < im.rows; i++ {
		copy(out.row(i), im.row(i))
	}
	return out
}

// Mask marks pixels to exclude from profile accumulation; true means ignore.
type Mask struct {
	bits []bool
	rows int
	cols int
}

// NewMask allocates an all-false mask.
func NewMask(rows, cols int) *Mask {
	return &Mask{bits: make([]bool, rows*cols), rows: rows, cols: cols}
}

func (m *Mask) Rows() int { return m.rows }
func (m *Mask) Cols() int { return m.cols }

func (m *Mask) At(i, j int) bool     { return m.bits[i*m.cols+j] }
func (m *Mask) Set(i, j int, v bool) { m.bits[i*m.cols+j] = v }

// row returns row i of the mask.
func (m *Mask) row(i int) []bool {
	start := i * m.cols
	return m.bits[start : start+m.cols]
}
