package pyguide

import (
	"fmt"
	"image"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Quartile returns quartile qnum (1, 2 or 3) of sorted, which must be in
// ascending order. Values between elements are linearly interpolated.
func Quartile(sorted []float64, qnum int) (float64, error) {
	if len(sorted) == 0 {
		return 0, fmt.Errorf("%w: no data", ErrInvalidArgument)
	}
	if qnum < 1 || qnum > 3 {
		return 0, fmt.Errorf("%w: quartile %d", ErrInvalidArgument, qnum)
	}
	return stat.Quantile(float64(qnum)/4, stat.LinInterp, sorted, nil), nil
}

// SkyStats estimates the sky background median and standard deviation from
// the unmasked pixels of im. The deviation comes from the interquartile
// range (0.741 * IQR, the gaussian equivalent), which is insensitive to
// stars; three clipping passes discard pixels above median + 2.35 sigma so
// bright sources do not bias the estimate.
func SkyStats(im *Image, mask *Mask) (med, stdDev float64, err error) {
	if mask != nil && (mask.rows != im.rows || mask.cols != im.cols) {
		return 0, 0, fmt.Errorf("%w: mask %dx%d does not match image %dx%d",
			ErrInvalidArgument, mask.rows, mask.cols, im.rows, im.cols)
	}
	data := make([]float64, 0, im.rows*im.cols)
	for i := 0; i < im.rows; i++ {
		row := im.row(i)
		var maskRow []bool
		if mask != nil {
			maskRow = mask.row(i)
		}
		for j, v := range row {
			if maskRow != nil && maskRow[j] {
				continue
			}
			data = append(data, float64(v))
		}
	}
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("%w: all pixels masked", ErrInvalidArgument)
	}
	sort.Float64s(data)

	const maxIter = 3
	for iter := 1; iter <= maxIter; iter++ {
		med, _ = Quartile(data, 2)
		q1, _ := Quartile(data, 1)
		q3, _ := Quartile(data, 3)
		stdDev = 0.741 * (q3 - q1)
		if iter == maxIter {
			break
		}
		cut := sort.SearchFloat64s(data, med+2.35*stdDev)
		if cut == 0 {
			// nothing below the cut; the estimate cannot improve
			break
		}
		data = data[:cut]
	}
	return med, stdDev, nil
}

// SubframeCtr returns the view of im centered as nearly as possible on
// (ctrI, ctrJ) with half-size (radI, radJ), clipped to the image bounds,
// plus the origin of the view within im. The view shares im's storage.
func SubframeCtr(im *Image, ctrI, ctrJ float64, radI, radJ int) (*Image, Pixel, error) {
	if radI < 0 || radJ < 0 {
		return nil, Pixel{}, fmt.Errorf("%w: radius %d,%d", ErrInvalidArgument, radI, radJ)
	}
	begI := max(int(ctrI)-radI, 0)
	begJ := max(int(ctrJ)-radJ, 0)
	endI := min(int(ctrI)+radI+1, im.rows)
	endJ := min(int(ctrJ)+radJ+1, im.cols)
	if begI >= endI || begJ >= endJ {
		return nil, Pixel{}, fmt.Errorf("%w: center %.1f,%.1f outside image %dx%d",
			ErrInvalidArgument, ctrI, ctrJ, im.rows, im.cols)
	}
	sub := im.Region(image.Rect(begJ, begI, endJ, endI))
	return sub, Pixel{I: begI, J: begJ}, nil
}
