package pyguide

import (
	"fmt"
	"math"
)

const (
	// minCentroidRad keeps the search radius large enough to centroid
	// small stars reliably.
	minCentroidRad = 3

	// maxCentroidIter bounds the asymmetry-minimum walk.
	maxCentroidIter = 40
)

// CentroidData describes a measured star center.
//
// Asymm, Counts and Pix are computed for the radial profile centered on the
// pixel nearest the centroid, not on the sub-pixel centroid itself.
type CentroidData struct {
	// Ctr is the i,j centroid in pixels.
	Ctr [2]float64
	// Err is the predicted i,j 1-sigma centroid error in pixels.
	Err [2]float64

	// Asymm is the noise-weighted radial asymmetry at the center pixel.
	Asymm float64
	// Counts is the total counts within the search radius (ADU).
	Counts float64
	// Pix is the number of unmasked pixels within the search radius.
	Pix int

	// Rad is the search radius actually used (pixels).
	Rad int
}

// Centroid finds the point of minimum noise-weighted radial asymmetry near
// initGuess, searching within radius rad (values below 3 are raised to 3).
//
// The walk evaluates asymmetry on a 3x3 pixel gridlet and steps one pixel
// toward the smallest value until the center of the gridlet is the minimum,
// then refines to sub-pixel accuracy with a parabolic fit along each axis
// (the diagonal gridlet values are ignored by the fit). It fails if the walk
// leaves the search region, exceeds the iteration limit, or ends somewhere
// the asymmetry has no curvature to fit, such as a blank or fully masked
// region.
func (c *ProfileCache) Centroid(im *Image, mask *Mask, initGuess Pixel, rad float64, ccd CCDInfo) (*CentroidData, error) {
	iRad := int(math.Max(rad, minCentroidRad) + 0.5)
	radSq := iRad * iRad

	var asymmArr, countsArr [3][3]float64
	var ptsArr [3][3]int

	ctrI, ctrJ := initGuess.I, initGuess.J
	for niter := 1; ; niter++ {
		if niter > maxCentroidIter {
			return nil, fmt.Errorf("centroid: no star found in %d iterations", maxCentroidIter)
		}

		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if ptsArr[i][j] != 0 {
					continue
				}
				p := Pixel{I: ctrI + i - 1, J: ctrJ + j - 1}
				asymm, totCounts, totPts, err := c.RadAsymmWeighted(im, mask, p, iRad, ccd)
				if err != nil {
					return nil, err
				}
				asymmArr[i][j] = asymm
				countsArr[i][j] = totCounts
				ptsArr[i][j] = totPts
			}
		}

		// first minimum in row-major order
		minI, minJ := 0, 0
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if asymmArr[i][j] < asymmArr[minI][minJ] {
					minI, minJ = i, j
				}
			}
		}
		di, dj := minI-1, minJ-1
		if di == 0 && dj == 0 {
			break
		}

		// recenter the gridlet on the minimum, keeping the values
		// already computed
		asymmArr = shift3x3(asymmArr, di, dj)
		countsArr = shift3x3(countsArr, di, dj)
		ptsArr = shift3x3(ptsArr, di, dj)
		ctrI += di
		ctrJ += dj
		if (ctrI-initGuess.I)*(ctrI-initGuess.I)+(ctrJ-initGuess.J)*(ctrJ-initGuess.J) >= radSq {
			return nil, fmt.Errorf("centroid: no star found within %d pixels", iRad)
		}
	}

	if ptsArr[1][1] == 0 {
		return nil, fmt.Errorf("centroid: no unmasked pixels near %d,%d", ctrI, ctrJ)
	}

	// parabolic fit y(x) = ymin + a*(x-xmin)^2 along each axis:
	//   a = (y0 - 2*y1 + y2)/2, xmin = -b/2a with b = (y2-y0)/2
	ai := 0.5 * (asymmArr[2][1] - 2.0*asymmArr[1][1] + asymmArr[0][1])
	bi := 0.5 * (asymmArr[2][1] - asymmArr[0][1])
	aj := 0.5 * (asymmArr[1][2] - 2.0*asymmArr[1][1] + asymmArr[1][0])
	bj := 0.5 * (asymmArr[1][2] - asymmArr[1][0])
	if !(ai > 0) || !(aj > 0) {
		return nil, fmt.Errorf("centroid: asymmetry has no minimum at %d,%d", ctrI, ctrJ)
	}

	di := -0.5 * bi / ai
	dj := -0.5 * bj / aj

	// crude error estimate from the asymmetry at the minimum
	radAsymmSigma := asymmArr[1][1]
	iErr := math.Sqrt(radAsymmSigma / ai)
	jErr := math.Sqrt(radAsymmSigma / aj)

	return &CentroidData{
		Ctr:    [2]float64{float64(ctrI) + di, float64(ctrJ) + dj},
		Err:    [2]float64{iErr, jErr},
		Asymm:  asymmArr[1][1],
		Counts: countsArr[1][1],
		Pix:    ptsArr[1][1],
		Rad:    iRad,
	}, nil
}

// shift3x3 moves the grid so the cell at (1+di, 1+dj) lands in the center.
// Cells shifted in from outside are zeroed, which marks them for
// recomputation.
func shift3x3[T float64 | int](a [3][3]T, di, dj int) [3][3]T {
	var out [3][3]T
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			si, sj := i+di, j+dj
			if si < 0 || si > 2 || sj < 0 || sj > 2 {
				continue
			}
			out[i][j] = a[si][sj]
		}
	}
	return out
}
