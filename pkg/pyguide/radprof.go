// Package pyguide locates and measures stars on CCD images. The core is a
// radial-profile engine: it bins pixels by distance from a trial center,
// accumulates per-bin statistics, and reduces them to a scalar radial
// asymmetry. A star's centroid is the point of minimum radial asymmetry.
//
// Images are indexed [i,j] with i the row (y) and j the column (x).
package pyguide

import (
	"errors"
	"fmt"
	"math"
)

// Failure kinds reported by the profile operations. Check with errors.Is.
var (
	// ErrInvalidArgument reports a negative size or a shape mismatch,
	// detected before any computation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutputTooShort reports output arrays below the required profile
	// length. Nothing is written to the outputs.
	ErrOutputTooShort = errors.New("output arrays too short")

	// ErrRadIndexRange reports a radial index outside the declared profile
	// length. It indicates a defect, not a recoverable condition.
	ErrRadIndexRange = errors.New("radial index out of range")
)

// ProfileCache holds the growable working arrays shared by repeated profile
// calls: the radius-squared to radial-index lookup table and the
// mean/variance/count scratch used by the asymmetry reductions. Both only
// ever grow, so calls at the same or smaller radius never reallocate.
//
// The zero value is ready to use. A ProfileCache is not safe for concurrent
// use; callers wanting parallel centroiding should use one cache per
// goroutine.
type ProfileCache struct {
	radIndByRadSq []int32

	mean     []float64
	variance []float64
	nPts     []int32
}

// NewProfileCache returns an empty cache.
func NewProfileCache() *ProfileCache { return &ProfileCache{} }

// ensureRadInd guarantees the lookup table has at least max(nElt, 3) valid
// entries. The mapping is radius-independent, so growth recomputes the whole
// table and existing entries keep their values.
func (c *ProfileCache) ensureRadInd(nElt int) {
	if nElt < 3 {
		nElt = 3
	}
	if len(c.radIndByRadSq) >= nElt {
		return
	}
	t := make([]int32, nElt)
	t[0], t[1], t[2] = 0, 1, 2
	for radSq := 3; radSq < nElt; radSq++ {
		t[radSq] = int32(math.Sqrt(float64(radSq)) + 1.5)
	}
	c.radIndByRadSq = t
}

// ensureScratch guarantees the three scratch arrays hold at least nElt
// elements. They never shrink once grown.
func (c *ProfileCache) ensureScratch(nElt int) {
	if len(c.mean) >= nElt {
		return
	}
	c.mean = make([]float64, nElt)
	c.variance = make([]float64, nElt)
	c.nPts = make([]int32, nElt)
}

// Pixel is an integer i,j position. It need not lie inside the image.
type Pixel struct {
	I, J int
}

func checkProfArgs(im *Image, mask *Mask, rad int) error {
	if rad < 0 {
		return fmt.Errorf("%w: radius %d", ErrInvalidArgument, rad)
	}
	if mask != nil && (mask.rows != im.rows || mask.cols != im.cols) {
		return fmt.Errorf("%w: mask %dx%d does not match image %dx%d",
			ErrInvalidArgument, mask.rows, mask.cols, im.rows, im.cols)
	}
	return nil
}

// scanWindow clips the (2*rad+1)-square window about ctr to the image bounds.
// The window is empty when minI > maxI or minJ > maxJ.
func scanWindow(im *Image, ctr Pixel, rad int) (minI, maxI, minJ, maxJ int) {
	minI = max(ctr.I-rad, 0)
	minJ = max(ctr.J-rad, 0)
	maxI = min(ctr.I+rad, im.rows-1)
	maxJ = min(ctr.J+rad, im.cols-1)
	return
}

func zeroProfile(mean, variance []float64, nPts []int32) {
	for i := range mean {
		mean[i] = 0
	}
	for i := range variance {
		variance[i] = 0
	}
	for i := range nPts {
		nPts[i] = 0
	}
}

// normalizeProfile converts accumulated sums to mean and population
// variance. Bins with no points keep mean 0 and variance 0.
func normalizeProfile(mean, variance []float64, nPts []int32) {
	for i, n := range nPts {
		if n == 0 {
			continue
		}
		mean[i] /= float64(n)
		variance[i] = variance[i]/float64(n) - mean[i]*mean[i]
	}
}

// RadProf accumulates a radial profile about ctr as a function of radial
// index, an approximation of radius that handles the central pixels better:
//
//	radialIndex(radSq) = 0, 1, 2 for radSq <= 2, else floor(sqrt(radSq) + 1.5)
//
// so radialIndex(rad*rad) = rad+1 for rad > 1 and the outputs need at least
// rad+2 elements each. Pixels masked, outside the image, or farther than rad
// from ctr are ignored, so the center need not be on the image. After the
// scan each populated bin holds the mean and population variance of its
// pixels; empty bins hold zeros. Returns the summed pixel values (as a
// float64 to avoid overflow on large images) and the number of pixels binned.
func (c *ProfileCache) RadProf(im *Image, mask *Mask, ctr Pixel, rad int, mean, variance []float64, nPts []int32) (totCounts float64, totPts int, err error) {
	if err := checkProfArgs(im, mask, rad); err != nil {
		return 0, 0, err
	}
	desLen := rad + 2
	if len(mean) < desLen || len(variance) < desLen || len(nPts) < desLen {
		return 0, 0, fmt.Errorf("%w: need %d elements, have %d/%d/%d",
			ErrOutputTooShort, desLen, len(mean), len(variance), len(nPts))
	}
	c.ensureRadInd(rad*rad + 1)
	zeroProfile(mean, variance, nPts)

	maxRadSq := rad * rad
	minI, maxI, minJ, maxJ := scanWindow(im, ctr, rad)
	for ii := minI; ii <= maxI; ii++ {
		row := im.row(ii)
		var maskRow []bool
		if mask != nil {
			maskRow = mask.row(ii)
		}
		for jj := minJ; jj <= maxJ; jj++ {
			if maskRow != nil && maskRow[jj] {
				continue
			}
			radSq := (ii-ctr.I)*(ii-ctr.I) + (jj-ctr.J)*(jj-ctr.J)
			if radSq > maxRadSq {
				continue
			}
			ind := int(c.radIndByRadSq[radSq])
			if ind >= desLen {
				return 0, 0, fmt.Errorf("%w: index %d for radius %d", ErrRadIndexRange, ind, rad)
			}
			d := float64(row[jj])
			mean[ind] += d
			variance[ind] += d * d
			nPts[ind]++
			totCounts += d
			totPts++
		}
	}

	normalizeProfile(mean[:desLen], variance[:desLen], nPts[:desLen])
	return totCounts, totPts, nil
}

// RadSqProf accumulates a radial profile about ctr as a function of exact
// radius squared, so the outputs need at least rad*rad+1 elements each.
// It shares RadProf's scan and normalization but needs no lookup table.
func RadSqProf(im *Image, mask *Mask, ctr Pixel, rad int, mean, variance []float64, nPts []int32) (totCounts float64, totPts int, err error) {
	if err := checkProfArgs(im, mask, rad); err != nil {
		return 0, 0, err
	}
	desLen := rad*rad + 1
	if len(mean) < desLen || len(variance) < desLen || len(nPts) < desLen {
		return 0, 0, fmt.Errorf("%w: need %d elements, have %d/%d/%d",
			ErrOutputTooShort, desLen, len(mean), len(variance), len(nPts))
	}
	zeroProfile(mean, variance, nPts)

	maxRadSq := rad * rad
	minI, maxI, minJ, maxJ := scanWindow(im, ctr, rad)
	for ii := minI; ii <= maxI; ii++ {
		row := im.row(ii)
		var maskRow []bool
		if mask != nil {
			maskRow = mask.row(ii)
		}
		for jj := minJ; jj <= maxJ; jj++ {
			if maskRow != nil && maskRow[jj] {
				continue
			}
			radSq := (ii-ctr.I)*(ii-ctr.I) + (jj-ctr.J)*(jj-ctr.J)
			if radSq > maxRadSq {
				continue
			}
			d := float64(row[jj])
			mean[radSq] += d
			variance[radSq] += d * d
			nPts[radSq]++
			totCounts += d
			totPts++
		}
	}

	normalizeProfile(mean[:desLen], variance[:desLen], nPts[:desLen])
	return totCounts, totPts, nil
}

// RadAsymm computes the unweighted radial asymmetry about ctr:
//
//	sum over bins of variance(bin) * nPts(bin)
//
// along with the total counts and total points from the underlying profile.
// If no pixels fall in the scan, all results are zero.
func (c *ProfileCache) RadAsymm(im *Image, mask *Mask, ctr Pixel, rad int) (asymm, totCounts float64, totPts int, err error) {
	nElt := rad + 2
	if rad >= 0 {
		c.ensureScratch(nElt)
	}
	totCounts, totPts, err = c.RadProf(im, mask, ctr, rad, c.mean, c.variance, c.nPts)
	if err != nil {
		return 0, 0, 0, err
	}
	if totPts == 0 {
		return 0, 0, 0, nil
	}

	for ind := 0; ind < nElt; ind++ {
		asymm += c.variance[ind] * float64(c.nPts[ind])
	}
	return asymm, totCounts, totPts, nil
}

// RadAsymmWeighted computes radial asymmetry weighted by the expected
// per-bin measurement noise:
//
//	asymm          = sum over bins of variance(bin) / weight(bin)
//	weight(bin)    = sqrt(2*(nPts(bin)-1)) * pixNoiseSq(bin) / nPts(bin)
//	pixNoiseSq(bin) = (readNoise/ccdGain)^2 + (mean(bin) - bias)/ccdGain
//
// Bins with fewer than two points contribute nothing to asymm, though their
// pixels still count toward totCounts and totPts. A bias above the smallest
// bin mean is clamped down to it, so the predicted pixel noise can never go
// negative for a miscalibrated bias.
func (c *ProfileCache) RadAsymmWeighted(im *Image, mask *Mask, ctr Pixel, rad int, ccd CCDInfo) (asymm, totCounts float64, totPts int, err error) {
	nElt := rad + 2
	if rad >= 0 {
		c.ensureScratch(nElt)
	}
	totCounts, totPts, err = c.RadProf(im, mask, ctr, rad, c.mean, c.variance, c.nPts)
	if err != nil {
		return 0, 0, 0, err
	}
	if totPts == 0 {
		return 0, 0, 0, nil
	}

	bias := ccd.Bias
	for ind := 0; ind < nElt; ind++ {
		if c.mean[ind] < bias {
			bias = c.mean[ind]
		}
	}

	readNoiseSqADU := (ccd.ReadNoise * ccd.ReadNoise) / (ccd.CCDGain * ccd.CCDGain)
	for ind := 0; ind < nElt; ind++ {
		n := c.nPts[ind]
		if n <= 1 {
			continue
		}
		pixNoiseSq := readNoiseSqADU + (c.mean[ind]-bias)/ccd.CCDGain
		weight := math.Sqrt(2*float64(n-1)) * pixNoiseSq / float64(n)
		asymm += c.variance[ind] / weight
	}
	return asymm, totCounts, totPts, nil
}

// RadIndByRadSq returns radial index as a function of radius squared for
// radSq in [0, n). The result is a fresh copy, detached from the cache.
func (c *ProfileCache) RadIndByRadSq(n int) ([]int32, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: n=%d", ErrInvalidArgument, n)
	}
	c.ensureRadInd(n)
	out := make([]int32, n)
	copy(out, c.radIndByRadSq)
	return out, nil
}

// RadSqByRadInd returns radius squared as a function of radial index for
// indices in [0, n): 0, 1, 2, then (ind-1)^2.
func RadSqByRadInd(n int) ([]int32, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: n=%d", ErrInvalidArgument, n)
	}
	out := make([]int32, n)
	for ind := 0; ind < n && ind < 3; ind++ {
		out[ind] = int32(ind)
	}
	for ind := 3; ind < n; ind++ {
		out[ind] = int32((ind - 1) * (ind - 1))
	}
	return out, nil
}
