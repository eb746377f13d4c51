package pyguide

import (
	"sort"
)

// FindStarsParams controls star detection.
type FindStarsParams struct {
	// DataCut sets the detection threshold at
	// median + DataCut * sky standard deviation.
	DataCut float64
	// SatLevel is the value at or above which a pixel counts as
	// saturated (ADU).
	SatLevel float64
	// RadMult scales the centroid search radius relative to half the
	// larger dimension of the detected blob.
	RadMult float64
}

// NewFindStarsParams returns detection parameters with default values.
func NewFindStarsParams() FindStarsParams {
	return FindStarsParams{
		DataCut:  3.0,
		SatLevel: 65535,
		RadMult:  1.0,
	}
}

// FindStarsMetrics counts what happened to the detected candidates.
type FindStarsMetrics struct {
	Candidates     int
	TooSmall       int
	Saturated      int
	CentroidFailed int
}

// FindStarsResult holds the stars found on an image.
type FindStarsResult struct {
	// Saturated reports whether any candidate contained saturated pixels.
	// Saturated candidates are excluded from Stars.
	Saturated bool
	// Stars is sorted by decreasing counts.
	Stars   []*CentroidData
	Metrics FindStarsMetrics
}

// FindStars locates and centroids stars on an image.
//
// The sky level and noise are estimated first, then a median-filtered copy
// of the image (masked pixels filled with the sky median) is thresholded at
// median + DataCut sigma and segmented into 8-connected blobs. Blobs only
// one pixel tall or wide are rejected; blobs containing saturated pixels
// set the Saturated flag and are skipped. Each surviving blob is centroided
// on the unfiltered image with search radius RadMult times half its larger
// dimension.
//
// Candidates are not required to look star-like, so partial stars on slit
// viewers, fiber bundles and donut-shaped pupil images all centroid fine.
func (c *ProfileCache) FindStars(im *Image, mask *Mask, ccd CCDInfo, params FindStarsParams) (*FindStarsResult, error) {
	med, stdDev, err := SkyStats(im, mask)
	if err != nil {
		return nil, err
	}

	smoothed := im.Clone()
	if mask != nil {
		for i := 0; i < smoothed.rows; i++ {
			row := smoothed.row(i)
			for j, masked := range mask.row(i) {
				if masked {
					row[j] = float32(med)
				}
			}
		}
	}
	smoothed = medianFilter3(smoothed)

	cut := float32(med + params.DataCut*stdDev)
	blobs := labelBlobs(smoothed, cut)

	res := &FindStarsResult{}
	res.Metrics.Candidates = len(blobs)

	type countedStar struct {
		counts float64
		data   *CentroidData
	}
	var found []countedStar
	for _, b := range blobs {
		sizeI := b.maxI - b.minI + 1
		sizeJ := b.maxJ - b.minJ + 1
		if sizeI < 2 || sizeJ < 2 {
			res.Metrics.TooSmall++
			continue
		}

		if blobMax(im, b) >= float32(params.SatLevel) {
			res.Saturated = true
			res.Metrics.Saturated++
			continue
		}

		rad := float64(max(sizeI, sizeJ)) * params.RadMult / 2.0
		guess := Pixel{
			I: int(float64(b.minI+b.maxI+1)/2.0 + 0.5),
			J: int(float64(b.minJ+b.maxJ+1)/2.0 + 0.5),
		}
		ctrData, err := c.Centroid(im, mask, guess, rad, ccd)
		if err != nil {
			res.Metrics.CentroidFailed++
			continue
		}
		found = append(found, countedStar{counts: ctrData.Counts, data: ctrData})
	}

	sort.SliceStable(found, func(a, b int) bool { return found[a].counts > found[b].counts })
	res.Stars = make([]*CentroidData, len(found))
	for i, cs := range found {
		res.Stars[i] = cs.data
	}
	return res, nil
}

// blob is an 8-connected region of above-threshold pixels.
type blob struct {
	minI, maxI, minJ, maxJ int
	pixels                 []Pixel
}

// labelBlobs segments pixels above cut into 8-connected blobs using a
// stack-based flood fill.
func labelBlobs(im *Image, cut float32) []blob {
	rows, cols := im.rows, im.cols
	seen := make([]bool, rows*cols)
	var blobs []blob
	var stack []Pixel

	for i := 0; i < rows; i++ {
		row := im.row(i)
		for j := 0; j < cols; j++ {
			if seen[i*cols+j] || row[j] <= cut {
				continue
			}

			b := blob{minI: i, maxI: i, minJ: j, maxJ: j}
			stack = append(stack[:0], Pixel{I: i, J: j})
			seen[i*cols+j] = true
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				b.pixels = append(b.pixels, p)
				b.minI = min(b.minI, p.I)
				b.maxI = max(b.maxI, p.I)
				b.minJ = min(b.minJ, p.J)
				b.maxJ = max(b.maxJ, p.J)

				for di := -1; di <= 1; di++ {
					for dj := -1; dj <= 1; dj++ {
						ni, nj := p.I+di, p.J+dj
						if ni < 0 || ni >= rows || nj < 0 || nj >= cols {
							continue
						}
						if seen[ni*cols+nj] || im.At(ni, nj) <= cut {
							continue
						}
						seen[ni*cols+nj] = true
						stack = append(stack, Pixel{I: ni, J: nj})
					}
				}
			}
			blobs = append(blobs, b)
		}
	}
	return blobs
}

// blobMax returns the largest unfiltered pixel value within the blob.
func blobMax(im *Image, b blob) float32 {
	maxVal := im.At(b.pixels[0].I, b.pixels[0].J)
	for _, p := range b.pixels[1:] {
		if v := im.At(p.I, p.J); v > maxVal {
			maxVal = v
		}
	}
	return maxVal
}
