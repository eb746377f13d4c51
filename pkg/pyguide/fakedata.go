package pyguide

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

const maxPixelValue = 1<<16 - 1

// FakeStar returns a noise-free image of a double gaussian star: the main
// gaussian of the given sigma and amplitude plus a tenth the amplitude at
// twice the sigma. Values are clipped at 65535 and truncated to whole ADU,
// like a 16-bit camera would deliver them.
func FakeStar(rows, cols int, ctrI, ctrJ, sigma, ampl float64) *Image {
	im := NewImage(rows, cols)
	for i := 0; i < rows; i++ {
		row := im.row(i)
		for j := 0; j < cols; j++ {
			radSq := (float64(i)-ctrI)*(float64(i)-ctrI) + (float64(j)-ctrJ)*(float64(j)-ctrJ)
			expArg := -radSq / (2 * sigma * sigma)
			v := ampl * (math.Exp(expArg) + 0.1*math.Exp(0.25*expArg))
			if v > maxPixelValue {
				v = maxPixelValue
			}
			row[j] = float32(math.Floor(v))
		}
	}
	return im
}

// AddNoise returns a copy of im with sky added, poisson photon noise applied
// and gaussian read noise about the bias added, using the CCD's gain and
// read noise. The result is clipped to [0, 65535] and truncated to whole
// ADU. Randomness comes from src, so a seeded source gives reproducible
// images.
func AddNoise(im *Image, sky float64, ccd CCDInfo, src rand.Source) *Image {
	poisson := distuv.Poisson{Src: src}
	normal := distuv.Normal{Mu: ccd.Bias, Sigma: ccd.ReadNoise / ccd.CCDGain, Src: src}

	out := NewImage(im.rows, im.cols)
	for i := 0; i < im.rows; i++ {
		in := im.row(i)
		dst := out.row(i)
		for j, v := range in {
			lambda := (float64(v) + sky) * ccd.CCDGain
			var counts float64
			if lambda > 0 {
				poisson.Lambda = lambda
				counts = poisson.Rand() / ccd.CCDGain
			}
			counts += normal.Rand()
			if counts < 0 {
				counts = 0
			} else if counts > maxPixelValue {
				counts = maxPixelValue
			}
			dst[j] = float32(math.Floor(counts))
		}
	}
	return out
}
