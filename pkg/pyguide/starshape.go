package pyguide

import (
	"fmt"
	"math"
)

// StarShapeData describes a star fit to a symmetric double gaussian: a main
// gaussian plus a contribution of a tenth the amplitude and twice the sigma.
// FWHM refers to the main gaussian.
type StarShapeData struct {
	// Ampl is the profile amplitude (ADU).
	Ampl float64
	// Bkgnd is the fit background level (ADU).
	Bkgnd float64
	// FWHM is the full width at half maximum (pixels).
	FWHM float64
	// ChiSq is the weighted chi squared of the fit.
	ChiSq float64
}

// StarShape fits a double gaussian profile to the star centered on ctr,
// using data within rad pixels (values below 3 are raised to 3).
//
// The fit works on the radial profile: mean value per radial-index bin as a
// function of radius squared, weighted by the inverse of the bin variance
// (bins with variance below 0.5 get negligible weight). predFWHM seeds the
// width parameter; pass 0 to seed from rad, which is usually good enough.
func (c *ProfileCache) StarShape(im *Image, mask *Mask, ctr Pixel, rad int, predFWHM float64) (*StarShapeData, error) {
	if rad < minCentroidRad {
		rad = minCentroidRad
	}
	nElt := rad + 2
	mean := make([]float64, nElt)
	variance := make([]float64, nElt)
	nPts := make([]int32, nElt)
	if _, _, err := c.RadProf(im, mask, ctr, rad, mean, variance, nPts); err != nil {
		return nil, err
	}

	anyData := false
	for _, n := range nPts {
		if n > 0 {
			anyData = true
			break
		}
	}
	if !anyData {
		return nil, fmt.Errorf("star shape: no data within %d pixels of %d,%d", rad, ctr.I, ctr.J)
	}

	radSqArr, err := RadSqByRadInd(nElt)
	if err != nil {
		return nil, err
	}
	xs := make([]float64, nElt)
	weights := make([]float64, nElt)
	for i := 0; i < nElt; i++ {
		xs[i] = float64(radSqArr[i])
		if variance[i] < 0.5 {
			weights[i] = 1 / 9.9e99
		} else {
			weights[i] = 1 / variance[i]
		}
	}

	if predFWHM <= 0 {
		predFWHM = float64(rad)
	}
	predBkgnd := mean[nElt-1]
	predAmpl := mean[0] - predBkgnd
	predWP := wpFromFWHM(predFWHM)

	x0 := []float64{predBkgnd, predAmpl, predWP}
	lower := []float64{math.Inf(-1), math.Inf(-1), 1e-6}
	upper := []float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	scale := []float64{1, 1, 1}

	params, chiSq, ok := curveFit(dblGaussModel, dblGaussGradient,
		xs, mean, weights, x0, lower, upper, scale, 1e-10, 200)
	if !ok {
		return nil, fmt.Errorf("star shape: fit failed at %d,%d", ctr.I, ctr.J)
	}

	return &StarShapeData{
		Bkgnd: params[0],
		Ampl:  params[1],
		FWHM:  fwhmFromWP(params[2]),
		ChiSq: chiSq,
	}, nil
}

// dblGaussModel is the double gaussian profile as a function of radius
// squared, with parameters background, amplitude and width parameter
// wp = 1/sigma^2.
func dblGaussModel(p []float64, radSq float64) float64 {
	bkgnd, ampl, wp := p[0], p[1], p[2]
	return bkgnd + ampl*(math.Exp(-0.5*wp*radSq)+0.1*math.Exp(-0.125*wp*radSq))/1.1
}

func dblGaussGradient(p []float64, radSq float64, grad []float64) {
	ampl, wp := p[1], p[2]
	e1 := math.Exp(-0.5 * wp * radSq)
	e2 := math.Exp(-0.125 * wp * radSq)
	grad[0] = 1
	grad[1] = (e1 + 0.1*e2) / 1.1
	grad[2] = ampl * radSq * (-0.5*e1 - 0.0125*e2) / 1.1
}

func fwhmFromWP(wp float64) float64 { return FWHMPerSigma / math.Sqrt(wp) }

func wpFromFWHM(fwhm float64) float64 {
	r := FWHMPerSigma / fwhm
	return r * r
}
