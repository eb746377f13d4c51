package pyguide

import "math"

// FWHMPerSigma converts a gaussian sigma to full width at half maximum.
var FWHMPerSigma = 2 * math.Sqrt(2*math.Log(2))

// CCDInfo describes the noise model of the camera that took an exposure.
// Bias is in ADU; ReadNoise is in e-; CCDGain is in e-/ADU.
type CCDInfo struct {
	Bias      float64
	ReadNoise float64
	CCDGain   float64
}
