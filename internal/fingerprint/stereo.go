package fingerprint

import "math"

// analyzeStereo computes stereo width from the L/R difference-to-sum ratio
// and phase correlation from the normalized inner product of L and R, per
// spec §4.3. Mono sources report a neutral width/full positive correlation.
func analyzeStereo(samples []float32, channels int) (width, phaseCorrelation float64) {
	if channels < 2 {
		return 0.0, 1.0
	}

	frames := len(samples) / channels
	if frames == 0 {
		return 0.3, 1.0
	}

	var diffSum, sumSum, lSq, rSq, dot float64
	for i := 0; i < frames; i++ {
		l := float64(samples[i*channels])
		r := float64(samples[i*channels+1])
		diffSum += math.Abs(l - r)
		sumSum += math.Abs(l + r)
		lSq += l * l
		rSq += r * r
		dot += l * r
	}

	if sumSum > 0 {
		width = clamp01(diffSum / sumSum)
	} else {
		width = 0
	}

	denom := math.Sqrt(lSq * rSq)
	if denom > 0 {
		phaseCorrelation = clamp(dot/denom, -1.0, 1.0)
	} else {
		phaseCorrelation = 1.0
	}

	return width, phaseCorrelation
}
