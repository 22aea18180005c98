package fingerprint

import "math"

// analyzeVariation computes dynamic-range variation, loudness-variation std
// and peak consistency from 1-second analysis windows: how much the
// per-window crest factor and loudness wander over the track, and how
// consistent successive peak levels are.
func analyzeVariation(mono []float64, sampleRate int) (dynamicRangeVariation, loudnessVariationStd, peakConsistency float64) {
	winSamples := sampleRate
	if winSamples <= 0 {
		winSamples = 44100
	}
	if len(mono) < winSamples {
		return 0.2, 0.1, 0.8
	}

	var crests, lufsWins, peaks []float64
	for start := 0; start+winSamples <= len(mono); start += winSamples {
		win := mono[start : start+winSamples]
		var sumSq, peak float64
		for _, v := range win {
			sumSq += v * v
			av := math.Abs(v)
			if av > peak {
				peak = av
			}
		}
		rms := math.Sqrt(sumSq / float64(len(win)))
		if rms <= 0 {
			rms = 1e-9
		}
		if peak <= 0 {
			peak = rms
		}
		crests = append(crests, 20*math.Log10(peak/rms))
		lufsWins = append(lufsWins, 20*math.Log10(rms)+0.691)
		peaks = append(peaks, peak)
	}

	if len(crests) < 2 {
		return 0.2, 0.1, 0.8
	}

	crestMean := mean(crests)
	dynamicRangeVariation = clamp01(stddev(crests, crestMean) / 20.0)

	lufsMean := mean(lufsWins)
	loudnessVariationStd = clamp01(stddev(lufsWins, lufsMean) / 20.0)

	peakMean := mean(peaks)
	peakVariability := 0.0
	if peakMean > 0 {
		peakVariability = stddev(peaks, peakMean) / peakMean
	}
	peakConsistency = clamp01(1.0 - peakVariability)

	return dynamicRangeVariation, loudnessVariationStd, peakConsistency
}
