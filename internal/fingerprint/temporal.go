package fingerprint

import "math"

// analyzeTemporal derives tempo, rhythm stability, transient density and
// silence ratio from a spectral-flux onset envelope: frame-to-frame
// increase in magnitude marks onsets, the mean inter-onset interval gives
// the beat period, and evenness of inter-onset spacing gives
// stability.
func analyzeTemporal(mono []float64, sampleRate int, durationS float64) (tempoBPM, rhythmStability, transientDensity, silenceRatio float64) {
	frames := frameMono(mono)
	if len(frames) < 2 {
		return 120.0, 0.5, 0.2, silenceRatioFromMono(mono)
	}

	frameHopS := float64(hopSize) / float64(sampleRate)

	var prevMag []float64
	flux := make([]float64, 0, len(frames))
	for _, frame := range frames {
		mag := magnitudeSpectrum(frame)
		if prevMag != nil {
			var f float64
			for i := range mag {
				d := mag[i] - prevMag[i]
				if d > 0 {
					f += d
				}
			}
			flux = append(flux, f)
		}
		prevMag = mag
	}
	if len(flux) < 2 {
		return 120.0, 0.5, 0.2, silenceRatioFromMono(mono)
	}

	meanFlux := mean(flux)
	var onsetFrames []int
	for i := 1; i < len(flux)-1; i++ {
		if flux[i] > flux[i-1] && flux[i] >= flux[i+1] && flux[i] > 1.5*meanFlux {
			onsetFrames = append(onsetFrames, i)
		}
	}

	transientDensity = clamp01(float64(len(onsetFrames)) / math.Max(durationS, 1e-6) / 10.0)

	if len(onsetFrames) >= 2 {
		intervals := make([]float64, 0, len(onsetFrames)-1)
		for i := 1; i < len(onsetFrames); i++ {
			intervals = append(intervals, float64(onsetFrames[i]-onsetFrames[i-1])*frameHopS)
		}
		meanInterval := mean(intervals)
		if meanInterval > 0 {
			tempoBPM = clamp(60.0/meanInterval, 40.0, 220.0)
		} else {
			tempoBPM = 120.0
		}
		sd := stddev(intervals, meanInterval)
		if meanInterval > 0 {
			rhythmStability = clamp01(1.0 - sd/meanInterval)
		} else {
			rhythmStability = 0.5
		}
	} else {
		tempoBPM = 120.0
		rhythmStability = 0.5
	}

	silenceRatio = silenceRatioFromMono(mono)
	return tempoBPM, rhythmStability, transientDensity, silenceRatio
}

func silenceRatioFromMono(mono []float64) float64 {
	if len(mono) == 0 {
		return 0.1
	}
	const winSamples = 2048
	const thresholdDB = -50.0
	var silentWins, totalWins int
	for start := 0; start < len(mono); start += winSamples {
		end := start + winSamples
		if end > len(mono) {
			end = len(mono)
		}
		var sumSq float64
		for _, v := range mono[start:end] {
			sumSq += v * v
		}
		rms := math.Sqrt(sumSq / float64(end-start))
		db := 20 * math.Log10(math.Max(rms, 1e-12))
		if db < thresholdDB {
			silentWins++
		}
		totalWins++
	}
	if totalWins == 0 {
		return 0.1
	}
	return clamp01(float64(silentWins) / float64(totalWins))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func stddev(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		d := x - m
		s += d * d
	}
	return math.Sqrt(s / float64(len(xs)))
}
