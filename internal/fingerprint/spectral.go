package fingerprint

import "math"

// analyzeSpectral computes per-frame centroid, rolloff (0.85 energy
// fraction) and flatness, then takes the median across frames and
// normalizes centroid/rolloff by fixed ceilings (8kHz/10kHz) per spec §4.3.
func analyzeSpectral(mono []float64, sampleRate int) (centroid, rolloff, flatness float64) {
	frames := frameMono(mono)
	if len(frames) == 0 {
		return 0.5, 0.5, 0.5
	}

	n := nextPow2(frameSize)
	binHz := float64(sampleRate) / float64(n)

	centroids := make([]float64, 0, len(frames))
	rolloffs := make([]float64, 0, len(frames))
	flatnesses := make([]float64, 0, len(frames))

	for _, frame := range frames {
		mag := magnitudeSpectrum(frame)

		var weighted, total float64
		for k, m := range mag {
			freq := float64(k) * binHz
			weighted += freq * m
			total += m
		}
		if total <= 0 {
			continue
		}
		centroids = append(centroids, weighted/total)

		target := 0.85 * total
		var cum float64
		rolloffBin := len(mag) - 1
		for k, m := range mag {
			cum += m
			if cum >= target {
				rolloffBin = k
				break
			}
		}
		rolloffs = append(rolloffs, float64(rolloffBin)*binHz)

		flatnesses = append(flatnesses, spectralFlatness(mag))
	}

	if len(centroids) == 0 {
		return 0.5, 0.5, 0.5
	}

	centroid = clamp01(median(centroids) / 8000.0)
	rolloff = clamp01(median(rolloffs) / 10000.0)
	flatness = clamp01(median(flatnesses))
	return centroid, rolloff, flatness
}

// spectralFlatness is the ratio of the geometric mean to the arithmetic
// mean of the magnitude spectrum (excluding DC), a standard tonal-vs-noisy
// measure in [0,1].
func spectralFlatness(mag []float64) float64 {
	if len(mag) < 2 {
		return 0
	}
	bins := mag[1:]
	var logSum, sum float64
	n := 0
	for _, m := range bins {
		v := m + 1e-12
		logSum += math.Log(v)
		sum += v
		n++
	}
	if n == 0 || sum <= 0 {
		return 0
	}
	geoMean := math.Exp(logSum / float64(n))
	arithMean := sum / float64(n)
	if arithMean <= 0 {
		return 0
	}
	return clamp01(geoMean / arithMean)
}
