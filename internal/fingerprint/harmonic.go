package fingerprint

import "math"

// analyzeHarmonic computes harmonic/percussive ratio, pitch stability and
// chroma energy. In sampled mode it runs the (expensive) per-window
// analysis on k windows of sampleWindowS seconds spaced every
// samplingIntervalS seconds and averages the three scalars, per spec §4.3;
// full-track mode runs once over the whole signal. Tracks shorter than 5s
// always run full-track (the caller has already downgraded the strategy).
func analyzeHarmonic(mono []float64, sampleRate int, durationS float64, strategy Strategy, samplingIntervalS, sampleWindowS float64) (harmonicRatio, pitchStability, chromaEnergy float64) {
	if len(mono) == 0 {
		return 0.5, 0.5, 0.3
	}

	if strategy == StrategyFullTrack {
		return analyzeHarmonicWindow(mono, sampleRate)
	}

	var windows [][]float64
	for startS := 0.0; startS < durationS; startS += samplingIntervalS {
		startSample := int(startS * float64(sampleRate))
		endSample := int((startS + sampleWindowS) * float64(sampleRate))
		if startSample >= len(mono) {
			break
		}
		if endSample > len(mono) {
			endSample = len(mono)
		}
		if endSample-startSample < sampleRate/2 {
			continue
		}
		windows = append(windows, mono[startSample:endSample])
	}
	if len(windows) == 0 {
		return analyzeHarmonicWindow(mono, sampleRate)
	}

	var sumRatio, sumPitch, sumChroma float64
	for _, w := range windows {
		r, p, c := analyzeHarmonicWindow(w, sampleRate)
		sumRatio += r
		sumPitch += p
		sumChroma += c
	}
	n := float64(len(windows))
	return sumRatio / n, sumPitch / n, sumChroma / n
}

// analyzeHarmonicWindow runs a single pass of simplified HPSS (median
// filtering along time for the harmonic estimate, along frequency for the
// percussive estimate), YIN-style autocorrelation pitch tracking and
// 12-class chroma folding over one window.
func analyzeHarmonicWindow(mono []float64, sampleRate int) (harmonicRatio, pitchStability, chromaEnergy float64) {
	frames := frameMono(mono)
	if len(frames) == 0 {
		return 0.5, 0.5, 0.3
	}

	specs := make([][]float64, len(frames))
	for i, f := range frames {
		specs[i] = magnitudeSpectrum(f)
	}
	harmonicRatio = hpssRatio(specs)

	n := nextPow2(frameSize)
	binHz := float64(sampleRate) / float64(n)
	chromaEnergy = chromaConcentration(specs, binHz)

	pitches := make([]float64, 0, len(frames))
	for _, f := range frames {
		if hz, ok := yinPitch(f, sampleRate); ok {
			pitches = append(pitches, hz)
		}
	}
	if len(pitches) < 2 {
		pitchStability = 0.5
	} else {
		m := mean(pitches)
		if m > 0 {
			pitchStability = clamp01(1.0 - stddev(pitches, m)/m)
		} else {
			pitchStability = 0.5
		}
	}

	return harmonicRatio, pitchStability, chromaEnergy
}

// hpssRatio estimates the fraction of total spectrogram energy that is
// "harmonic" (stable across time at a given frequency bin) versus
// "percussive" (stable across frequency at a given time frame), via the
// median-filtering approach of Fitzgerald (2010), simplified to a single
// pass with a small fixed filter length.
func hpssRatio(specs [][]float64) float64 {
	nFrames := len(specs)
	if nFrames == 0 {
		return 0.5
	}
	nBins := len(specs[0])
	const filtLen = 9
	half := filtLen / 2

	var harmonicEnergy, percussiveEnergy float64
	for t := 0; t < nFrames; t++ {
		for k := 0; k < nBins; k++ {
			// harmonic: median across time at fixed frequency bin
			tLo, tHi := clampInt(t-half, 0, nFrames-1), clampInt(t+half, 0, nFrames-1)
			timeSlice := make([]float64, 0, tHi-tLo+1)
			for tt := tLo; tt <= tHi; tt++ {
				timeSlice = append(timeSlice, specs[tt][k])
			}
			hVal := median(timeSlice)

			// percussive: median across frequency at fixed time frame
			kLo, kHi := clampInt(k-half, 0, nBins-1), clampInt(k+half, 0, nBins-1)
			freqSlice := make([]float64, 0, kHi-kLo+1)
			for kk := kLo; kk <= kHi; kk++ {
				freqSlice = append(freqSlice, specs[t][kk])
			}
			pVal := median(freqSlice)

			if hVal+pVal <= 0 {
				continue
			}
			mag := specs[t][k]
			harmonicEnergy += mag * (hVal / (hVal + pVal))
			percussiveEnergy += mag * (pVal / (hVal + pVal))
		}
	}

	total := harmonicEnergy + percussiveEnergy
	if total <= 0 {
		return 0.5
	}
	return clamp01(harmonicEnergy / total)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// chromaConcentration folds spectral energy into 12 pitch classes (A4 =
// 440 Hz reference) and returns the fraction of total chroma energy held by
// the dominant class, a concentration proxy for tonal "chroma energy".
func chromaConcentration(specs [][]float64, binHz float64) float64 {
	var classes [12]float64
	for _, mag := range specs {
		for k := 1; k < len(mag); k++ {
			freq := float64(k) * binHz
			if freq < 20 || freq > 5000 {
				continue
			}
			class := pitchClass(freq)
			classes[class] += mag[k] * mag[k]
		}
	}
	var total, max float64
	for _, e := range classes {
		total += e
		if e > max {
			max = e
		}
	}
	if total <= 0 {
		return 0.3
	}
	return clamp01(max / total)
}

// pitchClass maps a frequency to one of 12 chroma bins relative to A4=440Hz.
func pitchClass(freq float64) int {
	semitone := 12 * math.Log2(freq/440.0)
	class := int(math.Round(semitone)) % 12
	if class < 0 {
		class += 12
	}
	return class
}

// yinPitch estimates the fundamental frequency of a frame via a
// difference-function autocorrelation (YIN-style), returning ok=false for
// unvoiced/silent frames.
func yinPitch(frame []float64, sampleRate int) (float64, bool) {
	const minHz, maxHz = 50.0, 1000.0
	maxLag := sampleRate / int(minHz)
	minLag := sampleRate / int(maxHz)
	if maxLag >= len(frame) {
		maxLag = len(frame) - 1
	}
	if minLag < 1 {
		minLag = 1
	}
	if maxLag <= minLag {
		return 0, false
	}

	diff := make([]float64, maxLag+1)
	for lag := minLag; lag <= maxLag; lag++ {
		var sum float64
		for i := 0; i+lag < len(frame); i++ {
			d := frame[i] - frame[i+lag]
			sum += d * d
		}
		diff[lag] = sum
	}

	var cum float64
	cmndf := make([]float64, maxLag+1)
	cmndf[minLag] = 1
	for lag := minLag + 1; lag <= maxLag; lag++ {
		cum += diff[lag]
		if cum <= 0 {
			cmndf[lag] = 1
		} else {
			cmndf[lag] = diff[lag] * float64(lag-minLag+1) / cum
		}
	}

	const threshold = 0.15
	bestLag := -1
	for lag := minLag + 1; lag <= maxLag; lag++ {
		if cmndf[lag] < threshold {
			bestLag = lag
			break
		}
	}
	if bestLag == -1 {
		return 0, false
	}
	return float64(sampleRate) / float64(bestLag), true
}
