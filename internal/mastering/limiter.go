package mastering

import "math"

// softLimiter is a brick-wall-ish peak limiter: headroomDB threshold,
// >=50:1 effective ratio, fast attack, 50ms release (spec §4.5 item 6).
type softLimiter struct {
	thresholdLin float64
	attackCoef   float64
	releaseCoef  float64
	envelope     float64
}

const limiterRatio = 50.0

func newSoftLimiter(headroomDB, sampleRate float64) *softLimiter {
	attackMs := 1.5 // within spec's 1-2ms range
	return &softLimiter{
		thresholdLin: math.Pow(10, -headroomDB/20),
		attackCoef:   timeConstantCoef(attackMs, sampleRate),
		releaseCoef:  timeConstantCoef(50.0, sampleRate),
	}
}

func (l *softLimiter) process(samples []float32, channels int) {
	frames := len(samples) / channels
	for i := 0; i < frames; i++ {
		var peak float64
		for c := 0; c < channels; c++ {
			av := math.Abs(float64(samples[i*channels+c]))
			if av > peak {
				peak = av
			}
		}

		coef := l.releaseCoef
		if peak > l.envelope {
			coef = l.attackCoef
		}
		l.envelope = coef*l.envelope + (1-coef)*peak

		gain := 1.0
		if l.envelope > l.thresholdLin {
			excessDB := 20 * math.Log10(l.envelope/l.thresholdLin)
			reducedDB := excessDB / limiterRatio
			gain = math.Pow(10, (reducedDB-excessDB)/20)
		}

		for c := 0; c < channels; c++ {
			samples[i*channels+c] = float32(float64(samples[i*channels+c]) * gain)
		}
	}
}

func (l *softLimiter) reset() {
	l.envelope = 0
}
