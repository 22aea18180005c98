package mastering

import (
	"math"

	"github.com/auralis/auralis-core/internal/parammap"
)

// harmonicEnhancer adds a tanh waveshaper (saturation) and a high-shelf
// exciter stage, gated by parammap.Harmonic's enable flag and amounts
// (spec §4.5 item 5).
type harmonicEnhancer struct {
	params parammap.Harmonic
	shelf  []*biquad // per channel
}

const exciterShelfHz = 6000.0

func newHarmonicEnhancer(p parammap.Harmonic, sampleRate float64, channels int) *harmonicEnhancer {
	h := &harmonicEnhancer{params: p}
	for c := 0; c < channels; c++ {
		h.shelf = append(h.shelf, newHighShelfBiquad(exciterShelfHz, sampleRate, 6.0))
	}
	return h
}

func (h *harmonicEnhancer) process(samples []float32, channels int) {
	if !h.params.Enable {
		return
	}

	if h.params.SaturationAmount > 0 {
		drive := 1 + h.params.SaturationAmount*4 // amount in [0,0.3] -> drive in [1,2.2]
		for i, s := range samples {
			x := float64(s) * drive
			shaped := math.Tanh(x)
			samples[i] = float32(float64(s)*(1-h.params.SaturationAmount) + shaped*h.params.SaturationAmount)
		}
	}

	if h.params.ExciterAmount > 0 {
		frames := len(samples) / channels
		for i := 0; i < frames; i++ {
			for c := 0; c < channels && c < len(h.shelf); c++ {
				idx := i*channels + c
				dry := float64(samples[idx])
				wet := h.shelf[c].process(dry)
				samples[idx] = float32(dry + (wet-dry)*h.params.ExciterAmount)
			}
		}
	}
}

func (h *harmonicEnhancer) reset() {
	for _, f := range h.shelf {
		f.reset()
	}
}
