package mastering

import "github.com/auralis/auralis-core/internal/parammap"

// thirdOctaveQ approximates the Q of an ISO third-octave band filter
// (bandwidth ~= center * (2^(1/6) - 2^(-1/6))).
const thirdOctaveQ = 4.318

// graphicEQ is a 31-band cascade of peaking biquads, one cascade per
// channel so each channel's filter state is independent (spec §4.5 item 1).
type graphicEQ struct {
	bandsPerChannel [][]*biquad // [channel][band]
	sampleRate      float64
}

// newGraphicEQ builds a cascade for the given gains (dB, one per ISO band)
// at sampleRate, replicated across channels.
func newGraphicEQ(gains [parammap.EQBandCount]float64, sampleRate float64, channels int) *graphicEQ {
	eq := &graphicEQ{sampleRate: sampleRate}
	eq.bandsPerChannel = make([][]*biquad, channels)
	for c := 0; c < channels; c++ {
		bands := make([]*biquad, parammap.EQBandCount)
		for b, g := range gains {
			bands[b] = newPeakingBiquad(parammap.EQBandCenters[b], sampleRate, thirdOctaveQ, g)
		}
		eq.bandsPerChannel[c] = bands
	}
	return eq
}

// process filters interleaved samples in place, cascading all 31 bands per
// channel while carrying filter state across calls.
func (eq *graphicEQ) process(samples []float32, channels int) {
	frames := len(samples) / channels
	for i := 0; i < frames; i++ {
		for c := 0; c < channels && c < len(eq.bandsPerChannel); c++ {
			x := float64(samples[i*channels+c])
			for _, band := range eq.bandsPerChannel[c] {
				x = band.process(x)
			}
			samples[i*channels+c] = float32(x)
		}
	}
}

// resetAll clears every band's filter state across all channels.
func (eq *graphicEQ) resetAll() {
	for _, bands := range eq.bandsPerChannel {
		for _, b := range bands {
			b.reset()
		}
	}
}
