package mastering

import "github.com/auralis/auralis-core/internal/parammap"

// multiband splits the signal into three crossover bands (0-250Hz,
// 250-2kHz, 2-20kHz), compresses each independently with its own persistent
// envelope, and sums the bands back together (spec §4.5 item 3). The
// crossover filters are single second-order Butterworth biquads rather than a
// true Linkwitz-Riley reconstruction filter; acceptable since this stage is
// optional and bypassable at fast_start (spec §4.6).
type multiband struct {
	lowLP  []*biquad // per channel, extracts low band
	midHP  []*biquad // per channel, first stage of bandpass
	midLP  []*biquad // per channel, second stage of bandpass
	highHP []*biquad // per channel, extracts high band

	low, mid, high *compressorState
}

const (
	crossoverLowHz  = 250.0
	crossoverHighHz = 2000.0
)

func newMultiband(p parammap.MultibandCompressor, sampleRate float64, channels int) *multiband {
	mb := &multiband{
		low:  newCompressorState(p.Low, sampleRate),
		mid:  newCompressorState(p.Mid, sampleRate),
		high: newCompressorState(p.High, sampleRate),
	}
	for c := 0; c < channels; c++ {
		mb.lowLP = append(mb.lowLP, newLowpassBiquad(crossoverLowHz, sampleRate))
		mb.midHP = append(mb.midHP, newHighpassBiquad(crossoverLowHz, sampleRate))
		mb.midLP = append(mb.midLP, newLowpassBiquad(crossoverHighHz, sampleRate))
		mb.highHP = append(mb.highHP, newHighpassBiquad(crossoverHighHz, sampleRate))
	}
	return mb
}

func (mb *multiband) process(samples []float32, channels int) {
	frames := len(samples) / channels
	lowBuf := make([]float32, len(samples))
	midBuf := make([]float32, len(samples))
	highBuf := make([]float32, len(samples))

	for i := 0; i < frames; i++ {
		for c := 0; c < channels && c < len(mb.lowLP); c++ {
			x := float64(samples[i*channels+c])
			low := mb.lowLP[c].process(x)
			midTmp := mb.midHP[c].process(x)
			mid := mb.midLP[c].process(midTmp)
			high := mb.highHP[c].process(x)

			lowBuf[i*channels+c] = float32(low)
			midBuf[i*channels+c] = float32(mid)
			highBuf[i*channels+c] = float32(high)
		}
	}

	mb.low.process(lowBuf, channels)
	mb.mid.process(midBuf, channels)
	mb.high.process(highBuf, channels)

	for i := range samples {
		samples[i] = lowBuf[i] + midBuf[i] + highBuf[i]
	}
}

func (mb *multiband) reset() {
	for _, f := range mb.lowLP {
		f.reset()
	}
	for _, f := range mb.midHP {
		f.reset()
	}
	for _, f := range mb.midLP {
		f.reset()
	}
	for _, f := range mb.highHP {
		f.reset()
	}
	mb.low.reset()
	mb.mid.reset()
	mb.high.reset()
}
