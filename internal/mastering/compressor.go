package mastering

import (
	"math"

	"github.com/auralis/auralis-core/internal/parammap"
)

// compressorState is a feed-forward peak compressor with a persistent
// envelope follower (spec §4.5 item 2). Stereo-linked: one envelope drives
// gain reduction applied identically to all channels, avoiding image shift.
type compressorState struct {
	thresholdDB float64
	ratio       float64
	attackCoef  float64
	releaseCoef float64
	makeupLin   float64
	envelope    float64
}

func newCompressorState(p parammap.Compressor, sampleRate float64) *compressorState {
	return &compressorState{
		thresholdDB: p.ThresholdDB,
		ratio:       p.Ratio,
		attackCoef:  timeConstantCoef(p.AttackMs, sampleRate),
		releaseCoef: timeConstantCoef(p.ReleaseMs, sampleRate),
		makeupLin:   math.Pow(10, p.MakeupDB/20),
	}
}

func timeConstantCoef(ms, sampleRate float64) float64 {
	if ms <= 0 {
		ms = 1
	}
	return math.Exp(-1.0 / (ms / 1000.0 * sampleRate))
}

// process applies gain reduction to interleaved samples in place, reading
// peak level across all channels per frame to drive one shared envelope.
func (c *compressorState) process(samples []float32, channels int) {
	frames := len(samples) / channels
	for i := 0; i < frames; i++ {
		var peak float64
		for ch := 0; ch < channels; ch++ {
			av := math.Abs(float64(samples[i*channels+ch]))
			if av > peak {
				peak = av
			}
		}

		coef := c.releaseCoef
		if peak > c.envelope {
			coef = c.attackCoef
		}
		c.envelope = coef*c.envelope + (1-coef)*peak

		envDB := 20 * math.Log10(math.Max(c.envelope, 1e-9))
		gainDB := 0.0
		if envDB > c.thresholdDB {
			gainDB = (c.thresholdDB - envDB) * (1 - 1/c.ratio)
		}
		gainLin := math.Pow(10, gainDB/20) * c.makeupLin

		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = float32(float64(samples[i*channels+ch]) * gainLin)
		}
	}
}

func (c *compressorState) reset() {
	c.envelope = 0
}
