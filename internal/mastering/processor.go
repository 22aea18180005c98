package mastering

import (
	"math"

	"github.com/auralis/auralis-core/internal/parammap"
)

// Processor is a stateful per-(parameter set, sample rate) mastering chain.
// A Processor instance is exclusively owned by one ChunkProcessor; concurrent
// use is undefined, but distinct Processors run in parallel freely (spec
// §4.5's thread-safety note).
type Processor struct {
	sampleRate float64
	channels   int

	eq         *graphicEQ
	compressor *compressorState
	multiband  *multiband
	harmonic   *harmonicEnhancer
	limiter    *softLimiter

	gainLin float64

	degraded map[string]bool
}

// NewProcessor builds a Processor from a fully assembled parameter set.
func NewProcessor(p *parammap.ParameterSet, sampleRate float64, channels int) *Processor {
	return &Processor{
		sampleRate: sampleRate,
		channels:   channels,
		eq:         newGraphicEQ(p.EQBands, sampleRate, channels),
		compressor: newCompressorState(p.Compressor, sampleRate),
		multiband:  newMultiband(p.Multiband, sampleRate, channels),
		harmonic:   newHarmonicEnhancer(p.Harmonic, sampleRate, channels),
		limiter:    newSoftLimiter(p.Level.HeadroomDB, sampleRate),
		gainLin:    math.Pow(10, (p.Level.GainDB-p.Level.SafetyMarginDB)/20),
		degraded:   map[string]bool{},
	}
}

// Options controls per-call bypass behaviour.
type Options struct {
	// SkipMultiband bypasses the optional multiband pass, used by
	// ChunkProcessor's fast_start path for chunk 0 (spec §4.6 item 3).
	SkipMultiband bool
}

// Process runs the fixed six-stage pipeline over chunk_pcm in place and
// returns it. Any stage whose input is malformed (NaN/Inf, shape mismatch)
// is skipped for that call (passthrough) and its degraded bit is set; the
// pipeline as a whole never fails (spec §4.5).
func (p *Processor) Process(samples []float32, opts Options) []float32 {
	p.degraded = map[string]bool{}

	if len(samples) == 0 || p.channels <= 0 || len(samples)%p.channels != 0 {
		p.degraded["shape"] = true
		return samples
	}

	if !isFinite(samples) {
		p.degraded["input"] = true
		return samples
	}

	p.runStage("eq", samples, func() {
		p.eq.process(samples, p.channels)
	}, p.eq.resetAll)

	p.runStage("compressor", samples, func() {
		p.compressor.process(samples, p.channels)
	}, p.compressor.reset)

	if !opts.SkipMultiband {
		p.runStage("multiband", samples, func() {
			p.multiband.process(samples, p.channels)
		}, p.multiband.reset)
	}

	p.runStage("level", samples, func() {
		for i, s := range samples {
			samples[i] = float32(float64(s) * p.gainLin)
		}
	}, func() {})

	p.runStage("harmonic", samples, func() {
		p.harmonic.process(samples, p.channels)
	}, p.harmonic.reset)

	p.runStage("limiter", samples, func() {
		p.limiter.process(samples, p.channels)
	}, p.limiter.reset)

	return samples
}

// runStage applies fn to samples, but rolls back to the pre-stage copy and
// resets that stage's persistent state if fn introduced non-finite values
// or panicked — the passthrough-on-malformed-input contract of spec §4.5.
func (p *Processor) runStage(name string, samples []float32, fn func(), onDegrade func()) {
	before := make([]float32, len(samples))
	copy(before, samples)

	degraded := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				degraded = true
			}
		}()
		fn()
	}()

	if !isFinite(samples) {
		degraded = true
	}

	if degraded {
		copy(samples, before)
		p.degraded[name] = true
		onDegrade()
	}
}

// Degraded reports which stages passed through unmodified on the most
// recent Process call due to malformed input.
func (p *Processor) Degraded() map[string]bool {
	return p.degraded
}

func isFinite(samples []float32) bool {
	for _, s := range samples {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
