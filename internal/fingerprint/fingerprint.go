// Package fingerprint computes the 25-dimensional perceptual audio
// fingerprint (spec §3.3) that drives ParameterMapper. Each of the seven
// semantic groups (frequency, dynamics, temporal, spectral, harmonic,
// variation, stereo) is computed by an isolated sub-analyzer; any panic
// inside one is recovered and replaced with that group's neutral defaults,
// so Analyze itself never fails (spec §4.3's fail-soft contract).
package fingerprint

import (
	"math"

	"github.com/auralis/auralis-core/internal/errors"
)

// Strategy selects how much of the track the harmonic analyzer walks.
type Strategy string

const (
	StrategyFullTrack Strategy = "full-track"
	StrategySampled   Strategy = "sampled"
)

// Fingerprint is the 25-field perceptual feature vector plus its method tag
// and per-group degraded bits.
type Fingerprint struct {
	// Frequency (7): percentage (0..1 fraction) of total spectral energy.
	SubBass  float64
	Bass     float64
	LowMid   float64
	Mid      float64
	UpperMid float64
	Presence float64
	Air      float64

	// Dynamics (3)
	LUFS         float64
	CrestFactor  float64
	BassMidRatio float64

	// Temporal (4)
	TempoBPM         float64
	RhythmStability  float64
	TransientDensity float64
	SilenceRatio     float64

	// Spectral (3)
	SpectralCentroid float64
	SpectralRolloff  float64
	SpectralFlatness float64

	// Harmonic (3)
	HarmonicRatio  float64
	PitchStability float64
	ChromaEnergy   float64

	// Variation (3)
	DynamicRangeVariation float64
	LoudnessVariationStd  float64
	PeakConsistency       float64

	// Stereo (2)
	StereoWidth      float64
	PhaseCorrelation float64

	Method   Strategy
	Degraded map[string]bool
}

// neutralFrequency returns a flat, energy-neutral band split.
func neutralFrequency() (subBass, bass, lowMid, mid, upperMid, presence, air float64) {
	return 1.0 / 7, 1.0 / 7, 1.0 / 7, 1.0 / 7, 1.0 / 7, 1.0 / 7, 1.0 / 7
}

// Config controls sub-analyzer behaviour (mirrors internal/config's
// FingerprintSettings).
type Config struct {
	Strategy          Strategy
	SamplingIntervalS float64 // spacing between harmonic analysis windows, sampled mode
	SampleWindowS     float64 // width of each harmonic analysis window, sampled mode
}

// Engine runs the full analysis pipeline over a decoded buffer.
type Engine struct {
	cfg Config
}

// NewEngine constructs a fingerprint Engine from configuration, defaulting
// unset sampling parameters to spec.md's §6.6 values.
func NewEngine(cfg Config) *Engine {
	if cfg.SamplingIntervalS <= 0 {
		cfg.SamplingIntervalS = 20.0
	}
	if cfg.SampleWindowS <= 0 {
		cfg.SampleWindowS = 5.0
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategySampled
	}
	return &Engine{cfg: cfg}
}

// Analyze computes a 25-field Fingerprint for an interleaved float32 buffer.
// strategy "sampled" falls back to full-track silently when duration < 5s,
// per spec §4.3.
func (e *Engine) Analyze(samples []float32, channels, sampleRate int) *Fingerprint {
	fp := &Fingerprint{Method: e.cfg.Strategy, Degraded: map[string]bool{}}

	if channels <= 0 {
		channels = 1
	}
	if sampleRate <= 0 {
		sampleRate = 44100
	}

	mono := toMono(samples, channels)
	durationS := float64(len(mono)) / float64(sampleRate)

	strategy := e.cfg.Strategy
	if strategy == StrategySampled && durationS < 5.0 {
		strategy = StrategyFullTrack
	}
	fp.Method = strategy

	runGroup(fp, "frequency", func() {
		fp.SubBass, fp.Bass, fp.LowMid, fp.Mid, fp.UpperMid, fp.Presence, fp.Air =
			analyzeFrequencyBands(mono, sampleRate)
	}, func() {
		fp.SubBass, fp.Bass, fp.LowMid, fp.Mid, fp.UpperMid, fp.Presence, fp.Air = neutralFrequency()
	})

	runGroup(fp, "dynamics", func() {
		fp.LUFS, fp.CrestFactor = analyzeDynamics(samples)
		fp.BassMidRatio = bassMidRatio(fp.Bass, fp.Mid)
	}, func() {
		fp.LUFS, fp.CrestFactor, fp.BassMidRatio = -23.0, 6.0, 0.0
	})

	runGroup(fp, "temporal", func() {
		fp.TempoBPM, fp.RhythmStability, fp.TransientDensity, fp.SilenceRatio =
			analyzeTemporal(mono, sampleRate, durationS)
	}, func() {
		fp.TempoBPM, fp.RhythmStability, fp.TransientDensity, fp.SilenceRatio = 120.0, 0.5, 0.2, 0.1
	})

	runGroup(fp, "spectral", func() {
		fp.SpectralCentroid, fp.SpectralRolloff, fp.SpectralFlatness = analyzeSpectral(mono, sampleRate)
	}, func() {
		fp.SpectralCentroid, fp.SpectralRolloff, fp.SpectralFlatness = 0.5, 0.5, 0.5
	})

	runGroup(fp, "harmonic", func() {
		fp.HarmonicRatio, fp.PitchStability, fp.ChromaEnergy =
			analyzeHarmonic(mono, sampleRate, durationS, strategy, e.cfg.SamplingIntervalS, e.cfg.SampleWindowS)
	}, func() {
		fp.HarmonicRatio, fp.PitchStability, fp.ChromaEnergy = 0.5, 0.5, 0.3
	})

	runGroup(fp, "variation", func() {
		fp.DynamicRangeVariation, fp.LoudnessVariationStd, fp.PeakConsistency =
			analyzeVariation(mono, sampleRate)
	}, func() {
		fp.DynamicRangeVariation, fp.LoudnessVariationStd, fp.PeakConsistency = 0.2, 0.1, 0.8
	})

	runGroup(fp, "stereo", func() {
		fp.StereoWidth, fp.PhaseCorrelation = analyzeStereo(samples, channels)
	}, func() {
		fp.StereoWidth, fp.PhaseCorrelation = 0.3, 1.0
	})

	sanitize(fp)
	return fp
}

// runGroup executes analyze; if it panics, logs nothing (callers observe
// only the degraded bit, per spec §7's AnalyzerDegraded policy of "never
// surfaced to the client") and substitutes neutral defaults.
func runGroup(fp *Fingerprint, group string, analyze func(), neutral func()) {
	defer func() {
		if r := recover(); r != nil {
			fp.Degraded[group] = true
			neutral()
			_ = errors.Newf("fingerprint sub-analyzer %q degraded: %v", group, r).
				Component("fingerprint").
				Category(errors.CategoryAnalyzerDegraded).
				Build()
		}
	}()
	analyze()
}

// sanitize guarantees all 25 fields are finite, substituting 0 for anything
// that slipped through a sub-analyzer as NaN/Inf (spec §3.3's invariant).
func sanitize(fp *Fingerprint) {
	fields := []*float64{
		&fp.SubBass, &fp.Bass, &fp.LowMid, &fp.Mid, &fp.UpperMid, &fp.Presence, &fp.Air,
		&fp.LUFS, &fp.CrestFactor, &fp.BassMidRatio,
		&fp.TempoBPM, &fp.RhythmStability, &fp.TransientDensity, &fp.SilenceRatio,
		&fp.SpectralCentroid, &fp.SpectralRolloff, &fp.SpectralFlatness,
		&fp.HarmonicRatio, &fp.PitchStability, &fp.ChromaEnergy,
		&fp.DynamicRangeVariation, &fp.LoudnessVariationStd, &fp.PeakConsistency,
		&fp.StereoWidth, &fp.PhaseCorrelation,
	}
	for _, f := range fields {
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			*f = 0
		}
	}
}

func bassMidRatio(bassEnergy, midEnergy float64) float64 {
	if midEnergy <= 0 {
		midEnergy = 1e-9
	}
	if bassEnergy <= 0 {
		bassEnergy = 1e-9
	}
	return 10 * math.Log10(bassEnergy/midEnergy)
}
