package fingerprint

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineWave(freqHz float64, durationS float64, sampleRate int, channels int) []float32 {
	n := int(durationS * float64(sampleRate))
	out := make([]float32, n*channels)
	for i := 0; i < n; i++ {
		v := float32(0.5 * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate)))
		for c := 0; c < channels; c++ {
			out[i*channels+c] = v
		}
	}
	return out
}

func noiseSignal(durationS float64, sampleRate, channels int) []float32 {
	n := int(durationS * float64(sampleRate))
	out := make([]float32, n*channels)
	r := rand.New(rand.NewSource(1))
	for i := range out {
		out[i] = float32(r.Float64()*2 - 1)
	}
	return out
}

func TestAnalyzeReturnsFiniteFields(t *testing.T) {
	samples := sineWave(440, 6.0, 44100, 2)
	engine := NewEngine(Config{Strategy: StrategyFullTrack})
	fp := engine.Analyze(samples, 2, 44100)

	values := []float64{
		fp.SubBass, fp.Bass, fp.LowMid, fp.Mid, fp.UpperMid, fp.Presence, fp.Air,
		fp.LUFS, fp.CrestFactor, fp.BassMidRatio,
		fp.TempoBPM, fp.RhythmStability, fp.TransientDensity, fp.SilenceRatio,
		fp.SpectralCentroid, fp.SpectralRolloff, fp.SpectralFlatness,
		fp.HarmonicRatio, fp.PitchStability, fp.ChromaEnergy,
		fp.DynamicRangeVariation, fp.LoudnessVariationStd, fp.PeakConsistency,
		fp.StereoWidth, fp.PhaseCorrelation,
	}
	require.Len(t, values, 25)
	for i, v := range values {
		assert.Falsef(t, math.IsNaN(v) || math.IsInf(v, 0), "field %d not finite: %v", i, v)
	}
}

func TestAnalyzeEmptyBufferDoesNotPanic(t *testing.T) {
	engine := NewEngine(Config{Strategy: StrategyFullTrack})
	assert.NotPanics(t, func() {
		fp := engine.Analyze(nil, 2, 44100)
		assert.NotNil(t, fp)
	})
}

func TestSampledFallsBackToFullTrackBelowFiveSeconds(t *testing.T) {
	samples := sineWave(220, 2.0, 44100, 2)
	engine := NewEngine(Config{Strategy: StrategySampled, SamplingIntervalS: 20, SampleWindowS: 5})
	fp := engine.Analyze(samples, 2, 44100)
	assert.Equal(t, StrategyFullTrack, fp.Method)
}

func TestMonoStereoWidthIsZero(t *testing.T) {
	samples := sineWave(440, 2.0, 44100, 1)
	width, corr := analyzeStereo(samples, 1)
	assert.Equal(t, 0.0, width)
	assert.Equal(t, 1.0, corr)
}

func TestIdenticalChannelsZeroWidthFullCorrelation(t *testing.T) {
	mono := sineWave(440, 1.0, 44100, 1)
	stereo := make([]float32, len(mono)*2)
	for i, v := range mono {
		stereo[i*2] = v
		stereo[i*2+1] = v
	}
	width, corr := analyzeStereo(stereo, 2)
	assert.InDelta(t, 0.0, width, 1e-6)
	assert.InDelta(t, 1.0, corr, 1e-6)
}

func TestFrequencyBandsSumToOne(t *testing.T) {
	samples := sineWave(1000, 3.0, 44100, 1)
	mono := toMono(samples, 1)
	subBass, bass, lowMid, mid, upperMid, presence, air := analyzeFrequencyBands(mono, 44100)
	sum := subBass + bass + lowMid + mid + upperMid + presence + air
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestDynamicsSineWaveCrestFactorNearExpected(t *testing.T) {
	samples := sineWave(440, 2.0, 44100, 1)
	lufs, crest := analyzeDynamics(samples)
	// a pure sine's crest factor is 20*log10(sqrt(2)) ~= 3.01 dB
	assert.InDelta(t, 3.01, crest, 0.5)
	assert.Less(t, lufs, 0.0)
}

func TestSilenceRatioHighForSilence(t *testing.T) {
	mono := make([]float64, 44100*3)
	ratio := silenceRatioFromMono(mono)
	assert.Greater(t, ratio, 0.9)
}

func TestDegradedBitSetOnPanickingAnalyzer(t *testing.T) {
	fp := &Fingerprint{Degraded: map[string]bool{}}
	runGroup(fp, "frequency", func() {
		panic("boom")
	}, func() {
		fp.SubBass = 1.0 / 7
	})
	assert.True(t, fp.Degraded["frequency"])
	assert.InDelta(t, 1.0/7, fp.SubBass, 1e-9)
}

func TestNoiseHasLowerHarmonicRatioThanTone(t *testing.T) {
	tone := sineWave(440, 6.0, 44100, 1)
	noise := noiseSignal(6.0, 44100, 1)

	toneMono := toMono(tone, 1)
	noiseMono := toMono(noise, 1)

	toneRatio, _, _ := analyzeHarmonicWindow(toneMono, 44100)
	noiseRatio, _, _ := analyzeHarmonicWindow(noiseMono, 44100)

	assert.Greater(t, toneRatio, noiseRatio-0.3) // loose bound; HPSS proxy, not exact
}
