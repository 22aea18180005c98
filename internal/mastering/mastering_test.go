package mastering

import (
	"math"
	"testing"

	"github.com/auralis/auralis-core/internal/parammap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatParameterSet() *parammap.ParameterSet {
	ps := &parammap.ParameterSet{
		Compressor: parammap.Compressor{ThresholdDB: -12, Ratio: 2, AttackMs: 10, ReleaseMs: 100, MakeupDB: 0},
		Multiband: parammap.MultibandCompressor{
			Low:  parammap.Compressor{ThresholdDB: -12, Ratio: 2, AttackMs: 10, ReleaseMs: 100},
			Mid:  parammap.Compressor{ThresholdDB: -12, Ratio: 2, AttackMs: 10, ReleaseMs: 100},
			High: parammap.Compressor{ThresholdDB: -12, Ratio: 2, AttackMs: 10, ReleaseMs: 100},
		},
		Level:    parammap.Level{TargetLUFS: -16, GainDB: 0, HeadroomDB: 3, SafetyMarginDB: 1},
		Harmonic: parammap.Harmonic{Enable: false},
	}
	return ps
}

func sine(freq float64, seconds float64, sampleRate, channels int) []float32 {
	n := int(seconds * float64(sampleRate))
	out := make([]float32, n*channels)
	for i := 0; i < n; i++ {
		v := float32(0.3 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		for c := 0; c < channels; c++ {
			out[i*channels+c] = v
		}
	}
	return out
}

func TestProcessPassesThroughFiniteOutput(t *testing.T) {
	ps := flatParameterSet()
	proc := NewProcessor(ps, 44100, 2)
	samples := sine(440, 0.5, 44100, 2)

	out := proc.Process(samples, Options{})
	for _, s := range out {
		f := float64(s)
		assert.False(t, math.IsNaN(f) || math.IsInf(f, 0))
	}
}

func TestProcessDegradesOnNaNInput(t *testing.T) {
	ps := flatParameterSet()
	proc := NewProcessor(ps, 44100, 2)
	samples := []float32{float32(math.NaN()), 0, 0.1, 0.1}

	out := proc.Process(samples, Options{})
	require.Equal(t, samples, out) // passthrough, untouched
}

func TestProcessDegradesOnShapeMismatch(t *testing.T) {
	ps := flatParameterSet()
	proc := NewProcessor(ps, 44100, 2)
	samples := []float32{0.1, 0.2, 0.3} // not divisible by 2 channels

	out := proc.Process(samples, Options{})
	assert.Equal(t, samples, out)
}

func TestSkipMultibandOmitsThatStage(t *testing.T) {
	ps := flatParameterSet()
	proc := NewProcessor(ps, 44100, 2)
	samples := sine(440, 0.2, 44100, 2)

	out := proc.Process(samples, Options{SkipMultiband: true})
	for _, s := range out {
		f := float64(s)
		assert.False(t, math.IsNaN(f) || math.IsInf(f, 0))
	}
}

func TestEqFilterStatePersistsAcrossCalls(t *testing.T) {
	var gains [parammap.EQBandCount]float64
	gains[17] = 6.0 // boost 1kHz band
	eq := newGraphicEQ(gains, 44100, 1)

	samples1 := sine(1000, 0.05, 44100, 1)
	eq.process(samples1, 1)

	samples2 := sine(1000, 0.05, 44100, 1)
	eq.process(samples2, 1)

	// state carried across calls means the second call doesn't restart from
	// zero initial conditions -- verified indirectly by the filter not
	// producing a discontinuity-sized spike at the start of samples2.
	assert.Less(t, math.Abs(float64(samples2[0])), 1.0)
}

func TestLimiterBoundsOutputNearThreshold(t *testing.T) {
	limiter := newSoftLimiter(1.0, 44100) // 1dB headroom, threshold ~ 0.89
	samples := make([]float32, 4410)
	for i := range samples {
		samples[i] = 2.0 // way over threshold
	}
	limiter.process(samples, 1)
	for _, s := range samples[100:] { // skip attack transient
		assert.Less(t, float64(s), 1.2)
	}
}

func TestCompressorReducesGainAboveThreshold(t *testing.T) {
	comp := newCompressorState(parammap.Compressor{ThresholdDB: -20, Ratio: 4, AttackMs: 1, ReleaseMs: 50, MakeupDB: 0}, 44100)
	samples := make([]float32, 4410)
	for i := range samples {
		samples[i] = 0.5
	}
	comp.process(samples, 1)
	assert.Less(t, float64(samples[len(samples)-1]), 0.5)
}

func TestSaturationEngagesWaveshaper(t *testing.T) {
	h := newHarmonicEnhancer(parammap.Harmonic{SaturationAmount: 0.3, Enable: true}, 44100, 1)
	samples := []float32{0.9, -0.9, 0.9, -0.9}
	h.process(samples, 1)
	for _, s := range samples {
		assert.LessOrEqual(t, math.Abs(float64(s)), 1.0)
	}
}
