package parammap

import (
	"testing"

	"github.com/auralis/auralis-core/internal/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaturateIdentityInLinearRegion(t *testing.T) {
	assert.Equal(t, 5.0, saturate(5.0, 12, 18))
	assert.Equal(t, -11.9, saturate(-11.9, 12, 18))
}

func TestSaturateBoundedByHardMax(t *testing.T) {
	assert.LessOrEqual(t, saturate(1000, 12, 18), 18.0)
	assert.GreaterOrEqual(t, saturate(-1000, 12, 18), -18.0)
	assert.Equal(t, 18.0, saturate(18, 12, 18))
	assert.Equal(t, 18.0, saturate(30, 12, 18))
}

func TestSaturateOddSymmetric(t *testing.T) {
	for _, g := range []float64{3, 10, 13, 15, 17, 18, 25} {
		assert.InDelta(t, saturate(g, 12, 18), -saturate(-g, 12, 18), 1e-9)
	}
}

func TestSaturateMonotone(t *testing.T) {
	prev := saturate(0, 12, 18)
	for g := 1.0; g <= 30; g += 1.0 {
		cur := saturate(g, 12, 18)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestSaturatePreservesZero(t *testing.T) {
	assert.Equal(t, 0.0, saturate(0, 12, 18))
}

func TestRatioFromCrestBoundaries(t *testing.T) {
	assert.Equal(t, 2.0, ratioFromCrest(3))
	assert.InDelta(t, 2.0, ratioFromCrest(6), 1e-9)
	assert.InDelta(t, 4.0, ratioFromCrest(10), 1e-9)
	assert.LessOrEqual(t, ratioFromCrest(50), 6.0)
}

func TestDynamicsMapperFormulas(t *testing.T) {
	fp := &fingerprint.Fingerprint{LUFS: -14, CrestFactor: 8, BassMidRatio: 1.0}
	d := NewDynamicsMapper()
	c := d.Map(fp)
	assert.InDelta(t, -14+4, c.ThresholdDB, 1e-9)
	assert.InDelta(t, 4.0, c.MakeupDB, 1e-9)
	assert.InDelta(t, 34.0, c.AttackMs, 1e-9) // max(5, 50-16)=34
	assert.InDelta(t, 200.0, c.ReleaseMs, 1e-9) // 100+100*1=200
}

func TestLevelMapperFormulas(t *testing.T) {
	fp := &fingerprint.Fingerprint{LUFS: -20, CrestFactor: 10, LoudnessVariationStd: 0.2}
	l := NewLevelMapper(-16.0)
	level := l.Map(fp)
	assert.InDelta(t, 4.0, level.GainDB, 1e-9)
	assert.InDelta(t, 5.2, level.HeadroomDB, 1e-9)
	assert.Equal(t, 1.0, level.SafetyMarginDB)
}

func TestHarmonicMapperEngagement(t *testing.T) {
	h := NewHarmonicMapper()

	sat := h.Map(&fingerprint.Fingerprint{HarmonicRatio: 0.8, PitchStability: 0.9, ChromaEnergy: 0.4})
	assert.True(t, sat.Enable)
	assert.InDelta(t, 0.2, sat.SaturationAmount, 1e-9)
	assert.Equal(t, 0.0, sat.ExciterAmount)

	exc := h.Map(&fingerprint.Fingerprint{HarmonicRatio: 0.3})
	assert.False(t, exc.Enable)
	assert.InDelta(t, 0.1, exc.ExciterAmount, 1e-9)
}

func TestMapAssemblesFullParameterSet(t *testing.T) {
	mapper := NewMapper(Config{EQNominalMaxDB: 12, EQHardMaxDB: 18, TargetLUFS: -16})
	fp := &fingerprint.Fingerprint{
		SubBass: 0.2, Bass: 0.2, LowMid: 0.15, Mid: 0.15, UpperMid: 0.1, Presence: 0.1, Air: 0.1,
		LUFS: -18, CrestFactor: 9, BassMidRatio: 0.5,
		SpectralCentroid: 0.6, SpectralFlatness: 0.3,
		HarmonicRatio: 0.6, PitchStability: 0.5, ChromaEnergy: 0.4,
		Method: fingerprint.StrategySampled,
	}
	ps := mapper.Map(fp)
	require.Len(t, ps.EQBands, EQBandCount)
	assert.Equal(t, MapperVersion, ps.MapperVersion)
	assert.Equal(t, fingerprint.StrategySampled, ps.FingerprintMethod)
	for _, g := range ps.EQBands {
		assert.LessOrEqual(t, g, 18.0)
		assert.GreaterOrEqual(t, g, -18.0)
	}
}
