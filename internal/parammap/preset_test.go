package parammap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fullParameterSet() *ParameterSet {
	ps := &ParameterSet{
		Compressor: Compressor{ThresholdDB: -12, Ratio: 4, AttackMs: 10, ReleaseMs: 100, MakeupDB: 2},
		Level:      Level{TargetLUFS: -16, GainDB: 3, HeadroomDB: 4, SafetyMarginDB: 1},
		Harmonic:   Harmonic{SaturationAmount: 0.2, ExciterAmount: 0.3, Enable: true},
	}
	ps.EQBands[4] = 5.0  // bass
	ps.EQBands[23] = 4.0 // presence
	return ps
}

func TestApplyPresetZeroIntensityIsNeutral(t *testing.T) {
	ps := fullParameterSet()
	out := ApplyPreset(ps, PresetAdaptive, 0)

	assert.Equal(t, 1.0, out.Compressor.Ratio)
	assert.Equal(t, 0.0, out.Level.GainDB)
	assert.Equal(t, 0.0, out.Harmonic.SaturationAmount)
}

func TestApplyPresetFullIntensityAdaptiveMatchesSource(t *testing.T) {
	ps := fullParameterSet()
	out := ApplyPreset(ps, PresetAdaptive, 1.0)

	assert.InDelta(t, ps.Compressor.Ratio, out.Compressor.Ratio, 1e-9)
	assert.InDelta(t, ps.Level.GainDB, out.Level.GainDB, 1e-9)
}

func TestApplyPresetWarmBoostsBassBand(t *testing.T) {
	ps := fullParameterSet()
	out := ApplyPreset(ps, PresetWarm, 1.0)
	assert.Greater(t, out.EQBands[4], ps.EQBands[4])
}

func TestApplyPresetBrightBoostsPresenceBand(t *testing.T) {
	ps := fullParameterSet()
	out := ApplyPreset(ps, PresetBright, 1.0)
	assert.Greater(t, out.EQBands[23], ps.EQBands[23])
}

func TestApplyPresetPunchyIncreasesRatio(t *testing.T) {
	ps := fullParameterSet()
	adaptive := ApplyPreset(ps, PresetAdaptive, 1.0)
	punchy := ApplyPreset(ps, PresetPunchy, 1.0)
	assert.Greater(t, punchy.Compressor.Ratio, adaptive.Compressor.Ratio)
}

func TestApplyPresetUnknownFallsBackToAdaptive(t *testing.T) {
	ps := fullParameterSet()
	out := ApplyPreset(ps, Preset("nonexistent"), 1.0)
	assert.InDelta(t, ps.Compressor.Ratio, out.Compressor.Ratio, 1e-9)
}

func TestApplyPresetClampsIntensity(t *testing.T) {
	ps := fullParameterSet()
	over := ApplyPreset(ps, PresetAdaptive, 1.5)
	capped := ApplyPreset(ps, PresetAdaptive, 1.0)
	assert.InDelta(t, capped.Compressor.Ratio, over.Compressor.Ratio, 1e-9)
}
