package parammap

// Preset is a named bias applied on top of the fingerprint-derived
// ParameterSet (spec §9 glossary: "a named bias applied during parameter
// mapping ... interpretation is left to the mapper"). Bands below are a
// concrete, deterministic interpretation: each preset nudges specific EQ
// regions and the compressor/harmonic stages away from the neutral
// fingerprint-only result.
type Preset string

const (
	PresetAdaptive Preset = "adaptive" // no bias; fingerprint-only result
	PresetGentle   Preset = "gentle"
	PresetWarm     Preset = "warm"
	PresetBright   Preset = "bright"
	PresetPunchy   Preset = "punchy"
)

// presetBias describes a preset's per-region EQ multiplier and its
// compressor-ratio / harmonic-amount nudges.
type presetBias struct {
	eqMultiplier map[string]float64 // BandNormalizationTable.Name -> gain multiplier
	ratioDelta   float64            // added to Compressor.Ratio before clamping
	harmonicBias float64            // added to Harmonic.SaturationAmount
}

var presetBiases = map[Preset]presetBias{
	PresetAdaptive: {},
	PresetGentle: {
		eqMultiplier: map[string]float64{"presence": 0.6, "air": 0.6},
		ratioDelta:   -0.5,
		harmonicBias: -0.05,
	},
	PresetWarm: {
		eqMultiplier: map[string]float64{"sub_bass": 1.3, "bass": 1.3, "low_mid": 1.15, "presence": 0.85, "air": 0.7},
		ratioDelta:   0,
		harmonicBias: 0.1,
	},
	PresetBright: {
		eqMultiplier: map[string]float64{"presence": 1.3, "air": 1.4, "bass": 0.9},
		ratioDelta:   0,
		harmonicBias: -0.05,
	},
	PresetPunchy: {
		eqMultiplier: map[string]float64{"bass": 1.2, "low_mid": 1.1},
		ratioDelta:   1.0,
		harmonicBias: 0.05,
	},
}

// ApplyPreset blends ps toward a neutral (unprocessed) parameter set by
// (1-intensity), then applies preset's region biases, per spec's
// "Intensity ... scales the magnitude of derived parameters ... away from
// neutral" (§9 glossary). intensity is clamped to [0,1].
func ApplyPreset(ps *ParameterSet, preset Preset, intensity float64) *ParameterSet {
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}

	bias, ok := presetBiases[preset]
	if !ok {
		bias = presetBiases[PresetAdaptive]
	}

	out := *ps

	for i := range out.EQBands {
		out.EQBands[i] = ps.EQBands[i] * intensity
	}
	for _, driver := range BandNormalizationTable {
		mult, ok := bias.eqMultiplier[driver.Name]
		if !ok {
			continue
		}
		for b := driver.Bands.Lo; b <= driver.Bands.Hi; b++ {
			out.EQBands[b] = saturate(out.EQBands[b]*mult, 12, 18)
		}
	}

	out.Compressor = blendCompressor(ps.Compressor, intensity, bias.ratioDelta)
	out.Multiband.Low = blendCompressor(ps.Multiband.Low, intensity, bias.ratioDelta)
	out.Multiband.Mid = blendCompressor(ps.Multiband.Mid, intensity, bias.ratioDelta)
	out.Multiband.High = blendCompressor(ps.Multiband.High, intensity, bias.ratioDelta)

	out.Level.GainDB = ps.Level.GainDB * intensity
	out.Level.HeadroomDB = ps.Level.HeadroomDB

	out.Harmonic.SaturationAmount = clampFloat(ps.Harmonic.SaturationAmount*intensity+bias.harmonicBias, 0, 0.3)
	out.Harmonic.ExciterAmount = clampFloat(ps.Harmonic.ExciterAmount*intensity, 0, 1)
	out.Harmonic.Enable = ps.Harmonic.Enable && intensity > 0

	return &out
}

// blendCompressor linearly interpolates ratio from 1:1 (neutral, no
// compression) to the fingerprint-derived ratio by intensity, then applies
// the preset's ratio delta, clamped to the mapper's [1,6] compressor range.
func blendCompressor(c Compressor, intensity, ratioDelta float64) Compressor {
	out := c
	out.Ratio = clampRatio(1+(c.Ratio-1)*intensity + ratioDelta)
	out.MakeupDB = c.MakeupDB * intensity
	return out
}
