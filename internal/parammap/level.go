package parammap

import "github.com/auralis/auralis-core/internal/fingerprint"

// Level is the level-matching stage's parameters (spec §4.4).
type Level struct {
	TargetLUFS   float64
	GainDB       float64
	HeadroomDB   float64
	SafetyMarginDB float64
}

// LevelMapper derives Level from target LUFS and the fingerprint.
type LevelMapper struct {
	TargetLUFS float64
}

// NewLevelMapper constructs a LevelMapper for the configured target
// loudness (spec §6.6's target_lufs).
func NewLevelMapper(targetLUFS float64) *LevelMapper {
	return &LevelMapper{TargetLUFS: targetLUFS}
}

// Map computes gain/headroom/safety_margin per spec §4.4's exact formulas.
func (m *LevelMapper) Map(fp *fingerprint.Fingerprint) Level {
	return Level{
		TargetLUFS:     m.TargetLUFS,
		GainDB:         m.TargetLUFS - fp.LUFS,
		HeadroomDB:     fp.CrestFactor/2 + fp.LoudnessVariationStd,
		SafetyMarginDB: 1.0,
	}
}
