package parammap

import "github.com/auralis/auralis-core/internal/fingerprint"

// Harmonic is the harmonic-enhancement stage's parameters (spec §4.4).
type Harmonic struct {
	SaturationAmount float64 // 0..1
	ExciterAmount    float64 // 0..1
	Enable           bool
}

// HarmonicMapper derives Harmonic from the fingerprint's harmonic group.
type HarmonicMapper struct{}

// NewHarmonicMapper constructs a HarmonicMapper.
func NewHarmonicMapper() *HarmonicMapper { return &HarmonicMapper{} }

// Map implements spec §4.4's exact saturation/exciter engagement rules.
func (m *HarmonicMapper) Map(fp *fingerprint.Fingerprint) Harmonic {
	var h Harmonic
	h.Enable = fp.HarmonicRatio > 0.5

	if fp.HarmonicRatio > 0.7 && fp.PitchStability > 0.8 {
		h.SaturationAmount = minFloat(0.3, fp.ChromaEnergy/2)
	}
	if fp.HarmonicRatio < 0.4 {
		h.ExciterAmount = (0.5 - fp.HarmonicRatio) * 0.5
	}

	return h
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
