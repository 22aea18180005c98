package parammap

import (
	"math"

	"github.com/auralis/auralis-core/internal/fingerprint"
)

// EqMapper maps the fingerprint's seven frequency dimensions, overlaid with
// a spectral-centroid-dependent adjustment, into 31 saturated EQ gains
// (spec §4.4).
type EqMapper struct {
	NominalMaxDB float64
	HardMaxDB    float64
}

// NewEqMapper builds an EqMapper with the configured saturation knees.
func NewEqMapper(nominalMaxDB, hardMaxDB float64) *EqMapper {
	return &EqMapper{NominalMaxDB: nominalMaxDB, HardMaxDB: hardMaxDB}
}

// Map returns 31 post-saturation EQ gains in dB.
func (m *EqMapper) Map(fp *fingerprint.Fingerprint) [EQBandCount]float64 {
	var raw [EQBandCount]float64

	shares := map[string]float64{
		"sub_bass":  fp.SubBass,
		"bass":      fp.Bass,
		"low_mid":   fp.LowMid,
		"mid":       fp.Mid,
		"upper_mid": fp.UpperMid,
		"presence":  fp.Presence,
		"air":       fp.Air,
	}

	for _, driver := range BandNormalizationTable {
		share := shares[driver.Name]
		gain := percentToDB(share, driver.MinDB, driver.MaxDB)
		for b := driver.Bands.Lo; b <= driver.Bands.Hi && b < EQBandCount; b++ {
			raw[b] += gain
		}
	}

	applyCentroidOverlay(&raw, fp.SpectralCentroid, fp.SpectralFlatness)

	var out [EQBandCount]float64
	for i, g := range raw {
		out[i] = saturate(g, m.NominalMaxDB, m.HardMaxDB)
	}
	return out
}

// applyCentroidOverlay applies a weight-0.5 adjustment to a handful of
// bands based on how bright (high centroid) or noise-like (high flatness)
// the source is: bright content attenuates upper mids, dull content lifts
// presence, very bright audio trims air, noise-like audio attenuates common
// resonance bands (spec §4.4).
func applyCentroidOverlay(raw *[EQBandCount]float64, centroid, flatness float64) {
	const weight = 0.5

	brightness := (centroid - 0.5) * 2 // -1 (dull) .. +1 (bright)

	// upper mids (indices 20-22, ~2-3.15kHz): attenuate when bright.
	for b := 20; b <= 22; b++ {
		raw[b] += -brightness * 3.0 * weight
	}
	// presence (indices 23-26, ~4-8kHz): lift when dull.
	for b := 23; b <= 26; b++ {
		raw[b] += -brightness * 2.0 * weight
	}
	// air (indices 27-30, ~10-20kHz): trim when very bright.
	if brightness > 0.5 {
		for b := 27; b <= 30; b++ {
			raw[b] += -(brightness - 0.5) * 4.0 * weight
		}
	}
	// common resonance bands (indices 10-13, ~200-400Hz): attenuate when
	// noise-like (high flatness).
	if flatness > 0.6 {
		for b := 10; b <= 13; b++ {
			raw[b] += -(flatness - 0.6) * 5.0 * weight
		}
	}
}

// saturate applies spec §4.4's three-region gain saturation: linear
// passthrough below nominalMax, soft exponential knee up to hardMax, hard
// clamp beyond. The result is monotone, odd-symmetric, bounded by ±hardMax,
// and identity on the linear region.
func saturate(g, nominalMax, hardMax float64) float64 {
	ag := math.Abs(g)
	sign := 1.0
	if g < 0 {
		sign = -1.0
	}

	switch {
	case ag <= nominalMax:
		return g
	case ag < hardMax:
		span := hardMax - nominalMax
		return sign * (nominalMax + span*(1-math.Exp(-(ag-nominalMax)/span)))
	default:
		return sign * hardMax
	}
}
