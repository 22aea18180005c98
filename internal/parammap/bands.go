// Package parammap converts a fingerprint.Fingerprint into a
// mastering.ParameterSet: 31-band EQ gains, a compressor (plus optional
// multiband variant), a level target and harmonic enhancement amounts.
// Grounded on spec §4.4; the declarative BandNormalizationTable lets the
// frequency->EQ tuning be swapped without touching the mapping logic.
package parammap

// EQBandCount is the number of ISO third-octave bands from 20 Hz to 20 kHz.
const EQBandCount = 31

// EQBandCenters holds the 31 ISO third-octave center frequencies in Hz.
var EQBandCenters = [EQBandCount]float64{
	20, 25, 31.5, 40, 50, 63, 80, 100, 125, 160,
	200, 250, 315, 400, 500, 630, 800, 1000, 1250, 1600,
	2000, 2500, 3150, 4000, 5000, 6300, 8000, 10000, 12500, 16000, 20000,
}

// bandRange is an inclusive index range [Lo, Hi] into EQBandCenters.
type bandRange struct {
	Lo, Hi int
}

// frequencyDriver ties one of the fingerprint's seven frequency dimensions
// to the EQ bands it controls and the dB range its 0..1 value maps onto.
type frequencyDriver struct {
	Name     string
	Bands    bandRange
	MinDB    float64
	MaxDB    float64
}

// BandNormalizationTable is the declarative frequency-dimension -> EQ-band
// map spec §4.4 calls for. Replacing this table alone re-tunes the mapper.
var BandNormalizationTable = []frequencyDriver{
	{Name: "sub_bass", Bands: bandRange{0, 3}, MinDB: -6, MaxDB: 6},   // 20-40Hz
	{Name: "bass", Bands: bandRange{4, 9}, MinDB: -6, MaxDB: 6},       // 50-160Hz
	{Name: "low_mid", Bands: bandRange{10, 13}, MinDB: -4, MaxDB: 4},  // 200-400Hz
	{Name: "mid", Bands: bandRange{14, 19}, MinDB: -4, MaxDB: 4},      // 500-1600Hz
	{Name: "upper_mid", Bands: bandRange{20, 22}, MinDB: -4, MaxDB: 4}, // 2000-3150Hz
	{Name: "presence", Bands: bandRange{23, 26}, MinDB: -5, MaxDB: 5}, // 4000-8000Hz
	{Name: "air", Bands: bandRange{27, 30}, MinDB: -5, MaxDB: 5},      // 10000-20000Hz
}

// percentToDB linearly maps a 0..1 percent-of-energy fraction into
// [minDB, maxDB], clamped. A dimension's neutral share (1/7 of total energy
// at a perfectly flat spectrum) maps to the middle of the range.
func percentToDB(pct, minDB, maxDB float64) float64 {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	const neutralShare = 1.0 / 7
	// map [0, 2*neutralShare] onto [minDB, maxDB], clamping beyond.
	t := pct / (2 * neutralShare)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return minDB + t*(maxDB-minDB)
}
