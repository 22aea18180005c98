package parammap

import "github.com/auralis/auralis-core/internal/fingerprint"

// Compressor is one band's (or the single full-band) dynamics settings.
type Compressor struct {
	ThresholdDB float64
	Ratio       float64 // 1..8
	AttackMs    float64
	ReleaseMs   float64
	MakeupDB    float64
}

// MultibandCompressor holds independently-tuned low/mid/high compressors
// for the 0-250Hz, 250-2kHz and 2-20kHz crossover bands (spec §4.4).
type MultibandCompressor struct {
	Low  Compressor
	Mid  Compressor
	High Compressor
}

// DynamicsMapper derives a single-band compressor and its multiband variant
// from crest factor, LUFS and bass/mid ratio (spec §4.4).
type DynamicsMapper struct{}

// NewDynamicsMapper constructs a DynamicsMapper.
func NewDynamicsMapper() *DynamicsMapper { return &DynamicsMapper{} }

// Map returns the single-band compressor.
func (m *DynamicsMapper) Map(fp *fingerprint.Fingerprint) Compressor {
	return compressorFor(fp.CrestFactor, fp.LUFS, fp.BassMidRatio)
}

// MapMultiband returns the three-band variant, scaling threshold and ratio
// per band by the fingerprint's bass/mid energy split and dynamic-range
// variation.
func (m *DynamicsMapper) MapMultiband(fp *fingerprint.Fingerprint) MultibandCompressor {
	base := compressorFor(fp.CrestFactor, fp.LUFS, fp.BassMidRatio)

	low := base
	low.ThresholdDB += fp.Bass * 3.0
	low.Ratio = clampRatio(base.Ratio + fp.DynamicRangeVariation*1.0)

	mid := base
	mid.ThresholdDB += (fp.LowMid + fp.Mid) * 1.5

	high := base
	high.ThresholdDB += fp.Presence*2.0 + fp.Air*1.0
	high.Ratio = clampRatio(base.Ratio - fp.DynamicRangeVariation*0.5)

	return MultibandCompressor{Low: low, Mid: mid, High: high}
}

// compressorFor implements spec §4.4's exact formulas.
func compressorFor(crest, lufs, bassMidRatio float64) Compressor {
	ratio := ratioFromCrest(crest)
	threshold := lufs + crest/2
	attack := maxFloat(5.0, 50.0-2.0*crest)
	release := clampFloat(100.0+100.0*bassMidRatio, 50.0, 500.0)
	makeup := crest / 2

	return Compressor{
		ThresholdDB: threshold,
		Ratio:       ratio,
		AttackMs:    attack,
		ReleaseMs:   release,
		MakeupDB:    makeup,
	}
}

func ratioFromCrest(crest float64) float64 {
	switch {
	case crest < 6:
		return 2.0
	case crest <= 10:
		t := (crest - 6) / 4
		return 2.0 + t*(4.0-2.0)
	default:
		t := (crest - 10) / 10 // linear 4:1 -> 6:1 over a 10dB span past the knee
		if t > 1 {
			t = 1
		}
		return clampRatio(4.0 + t*(6.0-4.0))
	}
}

func clampRatio(r float64) float64 {
	if r < 1 {
		return 1
	}
	if r > 6 {
		return 6
	}
	return r
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
