package parammap

import "github.com/auralis/auralis-core/internal/fingerprint"

// MapperVersion is bumped whenever BandNormalizationTable or any sub-mapper
// formula changes in a way that alters output for the same fingerprint.
const MapperVersion = "1.0"

// ParameterSet is the assembled mastering parameter set spec §3.4
// describes, carrying a metadata tag for downstream reproducibility.
type ParameterSet struct {
	EQBands    [EQBandCount]float64
	Compressor Compressor
	Multiband  MultibandCompressor
	Level      Level
	Harmonic   Harmonic

	MapperVersion     string
	FingerprintMethod fingerprint.Strategy
}

// Mapper composes the four sub-mappers into one ParameterSet builder.
type Mapper struct {
	eq        *EqMapper
	dynamics  *DynamicsMapper
	level     *LevelMapper
	harmonic  *HarmonicMapper
}

// Config controls the knee points and target loudness the mapper uses.
type Config struct {
	EQNominalMaxDB float64
	EQHardMaxDB    float64
	TargetLUFS     float64
}

// NewMapper constructs a Mapper from configuration.
func NewMapper(cfg Config) *Mapper {
	return &Mapper{
		eq:       NewEqMapper(cfg.EQNominalMaxDB, cfg.EQHardMaxDB),
		dynamics: NewDynamicsMapper(),
		level:    NewLevelMapper(cfg.TargetLUFS),
		harmonic: NewHarmonicMapper(),
	}
}

// Map assembles a full ParameterSet from a fingerprint.
func (m *Mapper) Map(fp *fingerprint.Fingerprint) *ParameterSet {
	return &ParameterSet{
		EQBands:           m.eq.Map(fp),
		Compressor:        m.dynamics.Map(fp),
		Multiband:         m.dynamics.MapMultiband(fp),
		Level:             m.level.Map(fp),
		Harmonic:          m.harmonic.Map(fp),
		MapperVersion:     MapperVersion,
		FingerprintMethod: fp.Method,
	}
}
