package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	settings, err := Load(v, "")
	require.NoError(t, err)
	assert.InDelta(t, 15.0, settings.Chunk.DurationSeconds, 0.001)
	assert.InDelta(t, 10.0, settings.Chunk.IntervalSeconds, 0.001)
	assert.Equal(t, 192, settings.Opus.BitrateKbps)
	assert.Equal(t, "sampled", settings.Fingerprint.Strategy)
}

func TestValidateRejectsIntervalExceedingDuration(t *testing.T) {
	s := Settings{Chunk: ChunkSettings{DurationSeconds: 10, IntervalSeconds: 15, OverlapSeconds: 2}}
	s.Fingerprint.Strategy = "full_track"
	s.Cache.Tier1MaxBytes = 1
	s.Cache.Tier2MaxBytes = 1
	s.Mastering.EQHardMaxDB = 18
	s.Mastering.EQNominalMaxDB = 12
	err := s.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsBadFingerprintStrategy(t *testing.T) {
	v := viper.New()
	v.Set("fingerprint.fingerprint_strategy", "bogus")
	_, err := Load(v, "")
	assert.Error(t, err)
}

func TestValidateRejectsHardMaxBelowNominal(t *testing.T) {
	v := viper.New()
	v.Set("mastering.eq_hard_max_db", 5.0)
	v.Set("mastering.eq_nominal_max_db", 12.0)
	_, err := Load(v, "")
	assert.Error(t, err)
}
