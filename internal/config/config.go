// Package config holds Auralis's runtime settings, loaded via Viper from a
// YAML file, environment variables (AURALIS_ prefixed) and CLI flags bound
// by cmd/auralis-server, in that order of increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ChunkSettings controls chunk geometry (spec §3.1/§3.2).
type ChunkSettings struct {
	DurationSeconds float64 `mapstructure:"chunk_duration_s"`
	IntervalSeconds float64 `mapstructure:"chunk_interval_s"`
	OverlapSeconds  float64 `mapstructure:"chunk_overlap_s"`
}

// FingerprintSettings controls C3's analysis strategy.
type FingerprintSettings struct {
	Strategy           string  `mapstructure:"fingerprint_strategy"` // "full_track" | "sampled"
	SamplingIntervalS  float64 `mapstructure:"sampling_interval_s"`
	SampleWindowS      float64 `mapstructure:"sample_window_s"`
}

// CacheSettings controls C7's two-tier byte budgets (spec §4.7).
type CacheSettings struct {
	Tier1MaxBytes  int64 `mapstructure:"tier1_max_bytes"`
	Tier2MaxBytes  int64 `mapstructure:"tier2_max_bytes"`
	Tier2MaxTracks int   `mapstructure:"tier2_max_tracks"`
}

// OpusSettings controls C2's encode parameters (spec §4.2).
type OpusSettings struct {
	BitrateKbps int `mapstructure:"opus_bitrate_kbps"`
	Complexity  int `mapstructure:"opus_complexity"`
}

// MasteringSettings controls C4/C5's saturation curve and target loudness.
type MasteringSettings struct {
	EQNominalMaxDB float64 `mapstructure:"eq_nominal_max_db"`
	EQHardMaxDB    float64 `mapstructure:"eq_hard_max_db"`
	TargetLUFS     float64 `mapstructure:"target_lufs"`
}

// LogSettings controls internal/logging's file rotation.
type LogSettings struct {
	Level        string `mapstructure:"level"`
	MaxSizeBytes int64  `mapstructure:"max_size_bytes"`
	Rotation     string `mapstructure:"rotation"`
}

// TelemetrySettings controls internal/errors's Sentry integration.
type TelemetrySettings struct {
	SentryEnabled bool   `mapstructure:"sentry_enabled"`
	SentryDSN     string `mapstructure:"sentry_dsn"`
}

// ServerSettings controls the HTTP/WebSocket listener.
type ServerSettings struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StorageSettings controls blobstore/catalog path roots.
type StorageSettings struct {
	ChunkRoot   string `mapstructure:"chunk_root"`
	CatalogPath string `mapstructure:"catalog_path"`
}

// Settings is the root configuration object.
type Settings struct {
	Chunk       ChunkSettings       `mapstructure:"chunk"`
	Fingerprint FingerprintSettings `mapstructure:"fingerprint"`
	Cache       CacheSettings       `mapstructure:"cache"`
	Opus        OpusSettings        `mapstructure:"opus"`
	Mastering   MasteringSettings   `mapstructure:"mastering"`
	Log         LogSettings         `mapstructure:"log"`
	Telemetry   TelemetrySettings   `mapstructure:"telemetry"`
	Server      ServerSettings      `mapstructure:"server"`
	Storage     StorageSettings     `mapstructure:"storage"`
}

// setDefaults registers every default value spec.md §6.6 enumerates.
func setDefaults(v *viper.Viper) {
	v.SetDefault("chunk.chunk_duration_s", 15.0)
	v.SetDefault("chunk.chunk_interval_s", 10.0)
	v.SetDefault("chunk.chunk_overlap_s", 5.0)

	v.SetDefault("fingerprint.fingerprint_strategy", "sampled")
	v.SetDefault("fingerprint.sampling_interval_s", 20.0)
	v.SetDefault("fingerprint.sample_window_s", 5.0)

	v.SetDefault("cache.tier1_max_bytes", int64(12*1024*1024))
	v.SetDefault("cache.tier2_max_bytes", int64(240*1024*1024))
	v.SetDefault("cache.tier2_max_tracks", 2)

	v.SetDefault("opus.opus_bitrate_kbps", 192)
	v.SetDefault("opus.opus_complexity", 10)

	v.SetDefault("mastering.eq_nominal_max_db", 12.0)
	v.SetDefault("mastering.eq_hard_max_db", 18.0)
	v.SetDefault("mastering.target_lufs", -16.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_bytes", int64(100*1024*1024))
	v.SetDefault("log.rotation", "size")

	v.SetDefault("telemetry.sentry_enabled", false)

	v.SetDefault("server.listen_addr", ":8090")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("storage.chunk_root", "./data/chunks")
	v.SetDefault("storage.catalog_path", "./data/catalog.yaml")
}

// Load reads configuration from configPath (if non-empty and present),
// environment variables prefixed AURALIS_, and whatever flags the caller
// has already bound onto v via BindPFlags, and validates the result.
func Load(v *viper.Viper, configPath string) (*Settings, error) {
	setDefaults(v)

	v.SetEnvPrefix("auralis")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
			}
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return &settings, nil
}

// Validate enforces the invariants spec.md §3.2/§7 require at load time:
// chunk_interval_s must be less than chunk_duration_s (otherwise successive
// chunks leave no overlap to crossfade, and chunkops.NewGeometry panics),
// and the overlap must lie in [0, chunk_interval_s).
func (s *Settings) Validate() error {
	c := s.Chunk
	if c.IntervalSeconds <= 0 || c.DurationSeconds <= 0 {
		return fmt.Errorf("config: chunk_duration_s and chunk_interval_s must be positive")
	}
	if c.IntervalSeconds >= c.DurationSeconds {
		return fmt.Errorf("config: chunk_interval_s (%.2f) must be less than chunk_duration_s (%.2f)", c.IntervalSeconds, c.DurationSeconds)
	}
	if c.OverlapSeconds < 0 || c.OverlapSeconds >= c.IntervalSeconds {
		return fmt.Errorf("config: chunk_overlap_s (%.2f) must be in [0, chunk_interval_s)", c.OverlapSeconds)
	}

	if s.Mastering.EQHardMaxDB < s.Mastering.EQNominalMaxDB {
		return fmt.Errorf("config: eq_hard_max_db must be >= eq_nominal_max_db")
	}

	switch s.Fingerprint.Strategy {
	case "full_track", "sampled":
	default:
		return fmt.Errorf("config: fingerprint_strategy must be full_track or sampled, got %q", s.Fingerprint.Strategy)
	}

	if s.Cache.Tier1MaxBytes <= 0 || s.Cache.Tier2MaxBytes <= 0 {
		return fmt.Errorf("config: tier1_max_bytes and tier2_max_bytes must be positive")
	}

	return nil
}
