// Package catalog implements the TrackCatalog boundary (spec §6.1): a
// lookup from track ID to source file metadata. The real catalog is
// expected to be supplied by the embedding application; this package
// ships a reference file/YAML-backed implementation for local dev and
// tests, fronted by a short-lived TTL cache the way the teacher fronts
// its detection lookups (internal/api/v2/detections.go).
package catalog

import (
	"os"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"

	"github.com/auralis/auralis-core/internal/errors"
)

// Track is the metadata TrackCatalog.Lookup returns for a known track.
type Track struct {
	Path       string  `yaml:"path"`
	DurationS  float32 `yaml:"duration_s"`
	SampleRate uint32  `yaml:"sample_rate"`
	Channels   uint8   `yaml:"channels"`
}

// Catalog resolves a track ID to its source file and format metadata.
type Catalog interface {
	Lookup(trackID uint64) (Track, error)
}

// manifest is the on-disk shape of a catalog YAML file: a flat map from
// track ID (as a YAML key) to Track metadata.
type manifest map[uint64]Track

// StaticCatalog is an in-memory Catalog loaded once from a YAML manifest.
// Intended for local development and tests; production deployments supply
// their own Catalog implementation (spec §6.1 treats TrackCatalog as
// opaque).
type StaticCatalog struct {
	tracks manifest
}

// LoadYAML reads a manifest file shaped as `{track_id: {path, duration_s,
// sample_rate, channels}}`.
func LoadYAML(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err).
			Component("catalog").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err).
			Component("catalog").
			Category(errors.CategoryConfiguration).
			Context("path", path).
			Build()
	}

	return &StaticCatalog{tracks: m}, nil
}

// NewStaticCatalog builds a StaticCatalog directly from a map, useful in
// tests without touching the filesystem.
func NewStaticCatalog(tracks map[uint64]Track) *StaticCatalog {
	return &StaticCatalog{tracks: tracks}
}

func (c *StaticCatalog) Lookup(trackID uint64) (Track, error) {
	t, ok := c.tracks[trackID]
	if !ok {
		return Track{}, errors.Newf("catalog: track %d not found", trackID).
			Component("catalog").
			Category(errors.CategoryNotFound).
			Context("track_id", trackID).
			Build()
	}
	if _, err := os.Stat(t.Path); err != nil {
		return Track{}, errors.Wrap(err).
			Component("catalog").
			Category(errors.CategoryNotFound).
			Context("track_id", trackID).
			Context("path", t.Path).
			Build()
	}
	return t, nil
}

// cacheTTL and cacheCleanup mirror the teacher's detection-cache constants
// (internal/api/v2/api.go's cache.New(5*time.Minute, 10*time.Minute)).
const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// Cached wraps a Catalog with a short-lived TTL cache in front of Lookup,
// so a busy streaming session doesn't re-hit the backing catalog (file
// stat, database query, etc.) on every chunk request.
type Cached struct {
	inner Catalog
	cache *cache.Cache
}

// NewCached wraps inner with the default 5-minute TTL / 10-minute cleanup
// cache window.
func NewCached(inner Catalog) *Cached {
	return &Cached{inner: inner, cache: cache.New(cacheTTL, cacheCleanup)}
}

func (c *Cached) Lookup(trackID uint64) (Track, error) {
	key := trackKey(trackID)
	if v, ok := c.cache.Get(key); ok {
		return v.(Track), nil
	}

	t, err := c.inner.Lookup(trackID)
	if err != nil {
		return Track{}, err
	}
	c.cache.Set(key, t, cache.DefaultExpiration)
	return t, nil
}

// Invalidate evicts a cached entry, used after catalog-affecting writes
// elsewhere in the embedding application.
func (c *Cached) Invalidate(trackID uint64) {
	c.cache.Delete(trackKey(trackID))
}

func trackKey(trackID uint64) string {
	return "track:" + strconv.FormatUint(trackID, 10)
}
