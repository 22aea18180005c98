package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auralis/auralis-core/internal/errors"
)

func writeTempAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.wav")
	require.NoError(t, os.WriteFile(path, []byte("fake"), 0o644))
	return path
}

func TestStaticCatalogLookupReturnsTrack(t *testing.T) {
	path := writeTempAudioFile(t)
	c := NewStaticCatalog(map[uint64]Track{
		1: {Path: path, DurationS: 120, SampleRate: 44100, Channels: 2},
	})

	track, err := c.Lookup(1)
	require.NoError(t, err)
	assert.Equal(t, path, track.Path)
	assert.Equal(t, float32(120), track.DurationS)
}

func TestStaticCatalogLookupMissingReturnsNotFound(t *testing.T) {
	c := NewStaticCatalog(map[uint64]Track{})
	_, err := c.Lookup(999)
	assert.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestStaticCatalogLookupMissingFileReturnsNotFound(t *testing.T) {
	c := NewStaticCatalog(map[uint64]Track{
		1: {Path: "/nonexistent/path.wav"},
	})
	_, err := c.Lookup(1)
	assert.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCachedLookupServesFromCacheOnSecondCall(t *testing.T) {
	path := writeTempAudioFile(t)
	base := NewStaticCatalog(map[uint64]Track{
		1: {Path: path, DurationS: 10, SampleRate: 44100, Channels: 2},
	})
	cached := NewCached(base)

	first, err := cached.Lookup(1)
	require.NoError(t, err)

	// Remove the backing file; a cache hit should still succeed because
	// Lookup isn't re-invoked against the inner catalog.
	require.NoError(t, os.Remove(path))

	second, err := cached.Lookup(1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCachedInvalidateForcesReLookup(t *testing.T) {
	path := writeTempAudioFile(t)
	base := NewStaticCatalog(map[uint64]Track{
		1: {Path: path, DurationS: 10, SampleRate: 44100, Channels: 2},
	})
	cached := NewCached(base)

	_, err := cached.Lookup(1)
	require.NoError(t, err)

	cached.Invalidate(1)
	require.NoError(t, os.Remove(path))

	_, err = cached.Lookup(1)
	assert.Error(t, err)
}
