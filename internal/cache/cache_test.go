package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBlob(t *testing.T, dir string, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLookupMissesOnEmptyCache(t *testing.T) {
	c := New()
	_, ok := c.Lookup(Key{TrackID: 1, Preset: "original", ChunkIndex: 0})
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestInsertThenLookupHits(t *testing.T) {
	c := New()
	dir := t.TempDir()
	path := writeBlob(t, dir, "0.webm", 1024)
	key := Key{TrackID: 1, Preset: "original", ChunkIndex: 0}

	h := c.Insert(key, path, 1024, TierHot)
	defer h.Release()

	got, ok := c.Lookup(key)
	require.True(t, ok)
	defer got.Release()

	bytes, err := got.Bytes()
	require.NoError(t, err)
	assert.Len(t, bytes, 1024)
	assert.Equal(t, int64(1), c.Stats().HotHits)
}

func TestAutoTierAssignsHotForActiveTrackNeighbourhood(t *testing.T) {
	c := New()
	dir := t.TempDir()
	path := writeBlob(t, dir, "5.webm", 128)

	c.UpdatePosition(1, 10.0, "original", 1.0, 5)
	key := Key{TrackID: 1, Preset: "original", ChunkIndex: 5}
	h := c.Insert(key, path, 128, TierAuto)
	defer h.Release()

	assert.Equal(t, int64(128), c.Stats().HotBytes)
	assert.Equal(t, int64(0), c.Stats().WarmBytes)
}

func TestAutoTierAssignsWarmOutsideActiveNeighbourhood(t *testing.T) {
	c := New()
	dir := t.TempDir()
	path := writeBlob(t, dir, "50.webm", 128)

	c.UpdatePosition(1, 10.0, "original", 1.0, 5)
	key := Key{TrackID: 1, Preset: "original", ChunkIndex: 50}
	h := c.Insert(key, path, 128, TierAuto)
	defer h.Release()

	assert.Equal(t, int64(0), c.Stats().HotBytes)
	assert.Equal(t, int64(128), c.Stats().WarmBytes)
}

func TestHotEvictionRespectsHardCap(t *testing.T) {
	c := New()
	dir := t.TempDir()

	blobSize := int64(HotHardCapBytes / 2)
	for i := 0; i < 4; i++ {
		path := writeBlob(t, dir, string(rune('a'+i))+".webm", int(blobSize))
		key := Key{TrackID: 1, Preset: "original", ChunkIndex: i}
		h := c.Insert(key, path, blobSize, TierHot)
		h.Release()
	}

	assert.LessOrEqual(t, c.Stats().HotBytes, int64(HotHardCapBytes))
}

func TestUpdatePositionTrackChangeInvalidatesHot(t *testing.T) {
	c := New()
	dir := t.TempDir()
	path := writeBlob(t, dir, "0.webm", 64)

	key := Key{TrackID: 1, Preset: "original", ChunkIndex: 0}
	h := c.Insert(key, path, 64, TierHot)
	h.Release()
	assert.Equal(t, int64(64), c.Stats().HotBytes)

	c.UpdatePosition(2, 0, "original", 1.0, 0)
	assert.Equal(t, int64(0), c.Stats().HotBytes)

	_, ok := c.Lookup(key)
	assert.False(t, ok)
}

func TestUpdatePositionPresetChangeEvictsOnlyProcessedWarm(t *testing.T) {
	c := New()
	dir := t.TempDir()

	originalPath := writeBlob(t, dir, "orig.webm", 64)
	warmPath := writeBlob(t, dir, "warm.webm", 64)

	c.UpdatePosition(1, 0, "adaptive", 1.0, 100)
	origKey := Key{TrackID: 1, Preset: "original", ChunkIndex: 0}
	processedKey := Key{TrackID: 1, Preset: "adaptive", IntensityTenths: 10, ChunkIndex: 0}

	c.Insert(origKey, originalPath, 64, TierWarm).Release()
	c.Insert(processedKey, warmPath, 64, TierWarm).Release()

	c.UpdatePosition(1, 0, "warm", 1.0, 100)

	_, origOK := c.Lookup(origKey)
	_, processedOK := c.Lookup(processedKey)
	assert.True(t, origOK)
	assert.False(t, processedOK)
}

func TestWarmTrackCountCapEvictsLeastRecentlyUsedTrack(t *testing.T) {
	c := New()
	dir := t.TempDir()

	for trackID := uint64(1); trackID <= 3; trackID++ {
		path := writeBlob(t, dir, string(rune('a'+int(trackID)))+".webm", 64)
		key := Key{TrackID: trackID, Preset: "original", ChunkIndex: 0}
		c.Insert(key, path, 64, TierWarm).Release()
	}

	assert.LessOrEqual(t, c.Stats().WarmTracks, WarmMaxTracks)
}

func TestIsFullyCachedReflectsWarmContents(t *testing.T) {
	c := New()
	dir := t.TempDir()

	for i := 0; i < 3; i++ {
		path := writeBlob(t, dir, string(rune('a'+i))+".webm", 32)
		key := Key{TrackID: 1, Preset: "original", IntensityTenths: 10, ChunkIndex: i}
		c.Insert(key, path, 32, TierWarm).Release()
	}

	assert.True(t, c.IsFullyCached(1, 3, "original", 1.0))
	assert.False(t, c.IsFullyCached(1, 4, "original", 1.0))
}

func TestTrackStatusCountsDistinctChunks(t *testing.T) {
	c := New()
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		path := writeBlob(t, dir, string(rune('a'+i))+".webm", 16)
		key := Key{TrackID: 1, Preset: "original", ChunkIndex: i}
		c.Insert(key, path, 16, TierHot).Release()
	}

	assert.Equal(t, 2, c.TrackStatus(1))
}
