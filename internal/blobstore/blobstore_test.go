package blobstore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathMatchesSpecNaming(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	path := s.Path(42, "warm", 0.7, 3)
	assert.Contains(t, path, "42")
	assert.Contains(t, path, "warm_7")
	assert.Contains(t, path, "000003.webm")
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	blob := []byte{1, 2, 3, 4}
	path, err := s.Write(1, "natural", 0.5, 0, blob)
	require.NoError(t, err)

	got, err := s.Read(path)
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestExistsReflectsWriteState(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	assert.False(t, s.Exists(1, "natural", 0.5, 0))
	_, err = s.Write(1, "natural", 0.5, 0, []byte{0xAA})
	require.NoError(t, err)
	assert.True(t, s.Exists(1, "natural", 0.5, 0))
}

func TestWriteLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	_, err = s.Write(7, "warm", 1.0, 2, []byte{1})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir + "/7/warm_10")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "000002.webm", entries[0].Name())
}

func TestRemoveTrackDeletesAllChunks(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Write(3, "natural", 0.5, 0, []byte{1})
	require.NoError(t, err)
	_, err = s.Write(3, "natural", 0.5, 1, []byte{2})
	require.NoError(t, err)

	require.NoError(t, s.RemoveTrack(3))
	assert.False(t, s.Exists(3, "natural", 0.5, 0))
	assert.False(t, s.Exists(3, "natural", 0.5, 1))
}
