package chunkproc

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auralis/auralis-core/internal/blobstore"
	"github.com/auralis/auralis-core/internal/fingerprint"
	"github.com/auralis/auralis-core/internal/parammap"
)

// writeTestWAV writes a minimal 16-bit PCM mono WAV file containing a pure
// tone, for use as a chunkproc decode source.
func writeTestWAV(t *testing.T, seconds float64, sampleRate int) string {
	t.Helper()

	n := int(seconds * float64(sampleRate))
	pcm := make([]int16, n)
	for i := range pcm {
		pcm[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}

	dataSize := len(pcm) * 2
	byteRate := sampleRate * 2
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	write := func(b []byte) { _, werr := f.Write(b); require.NoError(t, werr) }
	u32 := func(v uint32) []byte { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, v); return b }
	u16 := func(v uint16) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, v); return b }

	write([]byte("RIFF"))
	write(u32(uint32(36 + dataSize)))
	write([]byte("WAVE"))
	write([]byte("fmt "))
	write(u32(16))
	write(u16(1)) // PCM
	write(u16(1)) // mono
	write(u32(uint32(sampleRate)))
	write(u32(uint32(byteRate)))
	write(u16(2))  // block align
	write(u16(16)) // bits per sample
	write([]byte("data"))
	write(u32(uint32(dataSize)))
	for _, s := range pcm {
		write(u16(uint16(s)))
	}

	return path
}

func testConfig() Config {
	return Config{
		ChunkDurationS: 0.5,
		ChunkIntervalS: 0.3,
		Fingerprint:    fingerprint.Config{Strategy: fingerprint.StrategyFullTrack},
		Mapper:         parammap.Config{EQNominalMaxDB: 12, EQHardMaxDB: 18, TargetLUFS: -16},
	}
}

func TestNewComputesChunkGeometry(t *testing.T) {
	path := writeTestWAV(t, 2.0, 8000)
	store, err := blobstore.New(t.TempDir())
	require.NoError(t, err)

	proc, err := New(1, path, parammap.PresetAdaptive, 1.0, store, testConfig())
	require.NoError(t, err)

	assert.InDelta(t, 2.0, proc.TotalDuration(), 0.01)
	assert.Greater(t, proc.TotalChunks(), 1)
	assert.Equal(t, 8000, proc.SampleRate())
}

func TestChunkIsIdempotent(t *testing.T) {
	path := writeTestWAV(t, 2.0, 8000)
	store, err := blobstore.New(t.TempDir())
	require.NoError(t, err)

	proc, err := New(1, path, parammap.PresetAdaptive, 1.0, store, testConfig())
	require.NoError(t, err)

	p1, err := proc.Chunk(0, true)
	require.NoError(t, err)
	p2, err := proc.Chunk(0, true)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestChunkSequentialProductionCoversAllChunks(t *testing.T) {
	path := writeTestWAV(t, 2.0, 8000)
	store, err := blobstore.New(t.TempDir())
	require.NoError(t, err)

	proc, err := New(2, path, parammap.PresetAdaptive, 1.0, store, testConfig())
	require.NoError(t, err)

	for i := 0; i < proc.TotalChunks(); i++ {
		blobPath, err := proc.Chunk(i, i == 0)
		require.NoError(t, err)
		assert.FileExists(t, blobPath)
	}
}

func TestChunkRandomAccessTriggersCatchUp(t *testing.T) {
	path := writeTestWAV(t, 3.0, 8000)
	store, err := blobstore.New(t.TempDir())
	require.NoError(t, err)

	proc, err := New(3, path, parammap.PresetAdaptive, 1.0, store, testConfig())
	require.NoError(t, err)

	last := proc.TotalChunks() - 1
	blobPath, err := proc.Chunk(last, false)
	require.NoError(t, err)
	assert.FileExists(t, blobPath)
}

func TestChunkOutOfRangeErrors(t *testing.T) {
	path := writeTestWAV(t, 1.0, 8000)
	store, err := blobstore.New(t.TempDir())
	require.NoError(t, err)

	proc, err := New(4, path, parammap.PresetAdaptive, 1.0, store, testConfig())
	require.NoError(t, err)

	_, err = proc.Chunk(proc.TotalChunks()+5, false)
	assert.Error(t, err)
}
