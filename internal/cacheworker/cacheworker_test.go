package cacheworker

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/auralis/auralis-core/internal/blobstore"
	"github.com/auralis/auralis-core/internal/cache"
	"github.com/auralis/auralis-core/internal/chunkproc"
	"github.com/auralis/auralis-core/internal/fingerprint"
	"github.com/auralis/auralis-core/internal/parammap"
	"github.com/auralis/auralis-core/internal/resource"
)

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
	write(u16(1))
	write(u16(1))
	write(u32(uint32(sampleRate)))
	write(u32(uint32(byteRate)))
	write(u16(2))
	write(u16(16))
	write([]byte("data"))
	write(u32(uint32(dataSize)))
	for _, s := range pcm {
		write(u16(uint16(s)))
	}

	return path
}

func testProcessor(t *testing.T) *chunkproc.Processor {
	t.Helper()
	path := writeTestWAV(t, 2.0, 8000)
	store, err := blobstore.New(t.TempDir())
	require.NoError(t, err)

	cfg := chunkproc.Config{
		ChunkDurationS: 0.5,
		ChunkIntervalS: 0.3,
		Fingerprint:    fingerprint.Config{Strategy: fingerprint.StrategyFullTrack},
		Mapper:         parammap.Config{EQNominalMaxDB: 12, EQHardMaxDB: 18, TargetLUFS: -16},
	}
	proc, err := chunkproc.New(1, path, parammap.PresetAdaptive, 1.0, store, cfg)
	require.NoError(t, err)
	return proc
}

func TestFillNextProducesAndCachesOneChunk(t *testing.T) {
	c := cache.New()
	w := New(c, 3, nil)
	proc := testProcessor(t)

	w.fillNext(positionUpdate{processor: proc, currentChunk: 0, recentMisses: 0})

	key := cache.Key{TrackID: proc.TrackID(), Preset: string(proc.Preset()), IntensityTenths: 10, ChunkIndex: 0}
	h, ok := c.Lookup(key)
	require.True(t, ok)
	h.Release()
}

func TestFillNextSkipsAlreadyCachedChunks(t *testing.T) {
	c := cache.New()
	w := New(c, 3, nil)
	proc := testProcessor(t)

	path, err := proc.Chunk(0, false)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	key0 := cache.Key{TrackID: proc.TrackID(), Preset: string(proc.Preset()), IntensityTenths: 10, ChunkIndex: 0}
	c.Insert(key0, path, info.Size(), cache.TierWarm).Release()

	w.fillNext(positionUpdate{processor: proc, currentChunk: 0, recentMisses: 0})

	key1 := cache.Key{TrackID: proc.TrackID(), Preset: string(proc.Preset()), IntensityTenths: 10, ChunkIndex: 1}
	h, ok := c.Lookup(key1)
	require.True(t, ok)
	h.Release()
}

func TestStartPausesWhenMissesExceedThreshold(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("testing.(*T).Run"))

	c := cache.New()
	w := New(c, 0, nil)
	proc := testProcessor(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	w.UpdatePosition(proc, 0, 5)
	time.Sleep(400 * time.Millisecond)

	key := cache.Key{TrackID: proc.TrackID(), Preset: string(proc.Preset()), IntensityTenths: 10, ChunkIndex: 0}
	_, ok := c.Lookup(key)
	assert.False(t, ok)
}

func TestStartPausesWhenResourceBudgetExceeded(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("testing.(*T).Run"))

	c := cache.New()
	mon := resource.New(time.Hour, 0, 0) // thresholds of 0 are always exceeded
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mon.Start(ctx)
	defer mon.Stop()

	w := New(c, 3, mon)
	proc := testProcessor(t)

	w.Start(ctx)
	defer w.Stop()

	w.UpdatePosition(proc, 0, 0)
	time.Sleep(400 * time.Millisecond)

	key := cache.Key{TrackID: proc.TrackID(), Preset: string(proc.Preset()), IntensityTenths: 10, ChunkIndex: 0}
	_, ok := c.Lookup(key)
	assert.False(t, ok)
}

func TestStartFillsChunksWhenBelowMissThreshold(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("testing.(*T).Run"))

	c := cache.New()
	w := New(c, 3, nil)
	proc := testProcessor(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	w.UpdatePosition(proc, 0, 0)
	time.Sleep(500 * time.Millisecond)

	key := cache.Key{TrackID: proc.TrackID(), Preset: string(proc.Preset()), IntensityTenths: 10, ChunkIndex: 0}
	_, ok := c.Lookup(key)
	assert.True(t, ok)
}
