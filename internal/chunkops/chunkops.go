// Package chunkops provides the stateless window-arithmetic, segment
// extraction and crossfade primitives that sit underneath ChunkProcessor.
// Grounded on the teacher's ChunkBufferV2 windowing idiom (fixed-duration
// accumulation over a byte stream), generalized from "accumulate until a
// complete chunk" to "compute the exact span of chunk i given total
// duration" since Auralis operates over a seekable decoded source rather
// than a live capture stream.
package chunkops

import (
	"math"

	"github.com/auralis/auralis-core/internal/errors"
	"github.com/auralis/auralis-core/internal/pcm"
)

// Geometry holds the chunk-duration/interval/overlap invariants (spec §3.2).
type Geometry struct {
	ChunkDuration float64 // seconds
	ChunkInterval float64 // seconds
	Overlap       float64 // seconds, = ChunkDuration - ChunkInterval
	SampleRate    int
	Channels      int
}

// NewGeometry validates and builds a Geometry. Panics on contract violation
// per spec §9 ("Internal error... fatal to the stream, not the process");
// callers validate config once at startup via internal/config.
func NewGeometry(chunkDuration, chunkInterval float64, sampleRate, channels int) Geometry {
	if chunkInterval >= chunkDuration {
		panic("chunkops: chunk_interval must be < chunk_duration")
	}
	return Geometry{
		ChunkDuration: chunkDuration,
		ChunkInterval: chunkInterval,
		Overlap:       chunkDuration - chunkInterval,
		SampleRate:    sampleRate,
		Channels:      channels,
	}
}

// TotalChunks returns ⌈D / CHUNK_INTERVAL⌉ for a track of duration D seconds.
func (g Geometry) TotalChunks(totalDuration float64) int {
	if totalDuration <= 0 {
		return 0
	}
	return int(math.Ceil(totalDuration / g.ChunkInterval))
}

// WindowFor returns chunk i's [start_s, end_s) span, clipped to [0, D].
func (g Geometry) WindowFor(i int, totalDuration float64) (startS, endS float64) {
	start := float64(i) * g.ChunkInterval
	end := start + g.ChunkDuration
	if start < 0 {
		start = 0
	}
	if end > totalDuration {
		end = totalDuration
	}
	if start > totalDuration {
		start = totalDuration
	}
	return start, end
}

// Source reads PCM frames (interleaved, float32) from an arbitrary span of
// a decoded track. Implemented by internal/decode's decoded-track wrapper.
type Source interface {
	// ReadSpan returns interleaved float32 samples for [startS, endS), zero
	// padded at EOF. Reads entirely before 0 or entirely past duration
	// return silence.
	ReadSpan(startS, endS float64) (samples []float32, channels int, sampleRate int)
}

// Buffer is an owned 2-D PCM block: frames x channels, interleaved.
type Buffer struct {
	Samples    []float32 // interleaved
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames in the buffer.
func (b Buffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// LoadWindow returns samples for chunk i's span, optionally padded with up
// to Overlap seconds of context on each side. The context is trimmed by
// ExtractSegment before audio reaches the cache. Out-of-range reads beyond
// EOF are zero-padded; empty reads return 100ms of silence.
func (g Geometry) LoadWindow(source Source, i int, withContext bool, totalDuration float64) Buffer {
	startS, endS := g.WindowFor(i, totalDuration)

	if withContext {
		if startS > 0 {
			startS -= g.Overlap
			if startS < 0 {
				startS = 0
			}
		}
		endS += g.Overlap
		if endS > totalDuration {
			endS = totalDuration
		}
	}

	if endS <= startS {
		silenceFrames := int(0.1 * float64(g.SampleRate))
		return Buffer{
			Samples:    make([]float32, silenceFrames*g.Channels),
			Channels:   g.Channels,
			SampleRate: g.SampleRate,
		}
	}

	samples, channels, sr := source.ReadSpan(startS, endS)
	if channels == 0 {
		channels = g.Channels
	}
	if sr == 0 {
		sr = g.SampleRate
	}
	return Buffer{Samples: samples, Channels: channels, SampleRate: sr}
}

// ExtractSegment returns exactly the audio belonging to chunk i from a
// processed window that may carry leading overlap and/or trailing context,
// per spec §4.1.
func (g Geometry) ExtractSegment(processed Buffer, i, totalChunks int, totalDuration float64, sr int) Buffer {
	ch := processed.Channels
	if ch == 0 {
		ch = g.Channels
	}

	var wantFrames int
	var skipFrames int

	switch {
	case i == 0:
		wantFrames = int(g.ChunkDuration * float64(sr))
		skipFrames = 0
	case i == totalChunks-1:
		skipFrames = int(g.Overlap * float64(sr))
		remaining := totalDuration - float64(i)*g.ChunkInterval
		if remaining < 0 {
			remaining = 0
		}
		wantFrames = int(remaining * float64(sr))
	default:
		skipFrames = int(g.Overlap * float64(sr))
		wantFrames = int(g.ChunkDuration * float64(sr))
	}

	available := processed.Frames()
	if skipFrames > available {
		skipFrames = available
	}

	out := make([]float32, wantFrames*ch)
	start := skipFrames * ch
	end := start + wantFrames*ch
	if end > len(processed.Samples) {
		end = len(processed.Samples)
	}
	if end > start {
		copy(out, processed.Samples[start:end])
	}

	return Buffer{Samples: out, Channels: ch, SampleRate: sr}
}

// Crossfade performs an equal-power (sin²/cos²) crossfade between the tail
// of one chunk and the head of the next, per spec §4.1/§8 property 2/3.
func Crossfade(tail, head Buffer, overlapSeconds float64) Buffer {
	ch := tail.Channels
	if ch == 0 {
		ch = head.Channels
	}
	sr := tail.SampleRate
	if sr == 0 {
		sr = head.SampleRate
	}

	tailFrames := tail.Frames()
	headFrames := head.Frames()
	maxOverlapFrames := int(overlapSeconds * float64(sr))

	n := minInt(tailFrames, minInt(headFrames, maxOverlapFrames))

	if n <= 0 {
		out := make([]float32, (tailFrames+headFrames)*ch)
		copy(out, tail.Samples)
		copy(out[tailFrames*ch:], head.Samples)
		return Buffer{Samples: out, Channels: ch, SampleRate: sr}
	}

	outFrames := tailFrames + headFrames - n
	out := make([]float32, outFrames*ch)

	// tail[: -n]
	prefixFrames := tailFrames - n
	copy(out, tail.Samples[:prefixFrames*ch])

	// crossfade region: tail[-n:]*fade_out + head[:n]*fade_in
	tailTailOff := prefixFrames * ch
	for k := 0; k < n; k++ {
		theta := math.Pi * float64(k) / (2 * float64(n))
		fadeOut := math.Cos(theta) * math.Cos(theta)
		fadeIn := math.Sin(theta) * math.Sin(theta)
		for c := 0; c < ch; c++ {
			tailVal := float64(tail.Samples[tailTailOff+k*ch+c])
			headVal := float64(head.Samples[k*ch+c])
			out[(prefixFrames+k)*ch+c] = float32(tailVal*fadeOut + headVal*fadeIn)
		}
	}

	// head[n:]
	copy(out[(prefixFrames+n)*ch:], head.Samples[n*ch:])

	return Buffer{Samples: out, Channels: ch, SampleRate: sr}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ToPCMFormat adapts a chunkops Buffer's shape into a pcm.Format descriptor,
// used when handing the buffer into the shared pcm.ProcessorChain.
func (b Buffer) ToPCMFormat() pcm.Format {
	return pcm.Format{
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
		BitDepth:   32,
		Encoding:   "pcm_f32le",
	}
}

// ErrEmptySource is returned by Source implementations that have nothing to read.
var ErrEmptySource = errors.Newf("source produced no samples").
	Component("chunkops").
	Category(errors.CategoryDecode).
	Build()
