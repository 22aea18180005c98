// Package pcm provides the buffer and processor-chain primitives shared by
// Auralis's chunked mastering pipeline: a reusable, refcounted audio buffer
// pool and a composable chain of in-place PCM transforms.
//
// Architecture overview:
//
//	ChunkOps -> PCM Buffer -> ProcessorChain (MasteringProcessor stages) -> OpusWriter
package pcm

import (
	"context"
	"time"
)

// Format describes the shape of a PCM buffer: sample rate, channel count,
// and the in-memory sample encoding.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Encoding   string // "pcm_f32le" for the mastering pipeline's working format
}

// Samples is a chunk of audio with its format and provenance attached.
type Samples struct {
	Buffer    []byte
	Format    Format
	Timestamp time.Time
	Duration  time.Duration
	SourceID  string
}

// Processor transforms audio data in a single stage of a ProcessorChain.
type Processor interface {
	ID() string
	Process(ctx context.Context, input *Samples) (*Samples, error)
	GetRequiredFormat() *Format
	GetOutputFormat(inputFormat Format) Format
}

// ProcessorChain runs a sequence of Processors over a buffer in order,
// short-circuiting on context cancellation or stage failure.
type ProcessorChain interface {
	AddProcessor(processor Processor) error
	RemoveProcessor(id string) error
	Process(ctx context.Context, input *Samples) (*Samples, error)
	GetProcessors() []Processor
}

// Buffer is a reusable, refcounted audio buffer.
type Buffer interface {
	Data() []byte
	Len() int
	Cap() int
	Reset()
	Resize(newSize int) error
	Slice(start, end int) ([]byte, error)
	Acquire()
	Release()
}

// BufferPool manages reusable audio buffers across size tiers.
type BufferPool interface {
	Get(size int) Buffer
	Put(buffer Buffer)
	Stats() BufferPoolStats
	TierStats(tier string) (BufferPoolStats, bool)
	ReportMetrics()
}

// BufferPoolStats reports buffer pool usage for monitoring.
type BufferPoolStats struct {
	TotalBuffers   int
	ActiveBuffers  int
	TotalAllocated int64
	HitRate        float64
}

// BufferPoolConfig configures buffer pools by size tier.
type BufferPoolConfig struct {
	SmallBufferSize   int
	MediumBufferSize  int
	LargeBufferSize   int
	MaxBuffersPerSize int
	EnableMetrics     bool
}
