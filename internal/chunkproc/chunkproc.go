// Package chunkproc implements ChunkProcessor (spec §4.6): the per-track
// stateful pipeline that turns a decoded source file into Opus chunk blobs,
// wiring together decode, fingerprint, parammap, mastering, chunkops and
// opuswriter. One Processor instance owns exactly one
// (track, preset, intensity) combination, matching MasteringProcessor's own
// single-owner threading model (spec §4.5).
package chunkproc

import (
	"sync"

	"github.com/auralis/auralis-core/internal/blobstore"
	"github.com/auralis/auralis-core/internal/chunkops"
	"github.com/auralis/auralis-core/internal/decode"
	"github.com/auralis/auralis-core/internal/errors"
	"github.com/auralis/auralis-core/internal/fingerprint"
	"github.com/auralis/auralis-core/internal/mastering"
	"github.com/auralis/auralis-core/internal/opuswriter"
	"github.com/auralis/auralis-core/internal/parammap"
)

// Config groups the tunables New needs beyond the per-track identity.
type Config struct {
	ChunkDurationS float64
	ChunkIntervalS float64
	Fingerprint    fingerprint.Config
	Mapper         parammap.Config
}

// Processor is ChunkProcessor: constructed once per (track_id, preset,
// intensity); Chunk(i) must be called with non-decreasing i for DSP state
// continuity, though random access is supported via an internal catch-up.
type Processor struct {
	mu sync.Mutex

	trackID   uint64
	preset    parammap.Preset
	intensity float64

	track         *decode.Track
	geometry      chunkops.Geometry
	totalDuration float64
	totalChunks   int

	mastering *mastering.Processor
	store     *blobstore.Store

	// nextChunk is the lowest chunk index whose DSP state has not yet been
	// advanced through; i.e. chunks [0, nextChunk) have been streamed
	// through the mastering pipeline in order.
	nextChunk int

	params *parammap.ParameterSet
	fp     *fingerprint.Fingerprint
}

// New decodes source, computes the fingerprint and derived parameters, and
// builds the mastering pipeline (spec §4.6's Construction step).
func New(trackID uint64, sourcePath string, preset parammap.Preset, intensity float64, store *blobstore.Store, cfg Config) (*Processor, error) {
	track, err := decode.Decode(sourcePath)
	if err != nil {
		return nil, err
	}

	engine := fingerprint.NewEngine(cfg.Fingerprint)
	fp := engine.Analyze(track.Samples, track.Channels, track.SampleRate)

	mapper := parammap.NewMapper(cfg.Mapper)
	base := mapper.Map(fp)
	params := parammap.ApplyPreset(base, preset, intensity)

	geometry := chunkops.NewGeometry(cfg.ChunkDurationS, cfg.ChunkIntervalS, track.SampleRate, track.Channels)
	totalDuration := track.DurationSeconds()
	totalChunks := geometry.TotalChunks(totalDuration)

	proc := mastering.NewProcessor(params, float64(track.SampleRate), track.Channels)

	return &Processor{
		trackID:       trackID,
		preset:        preset,
		intensity:     intensity,
		track:         track,
		geometry:      geometry,
		totalDuration: totalDuration,
		totalChunks:   totalChunks,
		mastering:     proc,
		store:         store,
		params:        params,
		fp:            fp,
	}, nil
}

// TotalChunks, SampleRate, Channels, TotalDuration, ChunkDuration expose the
// facts StreamController needs for its stream_start frame (spec §4.8 step 2).
func (p *Processor) TrackID() uint64         { return p.trackID }
func (p *Processor) Preset() parammap.Preset { return p.preset }
func (p *Processor) Intensity() float64      { return p.intensity }
func (p *Processor) TotalChunks() int        { return p.totalChunks }
func (p *Processor) SampleRate() int         { return p.track.SampleRate }
func (p *Processor) Channels() int           { return p.track.Channels }
func (p *Processor) TotalDuration() float64  { return p.totalDuration }
func (p *Processor) ChunkDuration() float64  { return p.geometry.ChunkDuration }
func (p *Processor) Overlap() float64        { return p.geometry.Overlap }
func (p *Processor) Fingerprint() *fingerprint.Fingerprint { return p.fp }
func (p *Processor) Parameters() *parammap.ParameterSet    { return p.params }

// Chunk produces (or locates) chunk i's Opus blob path, per spec §4.6's
// five-step operation. fastStart only takes effect for i == 0.
func (p *Processor) Chunk(i int, fastStart bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= p.totalChunks {
		return "", errors.Newf("chunkproc: chunk index %d out of range [0,%d)", i, p.totalChunks).
			Component("chunkproc").
			Category(errors.CategoryNotFound).
			Context("track_id", p.trackID).
			Context("chunk_index", i).
			Build()
	}

	if p.store.Exists(p.trackID, string(p.preset), p.intensity, i) {
		return p.store.Path(p.trackID, string(p.preset), p.intensity, i), nil
	}

	// Sequential DSP state requires processing every chunk in order; a
	// random-access request ahead of nextChunk triggers a catch-up that
	// streams the skipped chunks through state and discards their output
	// (spec §4.6's random-access note).
	for j := p.nextChunk; j < i; j++ {
		if err := p.produceAndDiscard(j); err != nil {
			return "", err
		}
	}
	if i < p.nextChunk {
		// i was already passed over by a prior catch-up without being
		// written (its blob must have been evicted from scratch); replaying
		// DSP state from scratch is the only way to reproduce it correctly.
		p.resetState()
		for j := 0; j < i; j++ {
			if err := p.produceAndDiscard(j); err != nil {
				return "", err
			}
		}
	}

	return p.produceAndWrite(i, fastStart && i == 0)
}

func (p *Processor) resetState() {
	p.mastering = mastering.NewProcessor(p.params, float64(p.track.SampleRate), p.track.Channels)
	p.nextChunk = 0
}

func (p *Processor) produceAndDiscard(i int) error {
	_, err := p.process(i, false)
	p.nextChunk = i + 1
	return err
}

func (p *Processor) produceAndWrite(i int, skipMultiband bool) (string, error) {
	segment, err := p.process(i, skipMultiband)
	if err != nil {
		return "", err
	}
	p.nextChunk = i + 1

	blob, err := opuswriter.Encode(segment.Samples, segment.Channels, segment.SampleRate)
	if err != nil {
		return "", err
	}

	path, err := p.store.Write(p.trackID, string(p.preset), p.intensity, i, blob)
	if err != nil {
		return "", err
	}
	return path, nil
}

// process runs one chunk's window through the mastering pipeline and
// extracts its final segment (spec §4.6 steps 2-4).
func (p *Processor) process(i int, skipMultiband bool) (chunkops.Buffer, error) {
	window := p.geometry.LoadWindow(p.track, i, true, p.totalDuration)
	if window.Frames() == 0 {
		return chunkops.Buffer{}, chunkops.ErrEmptySource
	}

	processedSamples := p.mastering.Process(window.Samples, mastering.Options{SkipMultiband: skipMultiband})
	processed := chunkops.Buffer{Samples: processedSamples, Channels: window.Channels, SampleRate: window.SampleRate}

	return p.geometry.ExtractSegment(processed, i, p.totalChunks, p.totalDuration, window.SampleRate), nil
}
