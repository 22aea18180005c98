// Package streamcontroller implements StreamController (spec §4.8): one
// instance per Transport connection, running the cache-lookup /
// process-on-miss / cache-write loop and framing chunk blobs into the
// audio_* wire protocol (spec §6.3). Grounded directly on the teacher's
// internal/api/v2/streams.go WebSocket client (gorilla/websocket upgrader,
// buffered send channel, writePump/readPump goroutines, ping/pong
// keepalive), generalized from a one-way telemetry feed to the
// four-frame-type audio protocol.
package streamcontroller

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"

	"github.com/auralis/auralis-core/internal/blobstore"
	"github.com/auralis/auralis-core/internal/cache"
	"github.com/auralis/auralis-core/internal/cacheworker"
	"github.com/auralis/auralis-core/internal/catalog"
	"github.com/auralis/auralis-core/internal/chunkproc"
	"github.com/auralis/auralis-core/internal/errors"
	"github.com/auralis/auralis-core/internal/logging"
	"github.com/auralis/auralis-core/internal/parammap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 512

	// maxChunkFrameBytes bounds a single audio_chunk frame's raw payload so
	// its base64 encoding stays near the ~400 KB target of spec §6.3.
	maxChunkFrameBytes = 300_000

	recentMissWindow = 8 // controller-side window for CacheWorker's catching-up signal
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ProcessorPool constructs and reuses ChunkProcessors per (track, preset,
// intensity), since construction (decode + fingerprint + parameter
// mapping) is expensive and the spec names it a one-time cost per
// combination (spec §4.6's Construction step).
type ProcessorPool struct {
	mu      sync.Mutex
	procs   map[procKey]*chunkproc.Processor
	catalog catalog.Catalog
	store   *blobstore.Store
	cfg     chunkproc.Config

	// group dedupes concurrent Get calls for the same key so two requests
	// arriving for a brand-new track don't both pay the decode+fingerprint
	// construction cost.
	group singleflight.Group
}

type procKey struct {
	trackID         uint64
	preset          string
	intensityTenths uint8
}

// NewProcessorPool constructs a pool backed by cat for track lookups and
// store for blob persistence.
func NewProcessorPool(cat catalog.Catalog, store *blobstore.Store, cfg chunkproc.Config) *ProcessorPool {
	return &ProcessorPool{
		procs:   make(map[procKey]*chunkproc.Processor),
		catalog: cat,
		store:   store,
		cfg:     cfg,
	}
}

// Get returns the existing processor for this combination, or builds one.
// Construction runs at most once per key even under concurrent callers.
func (p *ProcessorPool) Get(trackID uint64, preset parammap.Preset, intensity float64) (*chunkproc.Processor, error) {
	key := procKey{trackID: trackID, preset: string(preset), intensityTenths: uint8(intensity*10 + 0.5)}

	p.mu.Lock()
	if proc, ok := p.procs[key]; ok {
		p.mu.Unlock()
		return proc, nil
	}
	p.mu.Unlock()

	groupKey := fmt.Sprintf("%d_%s_%d", key.trackID, key.preset, key.intensityTenths)
	v, err, _ := p.group.Do(groupKey, func() (interface{}, error) {
		p.mu.Lock()
		if proc, ok := p.procs[key]; ok {
			p.mu.Unlock()
			return proc, nil
		}
		p.mu.Unlock()

		track, err := p.catalog.Lookup(trackID)
		if err != nil {
			return nil, err
		}
		proc, err := chunkproc.New(trackID, track.Path, preset, intensity, p.store, p.cfg)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.procs[key] = proc
		p.mu.Unlock()
		return proc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*chunkproc.Processor), nil
}

// Request is the inbound {track_id, preset, intensity} that opens a stream.
type Request struct {
	TrackID   uint64  `json:"track_id"`
	Preset    string  `json:"preset"`
	Intensity float32 `json:"intensity"`
}

// Controller is one StreamController instance, owning a single Transport.
type Controller struct {
	conn  *websocket.Conn
	send  chan []byte
	log   *slog.Logger
	procs *ProcessorPool
	cache *cache.Cache
	worker *cacheworker.Worker

	mu       sync.Mutex
	closed   bool
	lastSeen time.Time
}

// Upgrade promotes r/w to a WebSocket connection and constructs a
// Controller for it.
func Upgrade(w http.ResponseWriter, r *http.Request, procs *ProcessorPool, c *cache.Cache, worker *cacheworker.Worker) (*Controller, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, errors.Wrap(err).
			Component("streamcontroller").
			Category(errors.CategoryTransportClosed).
			Build()
	}
	return &Controller{
		conn:     conn,
		send:     make(chan []byte, 256),
		log:      logging.ForService("streamcontroller"),
		procs:    procs,
		cache:    c,
		worker:   worker,
		lastSeen: time.Now(),
	}, nil
}

// Run drives the full lifecycle (spec §4.8 steps 1-5) for one incoming
// Request. Once streaming ends (all chunks sent, an error frame sent, or the
// transport closed) it closes the send channel, which makes the write pump
// send a close frame and close the connection. Blocks until streaming ends;
// it does not wait for the pumps to exit.
func (ctl *Controller) Run(req Request) {
	go ctl.writePump()
	go ctl.readPump()

	ctl.stream(req)

	ctl.mu.Lock()
	ctl.closed = true
	ctl.mu.Unlock()
	close(ctl.send)
}

func (ctl *Controller) stream(req Request) {
	preset := parammap.Preset(req.Preset)
	intensity := float64(req.Intensity)

	track, err := ctl.procs.catalog.Lookup(req.TrackID)
	if err != nil {
		ctl.sendError(req.TrackID, "TRACK_NOT_FOUND", err.Error(), nil)
		return
	}
	if _, statErr := os.Stat(track.Path); statErr != nil {
		ctl.sendError(req.TrackID, "TRACK_NOT_FOUND", "source file unavailable", nil)
		return
	}

	proc, err := ctl.procs.Get(req.TrackID, preset, intensity)
	if err != nil {
		ctl.sendError(req.TrackID, "STREAMING_ERROR", err.Error(), nil)
		return
	}

	ctl.sendFrame("audio_stream_start", map[string]any{
		"track_id":       req.TrackID,
		"preset":         req.Preset,
		"intensity":      req.Intensity,
		"sample_rate":    proc.SampleRate(),
		"channels":       proc.Channels(),
		"total_chunks":   proc.TotalChunks(),
		"chunk_duration": proc.ChunkDuration(),
		"total_duration": proc.TotalDuration(),
	})

	total := proc.TotalChunks()
	intensityTenths := uint8(intensity*10 + 0.5)
	misses := make([]bool, 0, recentMissWindow)

	for i := 0; i < total; i++ {
		if ctl.isClosed() {
			return
		}

		key := cache.Key{TrackID: req.TrackID, Preset: req.Preset, IntensityTenths: intensityTenths, ChunkIndex: i}
		blob, tier, err := ctl.fetch(key, proc, i)
		if err != nil {
			ctl.sendError(req.TrackID, "STREAMING_ERROR", err.Error(), &i)
			return
		}

		misses = append(misses, tier == "miss")
		if len(misses) > recentMissWindow {
			misses = misses[1:]
		}
		if ctl.worker != nil {
			ctl.worker.UpdatePosition(proc, i, countTrue(misses))
		}

		crossfadeSamples := 0
		if i > 0 {
			crossfadeSamples = int(proc.Overlap() * float64(proc.SampleRate()))
		}
		if err := ctl.emitChunkFrames(i, total, blob, crossfadeSamples); err != nil {
			return
		}
	}

	ctl.sendFrame("audio_stream_end", map[string]any{
		"track_id":     req.TrackID,
		"total_samples": uint64(proc.TotalDuration() * float64(proc.SampleRate())),
		"duration":     proc.TotalDuration(),
	})
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

// fetch returns chunk i's blob bytes, producing it on a cache miss and
// inserting the result, per spec §4.8 step 4b.
func (ctl *Controller) fetch(key cache.Key, proc *chunkproc.Processor, i int) ([]byte, string, error) {
	if h, ok := ctl.cache.Lookup(key); ok {
		defer h.Release()
		blob, err := h.Bytes()
		return blob, TierLabel(h.Tier()), err
	}

	path, err := proc.Chunk(i, i == 0)
	if err != nil {
		return nil, "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", err
	}

	h := ctl.cache.Insert(key, path, info.Size(), cache.TierAuto)
	defer h.Release()
	blob, err := h.Bytes()
	return blob, "miss", err
}

// TierLabel maps a cache.Tier to the X-Cache-Tier / miss-accounting values
// used across the HTTP and WebSocket surfaces (spec §6.4).
func TierLabel(t cache.Tier) string {
	switch t {
	case cache.TierHot:
		return "tier1"
	case cache.TierWarm:
		return "tier2"
	default:
		return "miss"
	}
}

// emitChunkFrames splits blob into ≤maxChunkFrameBytes frames and sends
// each as an audio_chunk message, respecting ctl's backpressure.
func (ctl *Controller) emitChunkFrames(chunkIndex, chunkCount int, blob []byte, crossfadeSamples int) error {
	frameCount := (len(blob) + maxChunkFrameBytes - 1) / maxChunkFrameBytes
	if frameCount == 0 {
		frameCount = 1
	}

	for f := 0; f < frameCount; f++ {
		if ctl.isClosed() {
			return errors.Newf("streamcontroller: transport closed mid-chunk").
				Component("streamcontroller").
				Category(errors.CategoryTransportClosed).
				Build()
		}

		start := f * maxChunkFrameBytes
		end := start + maxChunkFrameBytes
		if end > len(blob) {
			end = len(blob)
		}
		part := blob[start:end]

		crossfade := 0
		if f == 0 {
			crossfade = crossfadeSamples
		}

		ctl.sendFrame("audio_chunk", map[string]any{
			"chunk_index":       chunkIndex,
			"chunk_count":       chunkCount,
			"frame_index":       f,
			"frame_count":       frameCount,
			"samples":           base64.StdEncoding.EncodeToString(part),
			"sample_count":      len(part),
			"crossfade_samples": crossfade,
		})
	}
	return nil
}

func (ctl *Controller) sendError(trackID uint64, code, reason string, chunk *int) {
	ctl.sendFrame("audio_stream_error", map[string]any{
		"track_id": trackID,
		"error":    reason,
		"code":     code,
		"chunk":    chunk,
	})
}

func (ctl *Controller) sendFrame(msgType string, data map[string]any) {
	payload, err := json.Marshal(map[string]any{"type": msgType, "data": data})
	if err != nil {
		ctl.log.Error("streamcontroller: marshal failed", "type", msgType, "error", err)
		return
	}
	ctl.mu.Lock()
	closed := ctl.closed
	ctl.mu.Unlock()
	if closed {
		return
	}
	select {
	case ctl.send <- payload:
	default:
		ctl.log.Warn("streamcontroller: send buffer full, dropping connection", "type", msgType)
		ctl.forceClose()
	}
}

func (ctl *Controller) isClosed() bool {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.closed
}

func (ctl *Controller) forceClose() {
	ctl.mu.Lock()
	ctl.closed = true
	ctl.mu.Unlock()
}

func (ctl *Controller) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ctl.conn.Close()
	}()

	for {
		select {
		case message, ok := <-ctl.send:
			ctl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ctl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ctl.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			ctl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ctl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) readPump() {
	defer ctl.forceClose()

	ctl.conn.SetReadLimit(maxMessage)
	ctl.conn.SetReadDeadline(time.Now().Add(pongWait))
	ctl.conn.SetPongHandler(func(string) error {
		ctl.mu.Lock()
		ctl.lastSeen = time.Now()
		ctl.mu.Unlock()
		ctl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := ctl.conn.ReadMessage(); err != nil {
			return
		}
	}
}
