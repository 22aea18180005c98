// Package cacheworker implements CacheWorker (spec §4.9): a long-lived
// background agent that opportunistically fills Warm-tier chunks for the
// active track once playback stabilises, so later seeks hit cache instead
// of re-encoding. Grounded on the teacher's sound-level publisher goroutine
// (internal/analysis/sound_level.go's wg/done-channel select loop), with a
// golang.org/x/time/rate limiter standing in for its error-log limiter,
// repurposed here to bound production to one in-flight chunk per track.
// Pauses entirely when internal/resource reports host CPU/memory pressure.
package cacheworker

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/auralis/auralis-core/internal/cache"
	"github.com/auralis/auralis-core/internal/chunkproc"
	"github.com/auralis/auralis-core/internal/logging"
	"github.com/auralis/auralis-core/internal/resource"
)

const (
	tickInterval  = 250 * time.Millisecond
	chunkInterval = 200 * time.Millisecond // floor between productions, ≤1 in-flight chunk per track
)

// positionUpdate mirrors the update_position event StreamController raises
// on every chunk it emits (spec §4.9's trigger).
type positionUpdate struct {
	processor    *chunkproc.Processor
	currentChunk int
	recentMisses int // cache misses among the controller's last N lookups
}

// Worker is CacheWorker.
type Worker struct {
	log   *slog.Logger
	cache *cache.Cache

	limiter *rate.Limiter
	monitor *resource.Monitor // nil disables BudgetExceeded-based pausing

	updates chan positionUpdate
	wg      sync.WaitGroup
	cancel  context.CancelFunc

	missThreshold int // recentMisses above this means the live stream is catching up; pause
}

// New constructs a Worker backed by cache. missThreshold bounds how many
// recent misses indicate the live stream itself is behind, at which point
// the worker yields entirely rather than competing for DSP time. monitor may
// be nil, in which case the worker never pauses on host resource pressure.
func New(c *cache.Cache, missThreshold int, monitor *resource.Monitor) *Worker {
	return &Worker{
		log:           logging.ForService("cacheworker"),
		cache:         c,
		limiter:       rate.NewLimiter(rate.Every(chunkInterval), 1),
		monitor:       monitor,
		updates:       make(chan positionUpdate, 1),
		missThreshold: missThreshold,
	}
}

// Start runs the worker loop in a new goroutine until ctx is cancelled or
// Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		var active positionUpdate
		hasActive := false

		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case u := <-w.updates:
				active = u
				hasActive = true
			case <-ticker.C:
				if !hasActive || active.recentMisses > w.missThreshold {
					continue
				}
				if w.monitor != nil && w.monitor.Exceeded() {
					continue
				}
				if !w.limiter.Allow() {
					continue
				}
				w.fillNext(active)
			}
		}
	}()
}

// Stop cancels the worker loop and blocks until its goroutine has exited.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// UpdatePosition notifies the worker of the stream's current track,
// playback position, and recent cache-miss rate. Non-blocking: a stale
// pending update may be dropped in favour of the latest one.
func (w *Worker) UpdatePosition(proc *chunkproc.Processor, currentChunk, recentMisses int) {
	u := positionUpdate{processor: proc, currentChunk: currentChunk, recentMisses: recentMisses}
	select {
	case w.updates <- u:
	default:
		select {
		case <-w.updates:
		default:
		}
		select {
		case w.updates <- u:
		default:
		}
	}
}

// fillNext produces exactly one not-yet-cached chunk for the active track,
// starting from its current playback position, and inserts it into Warm.
func (w *Worker) fillNext(u positionUpdate) {
	proc := u.processor
	total := proc.TotalChunks()
	preset := string(proc.Preset())
	intensity := proc.Intensity()
	intensityTenths := uint8(intensity*10 + 0.5)

	for i := u.currentChunk; i < total; i++ {
		key := cache.Key{TrackID: proc.TrackID(), Preset: preset, IntensityTenths: intensityTenths, ChunkIndex: i}
		if h, ok := w.cache.Lookup(key); ok {
			h.Release()
			continue
		}

		path, err := proc.Chunk(i, false)
		if err != nil {
			w.log.Warn("cacheworker: chunk production failed", "track_id", proc.TrackID(), "chunk_index", i, "error", err)
			return
		}

		info, err := os.Stat(path)
		if err != nil {
			w.log.Warn("cacheworker: stat failed after production", "path", path, "error", err)
			return
		}

		h := w.cache.Insert(key, path, info.Size(), cache.TierWarm)
		h.Release()
		return
	}
}
