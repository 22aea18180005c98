package pcm

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/auralis/auralis-core/internal/errors"
	"github.com/auralis/auralis-core/internal/logging"
)

// bufferImpl is a refcounted audio buffer backed by a fixed-capacity slice.
type bufferImpl struct {
	data     []byte
	length   int
	refCount int32
	pool     *bufferPoolImpl
	tier     string
}

func (b *bufferImpl) Data() []byte { return b.data[:b.length] }

func (b *bufferImpl) Len() int { return b.length }

func (b *bufferImpl) Cap() int { return cap(b.data) }

func (b *bufferImpl) Reset() { b.length = 0 }

func (b *bufferImpl) Resize(newSize int) error {
	if newSize < 0 {
		return errors.New(nil).
			Component(ComponentPCM).
			Category(errors.CategoryValidation).
			Context("operation", "buffer_resize").
			Context("new_size", newSize).
			Build()
	}
	if newSize > cap(b.data) {
		grown := make([]byte, newSize, int(float64(newSize)*BufferGrowthFactor))
		copy(grown, b.data[:b.length])
		b.data = grown
	}
	b.length = newSize
	return nil
}

func (b *bufferImpl) Slice(start, end int) ([]byte, error) {
	if start < 0 || end > b.length || start > end {
		return nil, errors.New(nil).
			Component(ComponentPCM).
			Category(errors.CategoryValidation).
			Context("start", start).
			Context("end", end).
			Context("length", b.length).
			Build()
	}
	return b.data[start:end], nil
}

func (b *bufferImpl) Acquire() { atomic.AddInt32(&b.refCount, 1) }

func (b *bufferImpl) Release() {
	if atomic.AddInt32(&b.refCount, -1) <= 0 {
		if b.pool != nil {
			b.pool.Put(b)
		}
	}
}

// bufferPoolImpl is a three-tier sync.Pool backed BufferPool: small, medium
// and large buffers are drawn from distinct pools so that short EQ-scratch
// allocations never get starved behind a full chunk buffer in the same pool.
type bufferPoolImpl struct {
	config BufferPoolConfig

	small  sync.Pool
	medium sync.Pool
	large  sync.Pool

	mu    sync.RWMutex
	stats map[string]*tierStats

	logger *slog.Logger
}

type tierStats struct {
	totalBuffers   int64
	activeBuffers  int64
	totalAllocated int64
	hits           int64
	misses         int64
}

// NewBufferPool constructs a tiered buffer pool per config.
func NewBufferPool(config BufferPoolConfig) BufferPool {
	if config.SmallBufferSize <= 0 {
		config.SmallBufferSize = DefaultSmallBufferSize
	}
	if config.MediumBufferSize <= 0 {
		config.MediumBufferSize = DefaultMediumBufferSize
	}
	if config.LargeBufferSize <= 0 {
		config.LargeBufferSize = DefaultLargeBufferSize
	}

	logger := logging.ForService("pcm")
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "buffer_pool")

	bp := &bufferPoolImpl{
		config: config,
		stats: map[string]*tierStats{
			"small":  {},
			"medium": {},
			"large":  {},
		},
		logger: logger,
	}

	bp.small.New = func() any {
		return &bufferImpl{data: make([]byte, config.SmallBufferSize), tier: "small", pool: bp}
	}
	bp.medium.New = func() any {
		return &bufferImpl{data: make([]byte, config.MediumBufferSize), tier: "medium", pool: bp}
	}
	bp.large.New = func() any {
		return &bufferImpl{data: make([]byte, config.LargeBufferSize), tier: "large", pool: bp}
	}

	return bp
}

func (p *bufferPoolImpl) tierFor(size int) (*sync.Pool, string, int) {
	switch {
	case size <= p.config.SmallBufferSize:
		return &p.small, "small", p.config.SmallBufferSize
	case size <= p.config.MediumBufferSize:
		return &p.medium, "medium", p.config.MediumBufferSize
	default:
		return &p.large, "large", p.config.LargeBufferSize
	}
}

func (p *bufferPoolImpl) Get(size int) Buffer {
	pool, tier, tierCap := p.tierFor(size)
	b := pool.Get().(*bufferImpl)
	if cap(b.data) < size {
		b.data = make([]byte, size)
	}
	b.length = size
	b.refCount = 1
	b.tier = tier

	p.updateStats(tier, func(s *tierStats) {
		s.activeBuffers++
		s.totalBuffers++
		s.totalAllocated += int64(tierCap)
		s.hits++
	})

	return b
}

func (p *bufferPoolImpl) Put(buffer Buffer) {
	b, ok := buffer.(*bufferImpl)
	if !ok {
		return
	}
	b.Reset()
	atomic.StoreInt32(&b.refCount, 0)

	p.updateStats(b.tier, func(s *tierStats) {
		if s.activeBuffers > 0 {
			s.activeBuffers--
		}
	})

	switch b.tier {
	case "small":
		p.small.Put(b)
	case "medium":
		p.medium.Put(b)
	default:
		p.large.Put(b)
	}
}

func (p *bufferPoolImpl) updateStats(tier string, fn func(*tierStats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stats[tier]
	if !ok {
		s = &tierStats{}
		p.stats[tier] = s
	}
	fn(s)
}

func (p *bufferPoolImpl) Stats() BufferPoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var total BufferPoolStats
	var hits, misses int64
	for _, s := range p.stats {
		total.TotalBuffers += int(s.totalBuffers)
		total.ActiveBuffers += int(s.activeBuffers)
		total.TotalAllocated += s.totalAllocated
		hits += s.hits
		misses += s.misses
	}
	if hits+misses > 0 {
		total.HitRate = float64(hits) / float64(hits+misses)
	}
	return total
}

func (p *bufferPoolImpl) TierStats(tier string) (BufferPoolStats, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.stats[tier]
	if !ok {
		return BufferPoolStats{}, false
	}
	stats := BufferPoolStats{
		TotalBuffers:   int(s.totalBuffers),
		ActiveBuffers:  int(s.activeBuffers),
		TotalAllocated: s.totalAllocated,
	}
	if s.hits+s.misses > 0 {
		stats.HitRate = float64(s.hits) / float64(s.hits+s.misses)
	}
	return stats, true
}

func (p *bufferPoolImpl) ReportMetrics() {
	if !p.config.EnableMetrics {
		return
	}
	stats := p.Stats()
	if p.logger.Enabled(context.TODO(), slog.LevelDebug) {
		p.logger.Debug("buffer pool metrics",
			"total_buffers", stats.TotalBuffers,
			"active_buffers", stats.ActiveBuffers,
			"total_allocated", stats.TotalAllocated,
			"hit_rate", stats.HitRate)
	}
}
