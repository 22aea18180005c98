// Package resource samples host CPU load and free memory to inform
// CacheWorker pause/resume (ChunkCache's byte budgets do not consult it),
// grounded on the teacher's internal/monitor/system_monitor.go (a
// ticker-driven monitorLoop polling github.com/shirou/gopsutil/v3's
// cpu.Percent / mem.VirtualMemory), generalized from threshold alerting
// to a plain point-in-time Sample exposed to callers.
package resource

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/auralis/auralis-core/internal/logging"
)

// Sample is a point-in-time resource reading.
type Sample struct {
	CPUPercent    float64
	MemUsedPercent float64
	MemAvailableBytes uint64
}

// Monitor periodically samples host resources in the background, grounded
// on the teacher's SystemMonitor.monitorLoop ticker pattern.
type Monitor struct {
	log      *slog.Logger
	interval time.Duration

	memWarningPercent float64
	cpuWarningPercent float64

	latest atomic.Value // holds Sample

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New constructs a Monitor. memWarningPercent/cpuWarningPercent set the
// thresholds Exceeded reports against.
func New(interval time.Duration, memWarningPercent, cpuWarningPercent float64) *Monitor {
	m := &Monitor{
		log:               logging.ForService("resource"),
		interval:          interval,
		memWarningPercent: memWarningPercent,
		cpuWarningPercent: cpuWarningPercent,
	}
	m.latest.Store(Sample{})
	return m
}

// Start runs the sampling loop until ctx is cancelled or Stop is called,
// taking an initial sample immediately.
func (m *Monitor) Start(ctx context.Context) {
	m.sample()
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
}

// Stop cancels the sampling loop and blocks until its goroutine has exited.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Monitor) sample() {
	s := Sample{}

	if cpuPercent, err := cpu.Percent(0, false); err != nil {
		m.log.Warn("resource: cpu sample failed", "error", err)
	} else if len(cpuPercent) > 0 {
		s.CPUPercent = cpuPercent[0]
	}

	if memInfo, err := mem.VirtualMemory(); err != nil {
		m.log.Warn("resource: memory sample failed", "error", err)
	} else {
		s.MemUsedPercent = memInfo.UsedPercent
		s.MemAvailableBytes = memInfo.Available
	}

	m.latest.Store(s)
}

// Latest returns the most recent Sample.
func (m *Monitor) Latest() Sample {
	return m.latest.Load().(Sample)
}

// Exceeded reports whether the current sample crosses either configured
// warning threshold, the signal CacheWorker uses to pause opportunistic
// work.
func (m *Monitor) Exceeded() bool {
	s := m.Latest()
	return s.MemUsedPercent >= m.memWarningPercent || s.CPUPercent >= m.cpuWarningPercent
}
