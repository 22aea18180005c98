// Package cache implements ChunkCache (spec §4.7): a two-tier Hot/Warm
// cache over on-disk Opus chunk blobs. Hot holds the active track's
// current/next chunk (both original and processed variants); Warm backfills
// whole recently-played tracks up to a track-count cap. Per-track chunk
// indices use github.com/kelindar/intmap for dense integer keys (grounded
// on kelindar/ultima-sdk's mul.Reader, which indexes MUL file entries the
// same way), and blob bytes are served through codeberg.org/go-mmap/mmap
// instead of a full read into memory, matching the same source repo's
// file-backed Reader.
package cache

import (
	"container/list"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"codeberg.org/go-mmap/mmap"
	"github.com/kelindar/intmap"

	"github.com/auralis/auralis-core/internal/errors"
	"github.com/auralis/auralis-core/internal/logging"
)

// Default byte budgets from spec §4.7, used when New/NewWithBudget is not
// given an explicit override.
const (
	HotSoftBudgetBytes = 6 * 1024 * 1024
	HotHardCapBytes    = 12 * 1024 * 1024
	WarmHardCapBytes   = 240 * 1024 * 1024
	WarmMaxTracks      = 2
)

// Budget overrides the package-level byte/track caps; a zero field falls
// back to its corresponding default constant. Threaded from config.Settings
// so operators can resize tiers without touching code.
type Budget struct {
	HotHardCapBytes  int64
	WarmHardCapBytes int64
	WarmMaxTracks    int
}

// Tier identifies which budget a cached entry counts against.
type Tier int

const (
	TierAuto Tier = iota
	TierHot
	TierWarm
)

func (t Tier) String() string {
	switch t {
	case TierHot:
		return "tier1"
	case TierWarm:
		return "tier2"
	default:
		return "auto"
	}
}

// Key identifies one cached chunk: spec §4.1's
// (track_id, preset_name_or_"original", intensity_rounded_to_one_decimal, chunk_index).
type Key struct {
	TrackID         uint64
	Preset          string // preset name, or "original" for the unprocessed variant
	IntensityTenths uint8  // intensity * 10, rounded
	ChunkIndex      int
}

func variantKey(preset string, intensityTenths uint8) string {
	return fmt.Sprintf("%s_%d", preset, intensityTenths)
}

type entry struct {
	key      Key
	path     string
	size     int64
	refCount int32
	tier     Tier
	accessAt time.Time

	// mapped is opened lazily on first handle acquisition and closed once
	// the entry has been evicted and its last handle dropped.
	mapped   *mmap.File
	evicted  bool

	hotElem *list.Element // valid when tier == TierHot
}

// trackGroup holds every cached entry for one track in the Warm tier,
// regardless of preset/intensity variant.
type trackGroup struct {
	trackID  uint64
	variants map[string]*intmap.Map // variantKey -> chunkIndex -> slot index
	entries  []*entry
	bytes    int64
	warmElem *list.Element
	pinned   bool // the active track is never evicted from Warm
}

// Stats is the diagnostic snapshot exposed by Stats() and the supplemented
// cache-stats HTTP endpoint.
type Stats struct {
	HotBytes    int64
	WarmBytes   int64
	HotHits     int64
	WarmHits    int64
	Misses      int64
	WarmTracks  int
}

// Cache is ChunkCache: every mutating call is serialized under mu; readers
// hold BlobHandles that outlive the critical section via refcounting.
type Cache struct {
	mu  sync.Mutex
	log *slog.Logger

	hotList  *list.List
	hotIndex map[Key]*list.Element
	hotBytes int64

	warmList  *list.List
	warmIndex map[uint64]*list.Element
	warmBytes int64

	activeTrackID   uint64
	activePreset    string
	activeIntensity uint8
	currentChunk    int

	hotHits, warmHits, misses int64

	hotHardCapBytes  int64
	warmHardCapBytes int64
	warmMaxTracks    int
}

// New constructs an empty Cache using the default byte/track budgets.
func New() *Cache {
	return NewWithBudget(Budget{})
}

// NewWithBudget constructs an empty Cache with explicit tier budgets; any
// zero field in budget falls back to the package default.
func NewWithBudget(budget Budget) *Cache {
	hotCap := budget.HotHardCapBytes
	if hotCap <= 0 {
		hotCap = HotHardCapBytes
	}
	warmCap := budget.WarmHardCapBytes
	if warmCap <= 0 {
		warmCap = WarmHardCapBytes
	}
	maxTracks := budget.WarmMaxTracks
	if maxTracks <= 0 {
		maxTracks = WarmMaxTracks
	}

	return &Cache{
		log:              logging.ForService("cache"),
		hotList:          list.New(),
		hotIndex:         make(map[Key]*list.Element),
		warmList:         list.New(),
		warmIndex:        make(map[uint64]*list.Element),
		hotHardCapBytes:  hotCap,
		warmHardCapBytes: warmCap,
		warmMaxTracks:    maxTracks,
	}
}

// BlobHandle is a refcounted reference to a cached chunk's bytes. The
// content is not deleted, even if evicted, until every outstanding handle
// calls Release (spec §4.7 concurrency note).
type BlobHandle struct {
	c *Cache
	e *entry
}

// Path returns the blob's on-disk location.
func (h *BlobHandle) Path() string { return h.e.path }

// Tier reports which tier currently (or most recently) held this entry.
func (h *BlobHandle) Tier() Tier { return h.e.tier }

// Bytes mmaps (if not already mapped) and reads the full blob.
func (h *BlobHandle) Bytes() ([]byte, error) {
	h.c.mu.Lock()
	if h.e.mapped == nil {
		f, err := mmap.Open(h.e.path)
		if err != nil {
			h.c.mu.Unlock()
			return nil, errors.Wrap(err).
				Component("cache").
				Category(errors.CategoryCacheIO).
				Context("path", h.e.path).
				Build()
		}
		h.e.mapped = f
	}
	mapped := h.e.mapped
	h.c.mu.Unlock()

	buf := make([]byte, h.e.size)
	if _, err := mapped.ReadAt(buf, 0); err != nil {
		return nil, errors.Wrap(err).
			Component("cache").
			Category(errors.CategoryCacheIO).
			Context("path", h.e.path).
			Build()
	}
	return buf, nil
}

// Release drops this handle's reference. Once the refcount reaches zero on
// an evicted entry, its mmap is closed.
func (h *BlobHandle) Release() {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()
	h.c.release(h.e)
}

func (c *Cache) release(e *entry) {
	e.refCount--
	if e.refCount <= 0 && e.evicted {
		c.closeEntry(e)
	}
}

func (c *Cache) closeEntry(e *entry) {
	if e.mapped != nil {
		_ = e.mapped.Close()
		e.mapped = nil
	}
}

// Lookup returns a BlobHandle for key if cached, promoting it within its
// tier (LRU move-to-front). Records hit/miss statistics.
func (c *Cache) Lookup(key Key) (*BlobHandle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.hotIndex[key]; ok {
		c.hotList.MoveToFront(elem)
		c.hotHits++
		e := elem.Value.(*entry)
		e.refCount++
		e.accessAt = time.Now()
		return &BlobHandle{c: c, e: e}, true
	}

	if groupElem, ok := c.warmIndex[key.TrackID]; ok {
		group := groupElem.Value.(*trackGroup)
		if e := group.lookup(key); e != nil {
			c.warmList.MoveToFront(groupElem)
			c.warmHits++
			e.refCount++
			e.accessAt = time.Now()
			return &BlobHandle{c: c, e: e}, true
		}
	}

	c.misses++
	return nil, false
}

func (g *trackGroup) lookup(key Key) *entry {
	vk := variantKey(key.Preset, key.IntensityTenths)
	idx, ok := g.variants[vk]
	if !ok {
		return nil
	}
	slot, ok := idx.Load(uint32(key.ChunkIndex))
	if !ok {
		return nil
	}
	e := g.entries[slot]
	if e == nil || e.evicted {
		return nil
	}
	return e
}

func (g *trackGroup) store(key Key, e *entry) {
	vk := variantKey(key.Preset, key.IntensityTenths)
	idx, ok := g.variants[vk]
	if !ok {
		idx = intmap.New(64, .95)
		g.variants[vk] = idx
	}
	g.entries = append(g.entries, e)
	idx.Store(uint32(key.ChunkIndex), uint32(len(g.entries)-1))
}

// Insert adds blob at path (already written by blobstore) under key. tier
// Auto assigns Hot if the chunk is the active track's current or next
// chunk, else Warm (spec §4.7).
func (c *Cache) Insert(key Key, path string, size int64, tier Tier) *BlobHandle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tier == TierAuto {
		tier = c.autoTier(key)
	}

	// One reference is held by the cache itself (dropped on eviction), one by
	// the returned handle.
	e := &entry{key: key, path: path, size: size, tier: tier, accessAt: time.Now(), refCount: 2}

	if tier == TierHot {
		c.insertHot(e)
	} else {
		c.insertWarm(e)
	}

	return &BlobHandle{c: c, e: e}
}

func (c *Cache) autoTier(key Key) Tier {
	if key.TrackID == c.activeTrackID &&
		(key.ChunkIndex == c.currentChunk || key.ChunkIndex == c.currentChunk+1) {
		return TierHot
	}
	return TierWarm
}

func (c *Cache) insertHot(e *entry) {
	if old, ok := c.hotIndex[e.key]; ok {
		oldEntry := old.Value.(*entry)
		c.evictHotElem(old)
		c.release(oldEntry)
	}

	for c.hotBytes+e.size > c.hotHardCapBytes && c.hotList.Len() > 0 {
		c.evictOneHot()
	}

	elem := c.hotList.PushFront(e)
	e.hotElem = elem
	c.hotIndex[e.key] = elem
	c.hotBytes += e.size
}

func (c *Cache) evictOneHot() {
	back := c.hotList.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry)
	c.evictHotElem(back)
	c.release(e)
}

func (c *Cache) evictHotElem(elem *list.Element) {
	e := elem.Value.(*entry)
	c.hotList.Remove(elem)
	delete(c.hotIndex, e.key)
	c.hotBytes -= e.size
	e.evicted = true
}

func (c *Cache) insertWarm(e *entry) {
	groupElem, ok := c.warmIndex[e.key.TrackID]
	var group *trackGroup
	if ok {
		group = groupElem.Value.(*trackGroup)
	} else {
		group = &trackGroup{trackID: e.key.TrackID, variants: make(map[string]*intmap.Map)}
		groupElem = c.warmList.PushFront(group)
		group.warmElem = groupElem
		c.warmIndex[e.key.TrackID] = groupElem
	}
	group.pinned = e.key.TrackID == c.activeTrackID

	if existing := group.lookup(e.key); existing != nil {
		existing.evicted = true
		c.release(existing)
		group.bytes -= existing.size
		c.warmBytes -= existing.size
	}

	for c.warmBytes+e.size > c.warmHardCapBytes && c.evictOneWarmTrack(group.trackID) {
	}
	for c.warmList.Len() > c.warmMaxTracks {
		if !c.evictOldestUnpinnedTrack(group.trackID) {
			break
		}
	}

	group.store(e.key, e)
	group.bytes += e.size
	c.warmBytes += e.size
	c.warmList.MoveToFront(groupElem)
}

// evictOneWarmTrack evicts the single oldest entry from the least-recently
// used Warm track group other than protect, returning whether anything was
// freed.
func (c *Cache) evictOneWarmTrack(protect uint64) bool {
	for elem := c.warmList.Back(); elem != nil; elem = elem.Prev() {
		group := elem.Value.(*trackGroup)
		if group.pinned || group.trackID == protect {
			continue
		}
		for _, e := range group.entries {
			if e == nil || e.evicted {
				continue
			}
			e.evicted = true
			c.release(e)
			group.bytes -= e.size
			c.warmBytes -= e.size
			return true
		}
	}
	return false
}

// evictOldestUnpinnedTrack drops an entire Warm track group, enforcing
// WarmMaxTracks.
func (c *Cache) evictOldestUnpinnedTrack(protect uint64) bool {
	for elem := c.warmList.Back(); elem != nil; elem = elem.Prev() {
		group := elem.Value.(*trackGroup)
		if group.pinned || group.trackID == protect {
			continue
		}
		for _, e := range group.entries {
			if e != nil && !e.evicted {
				e.evicted = true
				c.release(e)
			}
		}
		c.warmBytes -= group.bytes
		c.warmList.Remove(elem)
		delete(c.warmIndex, group.trackID)
		return true
	}
	return false
}

// UpdatePosition atomically updates the active track/chunk/preset. A track
// change invalidates the Hot tier entirely; a preset change on the same
// track evicts only processed Warm entries, keeping "original" entries.
func (c *Cache) UpdatePosition(trackID uint64, positionS float64, preset string, intensity float64, chunkIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	intensityTenths := uint8(intensity*10 + 0.5)
	trackChanged := trackID != c.activeTrackID
	presetChanged := !trackChanged && preset != c.activePreset

	if trackChanged {
		c.invalidateHot()
	}
	if presetChanged {
		c.evictProcessedWarm(trackID)
	}

	c.activeTrackID = trackID
	c.activePreset = preset
	c.activeIntensity = intensityTenths
	c.currentChunk = chunkIndex

	if groupElem, ok := c.warmIndex[trackID]; ok {
		group := groupElem.Value.(*trackGroup)
		group.pinned = true
	}
}

func (c *Cache) invalidateHot() {
	for elem := c.hotList.Front(); elem != nil; {
		next := elem.Next()
		e := elem.Value.(*entry)
		c.evictHotElem(elem)
		c.release(e)
		elem = next
	}
}

func (c *Cache) evictProcessedWarm(trackID uint64) {
	groupElem, ok := c.warmIndex[trackID]
	if !ok {
		return
	}
	group := groupElem.Value.(*trackGroup)
	for i, e := range group.entries {
		if e == nil || e.evicted || e.key.Preset == "original" {
			continue
		}
		e.evicted = true
		c.release(e)
		group.bytes -= e.size
		c.warmBytes -= e.size
		group.entries[i] = nil
	}
}

// WarmImmediately force-loads a list of already-produced chunk paths into
// Hot, used when the client seeks to a position whose neighbourhood is
// already on disk.
func (c *Cache) WarmImmediately(trackID uint64, chunks map[int]string, preset string, intensity float64, size int64) {
	intensityTenths := uint8(intensity*10 + 0.5)
	for idx, path := range chunks {
		key := Key{TrackID: trackID, Preset: preset, IntensityTenths: intensityTenths, ChunkIndex: idx}
		h := c.Insert(key, path, size, TierHot)
		h.Release()
	}
}

// TrackStatus reports how many distinct chunk indices are cached for a
// track across tiers (a coarse completion signal for CacheWorker/HTTP API).
func (c *Cache) TrackStatus(trackID uint64) (cachedChunks int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[int]bool)
	for key := range c.hotIndex {
		if key.TrackID == trackID {
			seen[key.ChunkIndex] = true
		}
	}
	if groupElem, ok := c.warmIndex[trackID]; ok {
		group := groupElem.Value.(*trackGroup)
		for _, e := range group.entries {
			if e != nil && !e.evicted {
				seen[e.key.ChunkIndex] = true
			}
		}
	}
	return len(seen)
}

// IsFullyCached reports whether every chunk 0..totalChunks-1 is cached for
// the given variant.
func (c *Cache) IsFullyCached(trackID uint64, totalChunks int, preset string, intensity float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	intensityTenths := uint8(intensity*10 + 0.5)
	groupElem, ok := c.warmIndex[trackID]
	if !ok {
		return totalChunks == 0
	}
	group := groupElem.Value.(*trackGroup)
	vk := variantKey(preset, intensityTenths)
	if _, ok := group.variants[vk]; !ok {
		return totalChunks == 0
	}
	for i := 0; i < totalChunks; i++ {
		key := Key{TrackID: trackID, Preset: preset, IntensityTenths: intensityTenths, ChunkIndex: i}
		if group.lookup(key) == nil {
			return false
		}
	}
	return true
}

// Stats returns a point-in-time snapshot of cache occupancy and hit rates.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		HotBytes:   c.hotBytes,
		WarmBytes:  c.warmBytes,
		HotHits:    c.hotHits,
		WarmHits:   c.warmHits,
		Misses:     c.misses,
		WarmTracks: c.warmList.Len(),
	}
}
