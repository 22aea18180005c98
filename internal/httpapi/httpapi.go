// Package httpapi wires the HTTP/WebSocket surface named in spec §6: the
// chunk endpoint, the metadata endpoint, the WebSocket streaming upgrade,
// and the supplemented cache-stats diagnostics endpoint. Grounded on the
// teacher's echo.Group route registration and handler style
// (internal/api/v2/media.go's ServeAudioClip/getContentType, api.go's
// Controller-method-per-route layout).
package httpapi

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/auralis/auralis-core/internal/cache"
	"github.com/auralis/auralis-core/internal/cacheworker"
	"github.com/auralis/auralis-core/internal/catalog"
	"github.com/auralis/auralis-core/internal/errors"
	"github.com/auralis/auralis-core/internal/parammap"
	"github.com/auralis/auralis-core/internal/streamcontroller"
)

const mimeOpusWebm = "audio/webm; codecs=opus"
const formatVersion = "unified-v1.0"

// Controller registers and serves the stream API routes.
type Controller struct {
	Group   *echo.Group
	catalog catalog.Catalog
	pool    *streamcontroller.ProcessorPool
	cache   *cache.Cache
	worker  *cacheworker.Worker
}

// NewController builds a Controller and registers its routes under group.
func NewController(group *echo.Group, cat catalog.Catalog, pool *streamcontroller.ProcessorPool, c *cache.Cache, worker *cacheworker.Worker) *Controller {
	ctrl := &Controller{Group: group, catalog: cat, pool: pool, cache: c, worker: worker}
	ctrl.registerRoutes()
	return ctrl
}

func (ctrl *Controller) registerRoutes() {
	ctrl.Group.GET("/stream/:track_id/chunk/:chunk_idx", ctrl.GetChunk)
	ctrl.Group.GET("/stream/:track_id/metadata", ctrl.GetMetadata)
	ctrl.Group.GET("/stream/:track_id/ws", ctrl.StreamWebSocket)
	ctrl.Group.GET("/stream/cache/stats", ctrl.GetCacheStats)
}

// GetChunk serves spec §6.4's chunk HTTP endpoint.
func (ctrl *Controller) GetChunk(c echo.Context) error {
	start := time.Now()

	trackID, err := strconv.ParseUint(c.Param("track_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid track_id"})
	}
	chunkIdx, err := strconv.Atoi(c.Param("chunk_idx"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid chunk_idx"})
	}

	preset := c.QueryParam("preset")
	if preset == "" {
		preset = string(parammap.PresetAdaptive)
	}
	intensity, _ := strconv.ParseFloat(c.QueryParam("intensity"), 64)
	if c.QueryParam("intensity") == "" {
		intensity = 1.0
	}
	enhanced := c.QueryParam("enhanced") != "false"

	if _, err := ctrl.catalog.Lookup(trackID); err != nil {
		if errors.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "track not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	proc, err := ctrl.pool.Get(trackID, parammap.Preset(preset), intensity)
	if err != nil {
		if errors.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "track not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if chunkIdx < 0 || chunkIdx >= proc.TotalChunks() {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "chunk index out of range"})
	}

	intensityTenths := uint8(intensity*10 + 0.5)
	key := cache.Key{TrackID: trackID, Preset: preset, IntensityTenths: intensityTenths, ChunkIndex: chunkIdx}

	var blob []byte
	tier := "miss"
	if h, ok := ctrl.cache.Lookup(key); ok {
		blob, err = h.Bytes()
		tier = streamcontroller.TierLabel(h.Tier())
		h.Release()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	} else {
		path, err := proc.Chunk(chunkIdx, chunkIdx == 0)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		h := ctrl.cache.Insert(key, path, statSize(path), cache.TierAuto)
		blob, err = h.Bytes()
		h.Release()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}

	c.Response().Header().Set("X-Chunk-Index", strconv.Itoa(chunkIdx))
	c.Response().Header().Set("X-Cache-Tier", tier)
	c.Response().Header().Set("X-Latency-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	c.Response().Header().Set("X-Enhanced", strconv.FormatBool(enhanced))
	c.Response().Header().Set("X-Preset", preset)
	c.Response().Header().Set("Accept-Ranges", "bytes")
	c.Response().Header().Set("Cache-Control", "no-cache")

	return c.Blob(http.StatusOK, mimeOpusWebm, blob)
}

func statSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// GetMetadata serves spec §6.5's metadata endpoint.
func (ctrl *Controller) GetMetadata(c echo.Context) error {
	trackID, err := strconv.ParseUint(c.Param("track_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid track_id"})
	}

	preset := c.QueryParam("preset")
	if preset == "" {
		preset = string(parammap.PresetAdaptive)
	}
	intensity := 1.0

	if _, err := ctrl.catalog.Lookup(trackID); err != nil {
		if errors.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "track not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	proc, err := ctrl.pool.Get(trackID, parammap.Preset(preset), intensity)
	if err != nil {
		if errors.IsNotFound(err) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "track not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"track_id":       trackID,
		"duration":       proc.TotalDuration(),
		"sample_rate":    proc.SampleRate(),
		"channels":       proc.Channels(),
		"chunk_duration": proc.ChunkDuration(),
		"total_chunks":   proc.TotalChunks(),
		"mime_type":      "audio/webm",
		"codecs":         "opus",
		"format_version": formatVersion,
	})
}

// GetCacheStats serves the supplemented cache diagnostics endpoint.
func (ctrl *Controller) GetCacheStats(c echo.Context) error {
	stats := ctrl.cache.Stats()
	return c.JSON(http.StatusOK, map[string]any{
		"hot_bytes":   stats.HotBytes,
		"warm_bytes":  stats.WarmBytes,
		"hot_hits":    stats.HotHits,
		"warm_hits":   stats.WarmHits,
		"misses":      stats.Misses,
		"warm_tracks": stats.WarmTracks,
	})
}

// StreamWebSocket upgrades to WebSocket and drives the streaming lifecycle
// (spec §4.8), reading the initiating {track_id, preset, intensity}
// request from the URL/query rather than a first text frame.
func (ctrl *Controller) StreamWebSocket(c echo.Context) error {
	trackID, err := strconv.ParseUint(c.Param("track_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid track_id"})
	}
	preset := c.QueryParam("preset")
	if preset == "" {
		preset = string(parammap.PresetAdaptive)
	}
	intensity, _ := strconv.ParseFloat(c.QueryParam("intensity"), 64)
	if c.QueryParam("intensity") == "" {
		intensity = 1.0
	}

	ctl, err := streamcontroller.Upgrade(c.Response(), c.Request(), ctrl.pool, ctrl.cache, ctrl.worker)
	if err != nil {
		return err
	}

	ctl.Run(streamcontroller.Request{TrackID: trackID, Preset: preset, Intensity: float32(intensity)})
	return nil
}
