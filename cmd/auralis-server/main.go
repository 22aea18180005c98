// Command auralis-server runs the Auralis streaming service: it wires the
// catalog, blob store, chunk processors, two-tier cache, background cache
// worker, resource monitor and HTTP/WebSocket surface together and serves
// them until interrupted. Grounded on the teacher's cmd/root.go cobra
// wiring and internal/api/server.go's graceful-shutdown lifecycle.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/auralis/auralis-core/internal/blobstore"
	"github.com/auralis/auralis-core/internal/cache"
	"github.com/auralis/auralis-core/internal/cacheworker"
	"github.com/auralis/auralis-core/internal/catalog"
	"github.com/auralis/auralis-core/internal/chunkproc"
	"github.com/auralis/auralis-core/internal/config"
	"github.com/auralis/auralis-core/internal/errors"
	"github.com/auralis/auralis-core/internal/fingerprint"
	"github.com/auralis/auralis-core/internal/httpapi"
	"github.com/auralis/auralis-core/internal/logging"
	"github.com/auralis/auralis-core/internal/metrics"
	"github.com/auralis/auralis-core/internal/parammap"
	"github.com/auralis/auralis-core/internal/resource"
	"github.com/auralis/auralis-core/internal/streamcontroller"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "auralis-server",
		Short: "Auralis adaptive mastering and streaming server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config YAML (optional)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	logging.Init()
	log := logging.ForService("main")

	settings, err := config.Load(viper.New(), configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logging.SetLevel(parseLevel(settings.Log.Level))

	if settings.Telemetry.SentryEnabled {
		if err := sentry.Init(sentry.ClientOptions{Dsn: settings.Telemetry.SentryDSN}); err != nil {
			log.Warn("sentry init failed, continuing without telemetry", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
			errors.SetTelemetryReporter(errors.NewSentryReporter(true))
		}
	}

	cat, err := loadCatalog(settings.Storage.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	catalogCache := catalog.NewCached(cat)

	store, err := blobstore.New(settings.Storage.ChunkRoot)
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}

	chunkCfg := chunkproc.Config{
		ChunkDurationS: settings.Chunk.DurationSeconds,
		ChunkIntervalS: settings.Chunk.IntervalSeconds,
		Fingerprint: fingerprint.Config{
			Strategy:          fingerprintStrategy(settings.Fingerprint.Strategy),
			SamplingIntervalS: settings.Fingerprint.SamplingIntervalS,
			SampleWindowS:     settings.Fingerprint.SampleWindowS,
		},
		Mapper: parammap.Config{
			EQNominalMaxDB: settings.Mastering.EQNominalMaxDB,
			EQHardMaxDB:    settings.Mastering.EQHardMaxDB,
			TargetLUFS:     settings.Mastering.TargetLUFS,
		},
	}

	c := cache.NewWithBudget(cache.Budget{
		HotHardCapBytes:  settings.Cache.Tier1MaxBytes,
		WarmHardCapBytes: settings.Cache.Tier2MaxBytes,
		WarmMaxTracks:    settings.Cache.Tier2MaxTracks,
	})
	pool := streamcontroller.NewProcessorPool(catalogCache, store, chunkCfg)

	mon := resource.New(5*time.Second, 90, 90)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mon.Start(ctx)
	defer mon.Stop()

	worker := cacheworker.New(c, 3, mon)
	worker.Start(ctx)
	defer worker.Stop()

	reg := prometheus.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	reportCacheGauges(ctx, c, rec)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	apiGroup := e.Group("/api")
	httpapi.NewController(apiGroup, catalogCache, pool, c, worker)

	log.Info("starting auralis-server", "address", settings.Server.ListenAddr)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(settings.Server.ListenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case <-quit:
		log.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), settings.Server.WriteTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("error during server shutdown", "error", err)
	}

	return nil
}

// loadCatalog reads the manifest at path, or falls back to an empty static
// catalog if path is unset (useful for smoke-testing without a library).
func loadCatalog(path string) (catalog.Catalog, error) {
	if path == "" {
		return catalog.NewStaticCatalog(map[uint64]catalog.Track{}), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return catalog.NewStaticCatalog(map[uint64]catalog.Track{}), nil
	}
	return catalog.LoadYAML(path)
}

// fingerprintStrategy maps config.go's wire-facing strategy name
// ("full_track") onto internal/fingerprint's Strategy constant
// ("full-track"); the two packages were authored against slightly
// different naming conventions and this is the single seam between them.
func fingerprintStrategy(configValue string) fingerprint.Strategy {
	if configValue == "full_track" {
		return fingerprint.StrategyFullTrack
	}
	return fingerprint.StrategySampled
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// reportCacheGauges periodically mirrors cache.Stats into the Prometheus
// gauges, so operators can chart tier occupancy over time.
func reportCacheGauges(ctx context.Context, c *cache.Cache, rec metrics.Recorder) {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := c.Stats()
				rec.SetGauge(metrics.GaugeCacheBytesTier1, float64(stats.HotBytes))
				rec.SetGauge(metrics.GaugeCacheBytesTier2, float64(stats.WarmBytes))
			}
		}
	}()
}
