package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/platinummonkey/conceptdoc/pkg/async"
	"github.com/platinummonkey/conceptdoc/pkg/browser"
	"github.com/platinummonkey/conceptdoc/pkg/config"
	"github.com/platinummonkey/conceptdoc/pkg/highlight"
	"github.com/platinummonkey/conceptdoc/pkg/observability"
	"github.com/platinummonkey/conceptdoc/pkg/render"
	"github.com/platinummonkey/conceptdoc/pkg/storage"
	"github.com/platinummonkey/conceptdoc/pkg/storage/cache"
	"github.com/platinummonkey/conceptdoc/pkg/storage/s3store"
	"github.com/platinummonkey/conceptdoc/pkg/storage/sqlstore"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("conceptdoc exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelCfg := cfg.Observability.OTel()
	if otelCfg.ServiceVersion == "" {
		otelCfg.ServiceVersion = version
	}
	providers, err := observability.InitOTel(ctx, otelCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	store, err := openStore(ctx, cfg.Storage, logger, metrics)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Storage)
		if err != nil {
			// Redis only backs the second cache tier
			logger.WithError(err).Warn("Redis unavailable, continuing without it")
			redisClient = nil
		}
	}

	source := store
	if cfg.Storage.CacheEnabled {
		source = cache.New(store, cache.Options{
			L1Size:      cfg.Storage.L1CacheSize,
			EntityTTL:   cfg.Storage.CacheTTL["entity"],
			TreeTTL:     cfg.Storage.CacheTTL["tree"],
			Redis:       redisClient,
			Metrics:     metrics,
			Logger:      logger,
			LoadTimeout: cfg.Storage.Timeout,
		})
	}

	highlighter := highlight.NewChroma(cfg.Browser.HighlightStyle)
	logger.WithField("style", highlighter.Style()).Debug("Syntax highlighting configured")
	engineOpts := []render.Option{render.WithHighlighter(highlighter)}
	if metrics != nil {
		engineOpts = append(engineOpts, render.WithObserver(metrics))
	}

	srv, err := browser.NewServer(source, render.NewEngine(engineOpts...), browser.Options{
		PublicDir:      cfg.Browser.PublicDir,
		Stylesheet:     highlighter,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logger,
		Metrics:        metrics,
		ServiceName:    otelCfg.ServiceName,
	})
	if err != nil {
		source.Close()
		return fmt.Errorf("failed to create browser server: %w", err)
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(store, redisClient, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, httpServer, healthServer)
	// Hooks run in reverse order: the store closes last
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return source.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		cancel()
		return nil
	})

	errCh := make(chan error, 2)
	for _, s := range []*http.Server{healthServer, httpServer} {
		go func(s *http.Server) {
			logger.WithField("addr", s.Addr).Info("Starting HTTP server")
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s: %w", s.Addr, err)
			}
		}(s)
	}

	waitCtx, stopWait := context.WithCancel(ctx)
	defer stopWait()
	go func() {
		if err := <-errCh; err != nil {
			logger.WithError(err).Error("HTTP server failed")
			stopWait()
		}
	}()

	return shutdown.WaitForShutdown(waitCtx)
}

// openStore builds the configured entity backend
func openStore(ctx context.Context, cfg storage.Config, logger *observability.Logger, metrics *observability.Metrics) (storage.Store, error) {
	switch cfg.Type {
	case storage.TypeFilesystem:
		fsStore, err := storage.NewFileSystemStorage(cfg.FilesystemRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to load fixtures: %w", err)
		}
		if metrics != nil {
			fsStore.SetMetrics(metrics)
		}
		logger.WithFields(map[string]interface{}{
			"root":     fsStore.Root(),
			"entities": fsStore.Len(),
		}).Info("Filesystem storage initialized")
		if cfg.FilesystemWatch {
			if err := fsStore.Watch(ctx, logger); err != nil {
				logger.WithError(err).Warn("Fixture watching disabled")
			}
		}
		return fsStore, nil

	case storage.TypePostgres, storage.TypeSQLite:
		sqlStore, err := sqlstore.Open(cfg, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Type, err)
		}
		conns := sqlStore.Connections()
		conns.StartHealthCheckRoutine(ctx, 30*time.Second, logger)
		if metrics != nil {
			async.SafeGo(ctx, 0, "db stats", logger, func(ctx context.Context) error {
				reportDBStats(ctx, conns, metrics)
				return nil
			})
		}
		return sqlStore, nil

	case storage.TypeS3:
		s3Store, err := s3store.Open(ctx, cfg, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to open s3 storage: %w", err)
		}
		logger.WithFields(map[string]interface{}{
			"bucket":   cfg.S3Bucket,
			"key":      s3Store.Key(),
			"entities": s3Store.Len(),
		}).Info("S3 storage initialized")
		return s3Store, nil

	default:
		return nil, fmt.Errorf("invalid storage type: %s", cfg.Type)
	}
}

// reportDBStats publishes primary pool statistics until ctx is done
func reportDBStats(ctx context.Context, conns *sqlstore.ConnectionManager, metrics *observability.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		metrics.UpdateDBStats(conns.Primary().Stats())
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
