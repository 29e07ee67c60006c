package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/config"
	"github.com/platinummonkey/cog/pkg/features"
	"github.com/platinummonkey/cog/pkg/journal"
	"github.com/platinummonkey/cog/pkg/observability"
	"github.com/platinummonkey/cog/pkg/pipeline"
	"github.com/platinummonkey/cog/pkg/watch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

var version = "dev"

func main() {
	projectDir := flag.String("project", ".", "Unity project root (COG_PROJECT_ROOT overrides)")
	flag.Parse()

	cfg, err := config.Load(*projectDir)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log, err := observability.NewLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		logrus.Fatalf("Failed to create logger: %v", err)
	}

	schedule, err := cfg.ParseResyncSchedule()
	if err != nil {
		log.Fatalf("Invalid resync schedule: %v", err)
	}

	var (
		registry *prometheus.Registry
		metrics  *observability.Metrics
	)
	if cfg.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	opts := assets.Options{
		CacheSize: cfg.AssetCacheSize,
		CacheTTL:  cfg.AssetCacheTTL,
		Logger:    log,
	}
	if metrics != nil {
		opts.Metrics = metrics
	}
	store, err := assets.NewStore(cfg.ProjectRoot, opts)
	if err != nil {
		log.Fatalf("Failed to open project: %v", err)
	}

	var (
		j       *journal.Journal
		pinger  observability.Pinger
		history observability.SyncHistory
	)
	if file := cfg.JournalFile(); file != "" {
		j, err = journal.Open(file)
		if err != nil {
			log.Fatalf("Failed to open journal: %v", err)
		}
		pinger, history = j, j
	}

	var observer journal.WriteObserver
	if metrics != nil {
		observer = metrics
	}
	p := pipeline.New(features.NewStore(store, cfg.AssetsDir, log), pipeline.Options{
		ProductsRoot: cfg.ProductsRoot,
		Writer:       journal.NewWriter(j, nil, observer),
		Journal:      j,
		Metrics:      metrics,
		Logger:       log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if cfg.MetricsEnabled && cfg.StatusAddr != "" {
		checker := observability.NewHealthChecker(pinger, cfg.ProjectRoot, version)
		server = &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           observability.NewRouter(registry, metrics, checker, history),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			defer observability.RecoverPanic(log, "status server")
			log.Infof("Status server listening on %s", cfg.StatusAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Status server failed: %v", err)
				stop()
			}
		}()
	}

	shutdown := observability.NewShutdownManager(log, server, 10*time.Second)
	if j != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error { return j.Close() })
	}

	w := watch.New(p, watch.Options{
		Root:     cfg.AssetsDir,
		Delay:    cfg.WatchDelay,
		Schedule: schedule,
		Metrics:  metrics,
		Logger:   log,
	})

	log.WithFields(logrus.Fields{"project": cfg.ProjectRoot, "version": version}).Info("Starting cogwatch")
	if err := w.Run(ctx); err != nil {
		log.Errorf("Watcher stopped: %v", err)
		stop()
	}

	if err := shutdown.Wait(ctx); err != nil {
		log.Errorf("Shutdown failed: %v", err)
		os.Exit(1)
	}
}
