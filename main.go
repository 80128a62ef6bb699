package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"churnpredict/config"
	"churnpredict/db"
	chttp "churnpredict/http"
	"churnpredict/logging"
	"churnpredict/ml"
	"churnpredict/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Load artifacts; the service cannot run without them
	metrics := monitoring.NewMetrics()
	reloader, err := ml.NewReloader(cfg.Artifacts(), logger,
		ml.WithLogger(logger.Named("predictor")),
		ml.WithObserver(metrics),
		ml.WithCache(cfg.ML.CacheSize),
	)
	if err != nil {
		var lerr *ml.ArtifactLoadError
		if errors.As(err, &lerr) {
			logger.Fatal("artifact load failed",
				zap.String("artifact", lerr.Artifact),
				zap.String("path", lerr.Path),
				zap.Error(lerr.Err),
			)
		}
		logger.Fatal("predictor init failed", zap.Error(err))
	}
	metrics.ObserveReload()
	reloader.OnReload(metrics.ObserveReload)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ML.WatchArtifacts {
		go func() {
			if err := reloader.Watch(ctx, cfg.ML.ReloadDebounce); err != nil {
				logger.Error("artifact watcher stopped", zap.Error(err))
			}
		}()
	}

	// 3. Prediction audit
	var store chttp.AuditStore
	if cfg.Database.Path != "" {
		s, err := db.Open(cfg.Database.Path)
		if err != nil {
			logger.Fatal("failed to open database", zap.String("path", cfg.Database.Path), zap.Error(err))
		}
		defer s.Close()
		store = s
		logger.Info("database initialized", zap.String("path", cfg.Database.Path))
	}

	// 4. Start HTTP server
	serverCfg := chttp.DefaultServerConfig()
	serverCfg.Port = cfg.Http.Port
	serverCfg.ReadTimeout = cfg.Http.ReadTimeout
	serverCfg.WriteTimeout = cfg.Http.WriteTimeout
	serverCfg.RequestTimeout = cfg.Http.RequestTimeout
	serverCfg.AllowedOrigins = cfg.Http.AllowedOrigins

	server := chttp.NewServer(serverCfg, chttp.Deps{
		Predictor: reloader,
		Store:     store,
		Metrics:   metrics.Handler(),
		Logger:    logger.Named("http"),
	})
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}
