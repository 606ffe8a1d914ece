package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"statsync/server/internal/config"
	"statsync/server/internal/httpapi"
	"statsync/server/internal/metrics"
	"statsync/server/internal/progress"
	"statsync/server/internal/ratelimit"
	"statsync/server/internal/securelog"
	"statsync/server/internal/storage"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("statsync version=%s commit=%s\n", version, commit)
		return
	}

	cfg := config.Load(*configPath)

	logger := slog.New(securelog.WrapHandler(slog.NewJSONHandler(os.Stderr, nil)))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	if cfg.Storage.Path != "" {
		sqliteStore, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			logger.Error("open store", "err", err)
			os.Exit(1)
		}
		if err := sqliteStore.Init(ctx); err != nil {
			logger.Error("init store", "err", err)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	} else {
		// The service still boots and answers backend-unavailable, so a
		// misconfigured deploy is visible per request instead of silent.
		logger.Warn("no storage path configured; sync backend disabled")
	}

	retention := time.Duration(cfg.Sync.RetentionDays) * 24 * time.Hour
	service := progress.NewService(store, retention, logger)
	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute)

	mux := http.NewServeMux()
	api := httpapi.NewServer(service, limiter, metrics.New(), logger)
	api.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("server listening", "addr", server.Addr, "retention_days", cfg.Sync.RetentionDays)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
