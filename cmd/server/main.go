package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/gradebook/internal/api"
	"github.com/mmynk/gradebook/internal/config"
	"github.com/mmynk/gradebook/internal/metrics"
	"github.com/mmynk/gradebook/internal/service"
	"github.com/mmynk/gradebook/internal/storage"
	"github.com/mmynk/gradebook/internal/storage/cookie"
	"github.com/mmynk/gradebook/internal/storage/memory"
	"github.com/mmynk/gradebook/internal/storage/redisstore"
	"github.com/mmynk/gradebook/internal/storage/sqlite"
	"github.com/mmynk/gradebook/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup()
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	primary, closer, err := openPrimary(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.Info("Storage initialized", "backend", primary.Name())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := storage.Options{
		Primary:          primary,
		MirrorLimit:      cfg.MirrorLimit,
		PartialSemesters: cfg.PartialSemesters,
		Observer:         metrics.New(reg),
	}
	if cfg.CookiePath != "" {
		backup := cookie.New(cfg.CookiePath, cfg.StorageKey, cfg.CookieTTL)
		opts.Mirror = backup
		opts.Fallbacks = append(opts.Fallbacks, backup)
	}
	opts.Fallbacks = append(opts.Fallbacks, memory.New("session", 0))

	persister, err := storage.NewPersister(opts)
	if err != nil {
		return fmt.Errorf("failed to create persister: %w", err)
	}

	gradebook := service.NewGradebook(ctx, persister)
	handler := api.NewHandler(gradebook, persister)

	// Wrap with h2c for HTTP/2 without TLS
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(handler.Router(reg), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", srv.Addr, "url", fmt.Sprintf("http://localhost%s", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openPrimary opens the configured primary store.
func openPrimary(ctx context.Context, cfg *config.Config) (storage.Backend, io.Closer, error) {
	switch cfg.StorageBackend {
	case "redis":
		store, err := redisstore.New(ctx, cfg.RedisURL, cfg.StorageKey, cfg.PrimaryQuotaBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis storage: %w", err)
		}
		return store, store, nil
	default:
		store, err := sqlite.New(cfg.DBPath, cfg.StorageKey, cfg.PrimaryQuotaBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize sqlite storage: %w", err)
		}
		return store, store, nil
	}
}
