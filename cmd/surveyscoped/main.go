// Command surveyscoped serves the labor-force survey explorer.
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

	"surveyscope/internal/adapters/export"
	"surveyscope/internal/adapters/web"
	"surveyscope/internal/config"
	"surveyscope/internal/infra/blob"
	"surveyscope/internal/infra/persistence/memory"
	"surveyscope/internal/infra/persistence/postgres"
	"surveyscope/internal/infra/persistence/sqlite"
	"surveyscope/internal/ingest"
	"surveyscope/internal/metrics"
	"surveyscope/internal/survey"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("boot failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := ingest.LoadFile(cfg.DataFile)
	if err != nil {
		return err
	}
	if cfg.Storage.Ephemeral {
		// Demo posture: rebuild from source on every boot so the store
		// always mirrors the file.
		if err := store.Replace(ctx, records); err != nil {
			return fmt.Errorf("load records: %w", err)
		}
		logger.Info("dataset replaced", "records", len(records), "driver", cfg.Storage.Driver)
	} else {
		loaded, err := store.LoadIfEmpty(ctx, records)
		if err != nil {
			return fmt.Errorf("load records: %w", err)
		}
		logger.Info("dataset checked", "ingested", loaded, "driver", cfg.Storage.Driver)
	}

	m := metrics.New()
	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	m.RecordsLoaded.Set(float64(n))

	blobs, err := blob.Open(ctx, blob.Options{
		Driver:      cfg.Blob.Driver,
		Root:        cfg.Blob.Root,
		S3Bucket:    cfg.Blob.S3Bucket,
		S3Region:    cfg.Blob.S3Region,
		S3Endpoint:  cfg.Blob.S3Endpoint,
		S3PathStyle: cfg.Blob.S3PathStyle,
	})
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	suppressor := survey.NewSuppressor(cfg.TestMode)
	if cfg.TestMode {
		logger.Warn("test mode enabled: privacy suppression is off")
	}

	worker := export.NewWorker(store, blobs, suppressor, logger, m)
	worker.Start()

	handler := web.NewHandler(store, suppressor, worker, m, logger, web.Options{
		DownloadsPerSecond: cfg.DownloadsPerSecond,
		DownloadBurst:      cfg.DownloadBurst,
	})
	mux := handler.Routes()
	mux.Handle("GET /metrics", m.Handler())

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return worker.Stop(shutdownCtx)
	})
	return group.Wait()
}

func openStore(ctx context.Context, cfg config.Storage) (survey.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memory.NewStore(), nil
	case "sqlite":
		return sqlite.NewStore(cfg.SQLitePath)
	case "postgres":
		return postgres.NewStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
