package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docuflow/textract-export/internal/common"
	"github.com/docuflow/textract-export/internal/core"
	"github.com/docuflow/textract-export/internal/core/async"
	"github.com/docuflow/textract-export/internal/engine"
	"github.com/docuflow/textract-export/internal/ingest"
	"github.com/docuflow/textract-export/internal/report"
	"github.com/docuflow/textract-export/internal/repository"
	"github.com/docuflow/textract-export/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs, cleanup, err := openJobStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open job store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	store, err := storage.NewFSStore(cfg.Storage.RootDir, cfg.Storage.BaseURL, cfg.Storage.SigningSecret, logger)
	if err != nil {
		logger.Error("failed to open object store", "error", err)
		os.Exit(1)
	}

	eng := engine.NewReplayClient(cfg.Engine.ReplayDir, cfg.Engine.PageSize, logger)
	writer := report.NewWriter(logger)
	coord := core.NewCoordinator(logger, eng, store, jobs, writer,
		core.WithPollInterval(cfg.Engine.PollInterval),
		core.WithDeadlineMargin(cfg.Engine.DeadlineMargin),
		core.WithMaxResults(cfg.Engine.MaxResults),
	)

	queue := async.NewDocumentQueue(coord, logger,
		async.WithWorkers(cfg.Worker.Workers),
		async.WithQueueSize(cfg.Worker.QueueSize),
		async.WithProcessTimeout(cfg.Worker.ProcessTimeout),
	)

	events, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Root:        store.Root(),
		InitialScan: false,
		Debounce:    500 * time.Millisecond,
	}, logger)
	if err != nil {
		logger.Error("failed to start upload watcher", "error", err)
		os.Exit(1)
	}

	logger.Info("textractd started",
		"storage_root", cfg.Storage.RootDir,
		"replay_dir", cfg.Engine.ReplayDir,
		"workers", cfg.Worker.Workers,
	)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case key, ok := <-events:
			if !ok {
				break loop
			}
			_ = queue.Enqueue(ctx, async.Job{ObjectKey: key})
		case err, ok := <-watchErrs:
			if ok && err != nil {
				logger.Error("watch error", "error", err)
			}
		}
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}

// openJobStore prefers Postgres when DB_URL is set, otherwise the local
// SQLite file.
func openJobStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repository.JobRepository, func(), error) {
	if cfg.Database.DSN != "" {
		pool, err := repository.Open(ctx, repository.Config{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			DialTimeout:     cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
			repository.Close(pool, logger)
			return nil, nil, err
		}
		repo := repository.NewPGJobRepository(pool, logger)
		if err := repo.Migrate(ctx); err != nil {
			repository.Close(pool, logger)
			return nil, nil, err
		}
		return repo, func() { repository.Close(pool, logger) }, nil
	}

	db, err := repository.OpenSQLite(cfg.Database.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using sqlite job store", "path", cfg.Database.SQLitePath)
	return repository.NewSQLiteJobRepository(db, logger), func() { _ = db.Close() }, nil
}
