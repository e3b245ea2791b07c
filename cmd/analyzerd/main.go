package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jcrowe85/tiktok-analytics-sub000/internal/config"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/daemon"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/deps"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/logging"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/queue"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/store"
	"github.com/jcrowe85/tiktok-analytics-sub000/internal/workers"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("create directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		if !status.Available {
			logger.Warn("external dependency unavailable",
				logging.String("dependency", status.Name),
				logging.String("detail", status.Detail))
		}
	}

	queueStore, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		os.Exit(1)
	}

	resultStore, err := store.Open(cfg)
	if err != nil {
		logger.Error("open result store", logging.Error(err))
		queueStore.Close()
		os.Exit(1)
	}

	orchestrator, breaker := buildPipeline(cfg, resultStore, logger)
	pool := workers.NewPool(cfg, queueStore, orchestrator, logger)

	d, err := daemon.New(cfg, queueStore, resultStore, pool, breaker, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	if health, err := d.Health(ctx); err == nil {
		logger.Info("analyzerd started",
			logging.String("queue_path", health.QueuePath),
			logging.Int("waiting", health.Queue.Waiting),
			logging.Int("active", health.Queue.Active),
			logging.Int("failed", health.Queue.Failed))
	}

	<-ctx.Done()
	logger.Info("analyzerd shutting down")
}
