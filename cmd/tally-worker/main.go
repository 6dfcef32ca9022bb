// tally-worker runs the periodic jobs without the HTTP server, for
// deployments that separate the API from background processing. Run
// either this worker or the server's in-process job loop against a
// database, not both: the cursor guard only rejects a batch that does
// not advance the stored cursor, so two sweeps racing with different
// views of "now" can still overlap.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tally/internal/config"
	"tally/internal/core"
	"tally/internal/events"
	"tally/internal/jobs"
	"tally/internal/log"
	"tally/internal/permissions"
	"tally/internal/services"
	"tally/internal/session"
	"tally/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.Config{Level: log.DefaultConfig().Level, Component: log.ComponentJobs})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", log.FieldError, err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var eventsClient *events.Client
	if cfg.AMQPURL != "" {
		eventsClient, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without event publishing", log.FieldError, err)
			eventsClient = nil
		} else {
			defer eventsClient.Close()
		}
	}

	clock := core.Clock(core.SystemClock)
	registry := permissions.NewRegistry(repo, logger)
	sessions := session.NewManager(repo, clock, cfg.SessionWindow, logger)
	processor := services.NewRecurringProcessor(repo, eventsClient, logger)

	runner := jobs.NewRunner(cfg.JobInterval, logger,
		services.BackgroundJobs(sessions, processor, registry, clock)...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("worker started", "interval", cfg.JobInterval)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("worker stopped gracefully")
}
