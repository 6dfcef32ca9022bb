package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tally/internal/auth"
	"tally/internal/config"
	"tally/internal/core"
	"tally/internal/email"
	"tally/internal/events"
	apphttp "tally/internal/http"
	"tally/internal/jobs"
	"tally/internal/log"
	"tally/internal/permissions"
	"tally/internal/services"
	"tally/internal/session"
	"tally/internal/storage"
)

func main() {
	// Load .env for local development; absent in production is fine.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
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

	// The salt seed is only consulted on first boot; afterwards the
	// stored value wins.
	seed := cfg.PasswordSalt
	if seed == "" {
		if seed, err = auth.RandomToken(16); err != nil {
			logger.Error("failed to generate salt seed", log.FieldError, err)
			os.Exit(1)
		}
	}
	salt, err := repo.EnsureSalt(context.Background(), seed)
	if err != nil {
		logger.Error("failed to ensure password salt", log.FieldError, err)
		os.Exit(1)
	}

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

	var sender email.Sender
	if cfg.SMTPHost != "" {
		sender = &email.SMTPSender{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		}
	} else {
		sender = &email.LogSender{Logger: logger}
	}

	clock := core.Clock(core.SystemClock)
	hasher := auth.NewHasher(salt, cfg.BcryptCost)
	registry := permissions.NewRegistry(repo, logger)
	sessions := session.NewManager(repo, clock, cfg.SessionWindow, logger)
	resets := auth.NewResetService(repo, repo, sender, hasher, clock, cfg.ResetTokenTTL, cfg.BaseURL, logger)

	userService := services.NewUserService(repo, hasher, sessions, logger)
	budgetService := services.NewBudgetService(repo, registry, eventsClient, logger)
	ledgerService := services.NewLedgerService(repo, registry, eventsClient, logger)
	processor := services.NewRecurringProcessor(repo, eventsClient, logger)

	srv := apphttp.NewServer(":"+cfg.Port, userService, budgetService, ledgerService, resets, sessions, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	runner := jobs.NewRunner(cfg.JobInterval, logger,
		services.BackgroundJobs(sessions, processor, registry, clock)...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := runner.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
