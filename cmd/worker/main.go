package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bharatcrm_backend/internal/events"
	"bharatcrm_backend/internal/integrations"
	"bharatcrm_backend/internal/leads"
	"bharatcrm_backend/internal/notification"
	"bharatcrm_backend/internal/organizations"
	"bharatcrm_backend/internal/recordings"
	"bharatcrm_backend/internal/scheduler"
	"bharatcrm_backend/platform/config"
	"bharatcrm_backend/platform/db"
	"bharatcrm_backend/platform/logger"
	"bharatcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// Worker-side module wiring; no HTTP handlers are registered.
	orgsModule := organizations.NewModule(pool, val)
	leadsModule := leads.NewModule(pool, eventBus, log, val)
	integrationsModule := integrations.NewModule(pool, leadsModule, cfg, eventBus, log, val)

	var archiver recordings.Archiver
	if cfg.IsMinIOEnabled() {
		minioArchiver, err := recordings.NewMinIOArchiver(cfg)
		if err != nil {
			log.Error("failed to initialize recording archive", "error", err)
			panic("failed to initialize recording archive: " + err.Error())
		}
		archiver = minioArchiver
	}
	recordingsModule := recordings.NewModule(pool, leadsModule, integrationsModule.Repository(), cfg, cfg, archiver, eventBus, log, val)

	// Scheduled jobs fire assignment events too; reps get the same emails
	// as for interactive imports.
	if cfg.GetEmailEnabled() {
		notifier := notification.NewNotifier(notification.NewSMTPSender(cfg), orgsModule.Repository(), log)
		notifier.Register(eventBus)
	}

	interval := getDurationEnv("SYNC_DISPATCH_INTERVAL", 15*time.Minute)
	dispatcher, err := scheduler.NewSyncDispatcher(cfg, pool, interval, log)
	if err != nil {
		log.Error("failed to initialize sync dispatcher", "error", err)
		panic("failed to initialize sync dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)
	log.Info("sync dispatcher running", "interval", interval)

	worker, err := scheduler.NewWorker(cfg, integrationsModule.Service(), recordingsModule.SyncService(), recordingsModule.ProcessingService(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
