package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bharatcrm_backend/internal/auth"
	"bharatcrm_backend/internal/billing"
	"bharatcrm_backend/internal/events"
	apphttp "bharatcrm_backend/internal/http"
	"bharatcrm_backend/internal/http/router"
	"bharatcrm_backend/internal/integrations"
	"bharatcrm_backend/internal/leads"
	"bharatcrm_backend/internal/notification"
	"bharatcrm_backend/internal/organizations"
	"bharatcrm_backend/internal/recordings"
	"bharatcrm_backend/migrations"
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
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// Recording archive bucket is optional; processing runs without it.
	var archiver recordings.Archiver
	if cfg.IsMinIOEnabled() {
		minioArchiver, err := recordings.NewMinIOArchiver(cfg)
		if err != nil {
			log.Error("failed to initialize recording archive", "error", err)
			panic("failed to initialize recording archive: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure archive bucket", 5, 2*time.Second, func() error {
			return minioArchiver.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure archive bucket", "error", err)
			panic("failed to ensure archive bucket: " + err.Error())
		}
		archiver = minioArchiver
		log.Info("recording archive initialized", "bucket", cfg.GetMinioBucketRecordingArchive())
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	authModule := auth.NewModule(pool, cfg, val)
	orgsModule := organizations.NewModule(pool, val)
	leadsModule := leads.NewModule(pool, eventBus, log, val)
	integrationsModule := integrations.NewModule(pool, leadsModule, cfg, eventBus, log, val)
	recordingsModule := recordings.NewModule(pool, leadsModule, integrationsModule.Repository(), cfg, cfg, archiver, eventBus, log, val)
	billingModule := billing.NewModule(pool, orgsModule, cfg, log, val)

	// Email notifications subscribe to domain events (not HTTP-facing).
	if cfg.GetEmailEnabled() {
		notifier := notification.NewNotifier(notification.NewSMTPSender(cfg), orgsModule.Repository(), log)
		notifier.Register(eventBus)
		log.Info("email notifications enabled", "from", cfg.GetEmailFromAddress())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			orgsModule,
			leadsModule,
			integrationsModule,
			recordingsModule,
			billingModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
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
