package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"servicecert_backend/internal/commission"
	"servicecert_backend/internal/documents"
	"servicecert_backend/internal/events"
	apphttp "servicecert_backend/internal/http"
	"servicecert_backend/internal/http/router"
	"servicecert_backend/internal/leads"
	"servicecert_backend/internal/notification"
	"servicecert_backend/internal/notification/outbox"
	"servicecert_backend/internal/payments"
	"servicecert_backend/internal/requests"
	requestsrepo "servicecert_backend/internal/requests/repository"
	"servicecert_backend/platform/config"
	"servicecert_backend/platform/db"
	"servicecert_backend/platform/logger"
	"servicecert_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
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

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Certificate storage (MinIO)
	objectStore, err := documents.NewMinIOStore(cfg)
	if err != nil {
		log.Error("failed to initialize certificate storage", "error", err)
		panic("failed to initialize certificate storage: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure certificate bucket", 5, 2*time.Second, func() error {
		return objectStore.EnsureBucket(ctx)
	}); err != nil {
		log.Error("failed to ensure certificate bucket exists", "error", err)
		panic("failed to ensure certificate bucket exists: " + err.Error())
	}
	log.Info("certificate storage initialized", "bucket", cfg.GetMinioBucketCertificates())

	// Gotenberg HTML-to-PDF converter
	if !cfg.IsGotenbergEnabled() {
		log.Warn("GOTENBERG_URL not configured; certificate generation will fail")
	}
	converter := documents.NewGotenbergClient(cfg.GetGotenbergURL(), cfg.GetGotenbergUsername(), cfg.GetGotenbergPassword())

	// Notification outbox: the API writes rows, the scheduler delivers them.
	outboxRepo := outbox.New(pool)
	notifier := notification.NewOutboxNotifier(outboxRepo, cfg.GetStaffEmailAddress(), cfg.GetAppBaseURL(), log)
	originPolicy := notification.NewOriginPolicy(cfg)

	documentsService := documents.New(converter, objectStore, requestsrepo.New(pool), log)
	commissionCreditor := commission.NewCreditor(commission.NewRepository(pool), cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Staff-facing alerts are event driven: the notification handlers listen
	// on the bus and queue outbox rows for the scheduler to deliver.
	notification.NewHandlers(notifier, log).RegisterHandlers(eventBus)

	requestsModule := requests.NewModule(pool, documentsService, nil, val, log)
	leadsModule := leads.NewModule(pool, requestsModule.Service(), eventBus, val, log)

	// Lead matching needs the leads module, which consumes the requests
	// service; wire the matcher late to break the cycle.
	requestsModule.SetLeadMatcher(leadsModule.Service())

	paymentsModule := payments.NewModule(pool, cfg, payments.Collaborators{
		Documents:  documentsService,
		Notifier:   notifier,
		Commission: commissionCreditor,
		Origins:    originPolicy,
	}, eventBus, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			requestsModule,
			paymentsModule,
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
