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
	"servicecert_backend/internal/notification"
	"servicecert_backend/internal/notification/outbox"
	"servicecert_backend/internal/payments"
	requestsrepo "servicecert_backend/internal/requests/repository"
	"servicecert_backend/internal/scheduler"
	"servicecert_backend/platform/config"
	"servicecert_backend/platform/db"
	"servicecert_backend/platform/logger"
	"servicecert_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

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

	sender := notification.NewSMTPSender(cfg)
	outboxRepo := outbox.New(pool)
	notifier := notification.NewOutboxNotifier(outboxRepo, cfg.GetStaffEmailAddress(), cfg.GetAppBaseURL(), log)
	originPolicy := notification.NewOriginPolicy(cfg)

	// Reconcile transitions publish payment events too; subscribe the staff
	// alert handlers so a failure surfaced by the sweep is not lost.
	notification.NewHandlers(notifier, log).RegisterHandlers(eventBus)

	// The reconcile sweep can complete payments, so the worker needs the same
	// effect collaborators as the API.
	objectStore, err := documents.NewMinIOStore(cfg)
	if err != nil {
		log.Error("failed to initialize certificate storage", "error", err)
		panic("failed to initialize certificate storage: " + err.Error())
	}
	converter := documents.NewGotenbergClient(cfg.GetGotenbergURL(), cfg.GetGotenbergUsername(), cfg.GetGotenbergPassword())
	documentsService := documents.New(converter, objectStore, requestsrepo.New(pool), log)
	commissionCreditor := commission.NewCreditor(commission.NewRepository(pool), cfg, log)

	paymentsModule := payments.NewModule(pool, cfg, payments.Collaborators{
		Documents:  documentsService,
		Notifier:   notifier,
		Commission: commissionCreditor,
		Origins:    originPolicy,
	}, eventBus, val, log)

	dispatcher, err := scheduler.NewDispatcher(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()

	worker, err := scheduler.NewWorker(cfg, outboxRepo, sender, paymentsModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped", "error", err)
		panic("scheduler stopped: " + err.Error())
	}
	log.Info("scheduler shut down")
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
