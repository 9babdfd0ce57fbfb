// Command billing runs one invoice generation pass plus the overdue
// reclassification and exits. Intended for cron-style scheduling next to the
// API server; the (asset, period) constraint makes concurrent runs safe.
package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/kubikportal/portal-service/internal/config"
	"github.com/kubikportal/portal-service/internal/events"
	"github.com/kubikportal/portal-service/internal/observability"
	"github.com/kubikportal/portal-service/internal/persistence"
	"github.com/kubikportal/portal-service/internal/repository"
	"github.com/kubikportal/portal-service/internal/service"
	"github.com/kubikportal/portal-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	store, err := storage.NewMinioStore(ctx, cfg.Minio, logger)
	if err != nil {
		logger.Fatal("failed to connect object storage", zap.Error(err))
	}

	pool := pg.PoolHandle()
	dispatcher := events.NewInMemoryDispatcher()
	billing := service.NewBillingService(cfg.Billing, service.BillingDependencies{
		InvoiceRepo:  repository.NewInvoiceRepository(pool),
		AssetRepo:    repository.NewAssetRepository(pool),
		UserRepo:     repository.NewUserRepository(pool),
		SettingsRepo: repository.NewSettingsRepository(pool),
		Redis:        redis,
		Store:        store,
		Mailer:       service.NewLogMailer(logger),
		EmailFrom:    cfg.Notification.EmailFrom,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})

	report, err := billing.RunBillingCycle(ctx, time.Now())
	if err != nil {
		logger.Fatal("billing run failed", zap.Error(err))
	}
	logger.Info("billing run report",
		zap.String("period", report.Period),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))

	if _, err := billing.ReclassifyOverdue(ctx, time.Now()); err != nil {
		logger.Fatal("overdue sweep failed", zap.Error(err))
	}
}
