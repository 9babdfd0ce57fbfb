package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/kubikportal/portal-service/internal/api/http"
	"github.com/kubikportal/portal-service/internal/api/http/handlers"
	"github.com/kubikportal/portal-service/internal/auth"
	"github.com/kubikportal/portal-service/internal/config"
	"github.com/kubikportal/portal-service/internal/events"
	"github.com/kubikportal/portal-service/internal/observability"
	"github.com/kubikportal/portal-service/internal/persistence"
	"github.com/kubikportal/portal-service/internal/repository"
	"github.com/kubikportal/portal-service/internal/service"
	"github.com/kubikportal/portal-service/internal/storage"
	"github.com/kubikportal/portal-service/internal/worker"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	store, err := storage.NewMinioStore(ctx, cfg.Minio, logger)
	if err != nil {
		logger.Fatal("failed to connect object storage", zap.Error(err))
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	assetRepo := repository.NewAssetRepository(pool)
	packageRepo := repository.NewPackageRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	invoiceRepo := repository.NewInvoiceRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	statsRepo := repository.NewStatsRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Dispatcher:        dispatcher,
	})
	userService := service.NewUserService(*cfg, userRepo, dispatcher, logger)
	assetService := service.NewAssetService(assetRepo, packageRepo, categoryRepo, invoiceRepo, ticketRepo)
	catalogService := service.NewCatalogService(packageRepo, categoryRepo, assetRepo)
	ticketService := service.NewTicketService(ticketRepo, messageRepo, attachmentRepo, historyRepo, assetRepo, store, dispatcher, logger)
	mailer := service.NewLogMailer(logger)
	billingService := service.NewBillingService(cfg.Billing, service.BillingDependencies{
		InvoiceRepo:  invoiceRepo,
		AssetRepo:    assetRepo,
		UserRepo:     userRepo,
		SettingsRepo: settingsRepo,
		Redis:        redis,
		Store:        store,
		Mailer:       mailer,
		EmailFrom:    cfg.Notification.EmailFrom,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	settingsService := service.NewSettingsService(settingsRepo)
	statsService := service.NewStatsService(statsRepo)

	notificationService := service.NewNotificationService(cfg.Notification, userRepo, settingsRepo, mailer, logger)
	worker.StartNotificationWorker(notificationService, dispatcher)
	service.NewWebhookNotifier(cfg.Notification, logger).Register(dispatcher)
	worker.StartOverdueSweep(ctx, billingService, time.Duration(cfg.Billing.OverdueSweepMinutes)*time.Minute, logger)

	if err := settingsService.SeedDefaults(ctx, cfg.Billing); err != nil {
		logger.Fatal("failed to seed billing settings", zap.Error(err))
	}
	if err := userService.EnsureBootstrapAdmin(ctx, cfg.Auth); err != nil {
		logger.Fatal("failed to ensure bootstrap admin", zap.Error(err))
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Assets:         handlers.NewAssetsHandler(assetService),
		Catalog:        handlers.NewCatalogHandler(catalogService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Invoices:       handlers.NewInvoicesHandler(billingService),
		Settings:       handlers.NewSettingsHandler(settingsService, statsService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
