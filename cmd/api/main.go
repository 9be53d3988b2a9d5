package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mission-rewards-ledger/config"
	httpHandler "mission-rewards-ledger/internal/adapter/http/handler"
	"mission-rewards-ledger/internal/adapter/http/middleware"
	pgStorage "mission-rewards-ledger/internal/adapter/storage/postgres"
	redisStorage "mission-rewards-ledger/internal/adapter/storage/redis"
	"mission-rewards-ledger/internal/core/domain"
	"mission-rewards-ledger/internal/core/ports"
	"mission-rewards-ledger/internal/service"
	"mission-rewards-ledger/pkg/logger"

	"github.com/google/uuid"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("currency", cfg.Ledger.Currency).
		Msg("Starting Mission Rewards Ledger")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	if cfg.Database.AutoMigrate {
		applied, err := pgStorage.Migrate(ctx, pool, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Int("applied", applied).Msg("Migrations up to date")
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	businessRepo := pgStorage.NewBusinessRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	campaignRepo := pgStorage.NewCampaignRepo(pool)
	missionRepo := pgStorage.NewMissionRepo(pool)
	actionRepo := pgStorage.NewActionRepo(pool)
	notifRepo := pgStorage.NewNotificationRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	nonceStore := redisStorage.NewNonceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)
	publisher := redisStorage.NewStreamPublisher(rdb, cfg.Notifications.Stream)

	// Ledger core
	platformID, err := cfg.Ledger.PlatformOwner()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid platform owner id")
	}
	ledger := service.NewLedgerService(walletRepo, txRepo, platformID, cfg.Ledger.Currency, log)
	if err := ensurePlatformWallet(ctx, transactor, ledger, platformID); err != nil {
		log.Fatal().Err(err).Msg("Failed to provision platform wallet")
	}

	// Initialize core services
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	factory := service.NewMissionFactory(cfg.Ledger.MaxMissionsPerCampaign)
	authSvc := service.NewAuthService(accountRepo, businessRepo, ledger, hashSvc, tokenSvc, transactor)
	campaignSvc := service.NewCampaignService(
		campaignRepo,
		missionRepo,
		businessRepo,
		notifRepo,
		ledger,
		factory,
		transactor,
		cfg.Ledger.MinCampaignBudget,
		log,
	)
	actionSvc := service.NewActionService(actionRepo, missionRepo, campaignRepo, notifRepo, ledger, transactor, log)
	walletSvc := service.NewWalletService(
		ledger,
		txRepo,
		idempotencyRepo,
		idempotencyCache,
		notifRepo,
		transactor,
		cfg.Gateway.IdempotencyTTL,
		log,
	)
	reportingSvc := service.NewReportingService(campaignRepo, missionRepo, actionRepo, txRepo)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Notification outbox dispatcher
	dispatcher := service.NewNotificationDispatcher(notifRepo, publisher, service.DispatcherOptions{
		PollInterval: cfg.Notifications.PollInterval,
		BatchSize:    cfg.Notifications.BatchSize,
		MaxAttempts:  cfg.Notifications.MaxAttempts,
	}, log)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:      authSvc,
		CampaignSvc:  campaignSvc,
		ActionSvc:    actionSvc,
		WalletSvc:    walletSvc,
		ReportingSvc: reportingSvc,
		SigSvc:       sigSvc,
		NonceStore:   nonceStore,
		TokenSvc:     tokenSvc,
		Gateway: middleware.GatewayAuthConfig{
			Secret:            cfg.Gateway.Secret,
			NonceTTL:          cfg.Gateway.NonceTTL,
			MaxTimestampDrift: cfg.Gateway.MaxTimestampDrift,
		},
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		AuditSvc:       auditSvc,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	select {
	case <-dispatcherDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Notification dispatcher did not stop in time")
	}

	log.Info().Msg("Server exited")
}

// ensurePlatformWallet creates the commission wallet on first boot.
func ensurePlatformWallet(ctx context.Context, transactor ports.DBTransactor, ledger ports.Ledger, platformID uuid.UUID) error {
	tx, err := transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := ledger.EnsureWallet(ctx, tx, domain.PlatformOwner(platformID)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
