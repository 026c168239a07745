package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/iho/poolledger/internal/adapter/chain"
	httpAdapter "github.com/iho/poolledger/internal/adapter/http"
	"github.com/iho/poolledger/internal/adapter/http/handler"
	"github.com/iho/poolledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/poolledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/poolledger/internal/adapter/repository/redis"
	"github.com/iho/poolledger/internal/infrastructure/auth"
	"github.com/iho/poolledger/internal/infrastructure/config"
	"github.com/iho/poolledger/internal/infrastructure/eventpublisher"
	"github.com/iho/poolledger/internal/infrastructure/logger"
	"github.com/iho/poolledger/internal/infrastructure/metrics"
	natsinfra "github.com/iho/poolledger/internal/infrastructure/nats"
	"github.com/iho/poolledger/internal/infrastructure/plans"
	"github.com/iho/poolledger/internal/infrastructure/postgres"
	"github.com/iho/poolledger/internal/infrastructure/redis"
	"github.com/iho/poolledger/internal/infrastructure/scheduler"
	"github.com/iho/poolledger/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l); err != nil {
		l.Fatal().Err(err).Msg("server exited with error")
	}
	l.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, l zerolog.Logger) error {
	dailyRate, err := cfg.DailyRate()
	if err != nil {
		return err
	}

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, l); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()
	l.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClient(ctx, redis.ClientConfig{URL: cfg.RedisURL, PoolSize: cfg.RedisPoolSize})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	l.Info().Msg("connected to redis")

	catalog := plans.NewCatalog(dailyRate)
	if cfg.PlansFile != "" {
		if catalog, err = plans.Load(cfg.PlansFile, dailyRate); err != nil {
			return err
		}
	}
	l.Info().Strs("plans", catalog.Names()).Msg("investment plans loaded")

	m := metrics.New()

	gateway, err := chain.NewGatewayClient(chain.GatewayConfig{
		BaseURL:       cfg.GatewayURL,
		APIKey:        cfg.GatewayAPIKey,
		Timeout:       cfg.GatewayTimeout,
		TokenDecimals: cfg.TokenDecimals,
		PoolWallet:    cfg.PoolWalletAddress,
	}, m, l)
	if err != nil {
		return err
	}

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	positionRepo := postgresRepo.NewPositionRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	withdrawalRepo := postgresRepo.NewWithdrawalRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier().WithLogger(l)
	settlementRetrier := postgresRepo.NewSettlementRetrier().WithLogger(l)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	cache := redisRepo.NewCache(redisClient)

	// Use cases
	settlementUC := usecase.NewSettlementUseCase(txManager, accountRepo, entryRepo, outboxRepo, idGen, settlementRetrier, m, l)
	accountUC := usecase.NewAccountUseCase(txManager, accountRepo, positionRepo, outboxRepo, auditRepo, idGen)
	entryUC := usecase.NewEntryUseCase(entryRepo)
	investmentUC := usecase.NewInvestmentUseCase(txManager, accountRepo, positionRepo, entryRepo, outboxRepo, catalog, gateway, idGen, m, l)
	disinvestUC := usecase.NewDisinvestUseCase(txManager, accountRepo, positionRepo, outboxRepo, settlementUC, gateway, idGen, cfg.TokenDecimals, m, l)
	claimUC := usecase.NewClaimUseCase(accountRepo, positionRepo, settlementUC, gateway, cfg.PoolWalletAddress, cfg.TokenDecimals, cfg.ClaimLockTTL, m, l)
	withdrawalUC := usecase.NewWithdrawalUseCase(
		txManager, accountRepo, entryRepo, withdrawalRepo, outboxRepo, auditRepo,
		gateway, idGen, retrier, cfg.TokenDecimals, cfg.WithdrawalLockTTL, m, l,
	)
	reconciliationUC := usecase.NewReconciliationUseCase(accountRepo, entryRepo, ledgerRepo)
	accrualUC := usecase.NewAccrualUseCase(positionRepo, entryRepo, idGen, usecase.AccrualConfig{
		Period:    cfg.AccrualPeriod,
		BatchSize: cfg.AccrualBatchSize,
		Workers:   cfg.AccrualWorkers,
	}, m, l)
	depositListener := usecase.NewDepositListener(
		accountRepo, cache, cfg.AddressCacheTTL, settlementUC, cfg.InternalAddresses(), m, l,
	)

	// Event bus
	var js jetstream.JetStream
	if cfg.ChainFeed == "nats" || cfg.EventPublisher == "nats" {
		nc, stream, err := natsinfra.Connect(cfg.NATSURL, "poolledger", l)
		if err != nil {
			return err
		}
		defer nc.Drain()
		js = stream

		if err := natsinfra.EnsureStreams(ctx, js, streamsFor(cfg)...); err != nil {
			return err
		}
	}

	feed, err := buildFeed(cfg, js, m, l)
	if err != nil {
		return err
	}

	publisher, closePublisher, err := buildPublisher(cfg, js, l)
	if err != nil {
		return err
	}
	defer closePublisher()

	eventPublisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Metrics:    m,
		Logger:     l,
		Interval:   cfg.OutboxInterval,
	})

	// HTTP
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	routerCfg := httpAdapter.RouterConfig{
		AccountHandler:    handler.NewAccountHandler(accountUC),
		EntryHandler:      handler.NewEntryHandler(entryUC),
		InvestmentHandler: handler.NewInvestmentHandler(investmentUC, disinvestUC),
		ClaimHandler:      handler.NewClaimHandler(claimUC),
		WithdrawalHandler: handler.NewWithdrawalHandler(withdrawalUC),
		LedgerHandler:     handler.NewLedgerHandler(reconciliationUC),
		AuditHandler:      handler.NewAuditHandler(usecase.NewAuditUseCase(auditRepo)),
		HealthHandler:     handler.NewHealthHandler(pool, redisPinger(redisClient)),
		IdempotencyStore:  idempotencyStore,
		IdempotencyTTL:    cfg.IdempotencyTTL,
		RateLimiter:       rateLimiter,
		Metrics:           m,
		MetricsHandler:    promhttp.Handler(),
		Logger:            logger.Component(l, "http"),
	}
	if cfg.AuthEnabled {
		jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration, cfg.JWTIssuer)
		routerCfg.JWTManager = jwtManager
		routerCfg.AuthHandler = handler.NewAuthHandler(jwtManager, accountUC)
	} else if cfg.DevHeaderAdmin {
		routerCfg.HeaderAdmin = true
		l.Warn().Msg("header auth accepts the admin role, do not expose this server")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	// Scheduled jobs
	sched := scheduler.New(gctx, l)
	if err := sched.Register("accrual", cfg.AccrualSchedule, func(ctx context.Context) error {
		_, err := accrualUC.Tick(ctx)
		return err
	}); err != nil {
		return err
	}
	if err := sched.Register("outbox_cleanup", "0 0 * * * *", func(ctx context.Context) error {
		return eventPublisher.Cleanup(ctx, cfg.OutboxRetention)
	}); err != nil {
		return err
	}
	if err := sched.Register("ratelimit_cleanup", "0 */5 * * * *", func(ctx context.Context) error {
		if n := rateLimiter.CleanupLimiters(10 * time.Minute); n > 0 {
			l.Debug().Int("removed", n).Msg("evicted idle rate limiters")
		}
		return nil
	}); err != nil {
		return err
	}
	sched.Start()

	g.Go(func() error {
		l.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return ignoreCanceled(eventPublisher.Start(gctx))
	})

	if feed != nil {
		g.Go(func() error {
			return ignoreCanceled(depositListener.Run(gctx, feed))
		})
	} else {
		l.Warn().Msg("no chain feed configured, deposits will not be credited")
	}

	g.Go(func() error {
		<-gctx.Done()
		l.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()

		sched.Stop(shutdownCtx)
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func redisPinger(client *goredis.Client) handler.PingFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
