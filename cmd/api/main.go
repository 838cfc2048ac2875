package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/diagnostic-login/internal/api/http"
	"github.com/spec-kit/diagnostic-login/internal/api/http/handlers"
	"github.com/spec-kit/diagnostic-login/internal/config"
	"github.com/spec-kit/diagnostic-login/internal/events"
	"github.com/spec-kit/diagnostic-login/internal/observability"
	"github.com/spec-kit/diagnostic-login/internal/persistence"
	"github.com/spec-kit/diagnostic-login/internal/service"
	"github.com/spec-kit/diagnostic-login/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	stores := persistence.NewStores(pg, rdb, cfg.Redis, logger)
	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:     stores.Users,
		ExchangeRepo: stores.Exchanges,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})

	if cfg.Seed.Enabled {
		seeds := service.DemoUsers()
		if cfg.Seed.UsersFile != "" {
			if seeds, err = service.LoadSeedUsers(cfg.Seed.UsersFile); err != nil {
				logger.Fatal("failed to load seed users", zap.Error(err))
			}
		}
		if _, err := service.SeedUsers(ctx, stores.Users, seeds, cfg.Auth.BcryptCost, logger); err != nil {
			logger.Fatal("failed to seed users", zap.Error(err))
		}
	}

	app := httptransport.NewApp(*cfg, httptransport.ServerDeps{
		Auth:    authService,
		Users:   stores.Users,
		Logger:  logger,
		Metrics: metrics,
		Health: map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    rdb,
		},
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
