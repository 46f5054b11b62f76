package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/assistant-auth/internal/api/http"
	"github.com/spec-kit/assistant-auth/internal/api/http/handlers"
	"github.com/spec-kit/assistant-auth/internal/auth"
	"github.com/spec-kit/assistant-auth/internal/config"
	"github.com/spec-kit/assistant-auth/internal/events"
	"github.com/spec-kit/assistant-auth/internal/observability"
	"github.com/spec-kit/assistant-auth/internal/persistence"
	"github.com/spec-kit/assistant-auth/internal/repository"
	"github.com/spec-kit/assistant-auth/internal/service"
	"github.com/spec-kit/assistant-auth/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Missing AUTH_SESSION_SECRET lands here: refusing to start beats
		// serving sessions signed with a guessable default.
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

	var userRepo repository.UserRepository
	if pool := pg.PoolHandle(); pool != nil {
		userRepo = repository.NewUserRepository(pool)
	} else {
		logger.Warn("running with in-memory user store; accounts will not survive restarts")
		userRepo = repository.NewMemoryUserRepository()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	auditService := service.NewAuditService(dispatcher, logger)
	worker.StartAuditWorker(auditService)

	guard := auth.NewRouteGuard(authService.Sessions(), logger, metrics)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, guard, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	authHandler := handlers.NewAuthHandler(authService, cfg.App)
	profileHandler := handlers.NewProfileHandler(authService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:       healthHandler,
		Auth:         authHandler,
		Profile:      profileHandler,
		LoginLimiter: httptransport.LoginRateLimit(redis.Client, cfg.Auth.LoginAttemptsPerMinute),
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
