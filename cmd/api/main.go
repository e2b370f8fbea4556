package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/attendance-service/internal/api/http"
	"github.com/spec-kit/attendance-service/internal/api/http/handlers"
	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/clock"
	"github.com/spec-kit/attendance-service/internal/config"
	"github.com/spec-kit/attendance-service/internal/events"
	"github.com/spec-kit/attendance-service/internal/observability"
	"github.com/spec-kit/attendance-service/internal/persistence"
	"github.com/spec-kit/attendance-service/internal/repository"
	"github.com/spec-kit/attendance-service/internal/repository/memstore"
	"github.com/spec-kit/attendance-service/internal/service"
	"github.com/spec-kit/attendance-service/internal/worker"
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

	loc, err := cfg.Attendance.Location()
	if err != nil {
		logger.Fatal("invalid attendance timezone", zap.Error(err))
	}

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

	dependencies := map[string]handlers.Pinger{}
	var (
		userRepo       repository.UserRepository
		attendanceRepo repository.AttendanceRepository
		tokenRepo      repository.AttendanceTokenRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		dependencies["postgres"] = pg
		userRepo = repository.NewUserRepository(pool)
		attendanceRepo = repository.NewAttendanceRepository(pool)
		tokenRepo = repository.NewAttendanceTokenRepository(pool)
	} else {
		logger.Warn("running with in-memory storage; data is lost on restart")
		userRepo = memstore.NewUsers()
		attendanceRepo = memstore.NewAttendance()
		tokenRepo = memstore.NewTokens()
	}

	switch cfg.Attendance.TokenStore {
	case config.TokenStoreRedis:
		redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redis.Close()
		dependencies["redis"] = redis
		tokenRepo = repository.NewRedisAttendanceTokenRepository(redis.Client)
	case config.TokenStoreMemory:
		tokenRepo = memstore.NewTokens()
	}
	logger.Info("attendance token store selected", zap.String("store", cfg.Attendance.TokenStore))

	metrics := observability.NewMetrics()
	clk := clock.System{}

	dispatcher := events.NewInMemoryDispatcher()
	var sink events.EventHandler
	if cfg.Kafka.Enabled() {
		kafkaSink := events.NewKafkaSink(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		defer kafkaSink.Close() //nolint:errcheck
		sink = kafkaSink.Handle
		logger.Info("publishing attendance events to kafka", zap.String("topic", cfg.Kafka.Topic))
	}
	notificationsDone := worker.StartNotificationWorker(ctx, service.NewNotificationService(dispatcher, logger, sink))

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	issuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.JWTIssuer,
		AccessTTL:  cfg.Auth.AccessTokenTTL(),
		RefreshTTL: cfg.Auth.RefreshTokenTTL(),
	}, clk)
	authService := service.NewAuthService(service.AuthDependencies{
		Users:  userRepo,
		Hasher: hasher,
		Tokens: issuer,
		Logger: logger,
	})
	if err := authService.EnsureAdmin(ctx, cfg.Auth.BootstrapAdminUsername, cfg.Auth.BootstrapAdminPassword); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	registry := service.NewTokenRegistry(tokenRepo, attendanceRepo, clk, cfg.Attendance.TokenTTL(), loc)
	attendanceService := service.NewAttendanceService(service.AttendanceDependencies{
		Users:      userRepo,
		Registry:   registry,
		Ledger:     service.NewLedger(attendanceRepo),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Clock:      clk,
		Location:   loc,
	})

	userService := service.NewUserService(service.UserDependencies{
		Users:  userRepo,
		Hasher: hasher,
		Logger: logger,
	})

	sweeper := worker.NewTokenSweeper(registry, cfg.Attendance.SweepInterval(), clk, metrics, logger)
	go sweeper.Run(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Users:             handlers.NewUsersHandler(authService),
		Attendance:        handlers.NewAttendanceHandler(attendanceService),
		Accounts:          handlers.NewAccountsHandler(userService),
		AuthMiddleware:    auth.NewAuthMiddleware(authService.TokenIssuer()),
		Metrics:           metrics,
		AuthRatePerMinute: cfg.RateLimit.AuthPerMinute,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	<-notificationsDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
