package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carva/internal/app"
	"carva/internal/auth"
	"carva/internal/config"
	"carva/internal/handler"
	"carva/internal/logging"
	"carva/internal/middleware"
	internalRedis "carva/internal/redis"
	"carva/internal/repository/jsonkv"
	"carva/internal/service"
	"carva/internal/store"
	"carva/internal/store/mongo"
	"carva/internal/store/postgres"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	logger, logCloser, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", "error", err)
			nrApp = nil
		} else {
			logger.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	if cfg.Tracing.Enabled {
		shutdownTracer, err := app.InitTracer(ctx, cfg.Tracing, cfg.NewRelic.AppName, logger)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer shutdownTracer()
		}
	}

	// Redis serves driver positions, locks and idempotency regardless of
	// where the collections live.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		client, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			if cfg.Store.Backend == config.BackendRedis {
				return fmt.Errorf("connect to redis: %w", err)
			}
			logger.Warn("redis unavailable, continuing without it", "error", err)
		} else {
			redisClient = client
			defer redisClient.Close()
			logger.Info("connected to redis", "addr", cfg.Redis.Addr)
		}
	}

	kv, closeStore, err := openStore(ctx, cfg, redisClient, nrApp, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("record store ready", "backend", cfg.Store.Backend)

	server, timeoutJob, err := wireServer(ctx, kv, redisClient, nrApp, cfg, logger)
	if err != nil {
		return err
	}

	jobCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	timeoutJob.Start(jobCtx)

	// Start server in goroutine.
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutting down server")

	timeoutJob.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
	return nil
}

// openStore connects the configured backend for the record collections.
// The returned function releases the connection it opened.
func openStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client, nrApp *newrelic.Application, logger *slog.Logger) (store.KV, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return store.NewMemory(), func() {}, nil

	case config.BackendRedis:
		if redisClient == nil {
			return nil, nil, fmt.Errorf("store backend %q requires REDIS_ENABLED", cfg.Store.Backend)
		}
		return internalRedis.NewKVStore(redisClient), func() {}, nil

	case config.BackendPostgres:
		db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to postgres", "host", cfg.Database.Host, "database", cfg.Database.DBName)
		return postgres.NewKVStore(db, cfg.Database.DSN(), logger), func() { db.Close() }, nil

	case config.BackendMongo:
		client, err := app.NewMongoClient(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to mongodb", "database", cfg.Mongo.Database)
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.Warn("mongodb disconnect failed", "error", err)
			}
		}
		return mongo.NewKVStore(client, cfg.Mongo.Database, logger), closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	ctx context.Context,
	kv store.KV,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *slog.Logger,
) (*http.Server, *service.WorkshopTimeoutJob, error) {
	// Initialize Redis stores. Interfaces stay nil without Redis.
	var (
		locationStore internalRedis.LocationStoreInterface
		lockStore     internalRedis.LockStoreInterface
		responseCache middleware.ResponseCache
	)
	if redisClient != nil {
		locationStore = internalRedis.NewLocationStore(redisClient)
		lockStore = internalRedis.NewLockStore(redisClient)
		responseCache = middleware.NewRedisResponseCache(redisClient)
	}

	// Initialize repositories.
	accountRepo := jsonkv.NewAccountRepository(kv, logger)
	workshopRepo := jsonkv.NewWorkshopRepository(kv, logger)
	requestRepo := jsonkv.NewRequestRepository(kv, logger)
	paymentRepo := jsonkv.NewPaymentRepository(kv, logger)
	rejectionRepo := jsonkv.NewRejectionRepository(kv, logger)
	flagRepo := jsonkv.NewFlagRepository(kv)

	// Initialize services.
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	notificationService := service.NewNotificationService(accountRepo, logger)
	accountService := service.NewAccountService(accountRepo, workshopRepo, tokens, notificationService,
		cfg.Auth.OTPCode, cfg.Lifecycle.StartingBalance, logger)
	workshopService := service.NewWorkshopService(workshopRepo, requestRepo, logger)
	driverService := service.NewDriverService(locationStore, accountRepo, requestRepo, rejectionRepo, logger)
	requestService := service.NewRequestService(requestRepo, rejectionRepo, accountRepo, workshopRepo,
		locationStore, lockStore, notificationService, service.LifecycleSettings{
			TripRatePerKm:   cfg.Lifecycle.TripRatePerKm,
			WorkshopTimeout: cfg.Lifecycle.WorkshopTimeout,
		}, logger)
	paymentService := service.NewPaymentService(requestRepo, accountRepo, paymentRepo, lockStore, notificationService, logger)

	if err := workshopService.Seed(ctx); err != nil {
		return nil, nil, fmt.Errorf("seed workshops: %w", err)
	}

	timeoutJob := service.NewWorkshopTimeoutJob(requestService, cfg.Lifecycle.TimeoutCheckInterval, logger)

	// Initialize handlers.
	intervals := handler.DefaultSyncIntervals()
	intervals.Request = cfg.Lifecycle.RequestPollInterval
	intervals.Feed = cfg.Lifecycle.FeedPollInterval
	intervals.Arrival = cfg.Lifecycle.ArrivalPollInterval

	router := app.NewRouter(app.RouterDeps{
		AccountHandler:  handler.NewAccountHandler(accountService, paymentService),
		RequestHandler:  handler.NewRequestHandler(requestService),
		TripHandler:     handler.NewTripHandler(requestService),
		DriverHandler:   handler.NewDriverHandler(driverService),
		WorkshopHandler: handler.NewWorkshopHandler(workshopService, requestService),
		PaymentHandler:  handler.NewPaymentHandler(paymentService, requestService),
		SyncHandler: handler.NewSyncHandler(requestRepo, flagRepo, requestService, driverService,
			workshopService, kv, intervals, logger),
		Tokens:        tokens,
		ResponseCache: responseCache,
		AllowOrigins:  cfg.Server.AllowOrigins,
		NewRelicApp:   nrApp,
	})

	// Create HTTP server. Websocket pumps reset the connection deadlines
	// after the upgrade.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, timeoutJob, nil
}
