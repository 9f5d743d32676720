package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/benvon/smart-agenda/internal/bootstrap"
	"github.com/benvon/smart-agenda/internal/config"
	"github.com/benvon/smart-agenda/internal/database"
	"github.com/benvon/smart-agenda/internal/handlers"
	"github.com/benvon/smart-agenda/internal/middleware"
	"github.com/benvon/smart-agenda/internal/queue"
	"github.com/benvon/smart-agenda/internal/registry"
	"github.com/benvon/smart-agenda/internal/services/habits"
	"github.com/benvon/smart-agenda/internal/telemetry"
)

const serviceName = "smart-agenda-api"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	openAPIFlag := flag.String("openapi", filepath.Join("api", "openapi", "openapi.yaml"), "Path to the OpenAPI document")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireQueue(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag
	zapLogger, stopLogger, err := bootstrap.Logger(cfg, debugMode)
	if err != nil {
		log.Fatal(err)
	}
	defer stopLogger()

	if err := run(cfg, *openAPIFlag, zapLogger); err != nil {
		zapLogger.Fatal("server_failed", zap.Error(err))
	}
}

func run(cfg *config.Config, openAPIPath string, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zapLogger.Info("starting_server",
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("timezone", cfg.Location().String()),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTELEnabled && cfg.OTELEndpoint != "", serviceName, cfg.OTELEndpoint, zapLogger)
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	zapLogger.Info("connected_to_database", zap.String("dialect", string(db.Dialect())))

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = bootstrap.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
	}

	jobQueue, err := bootstrap.ConnectQueue(ctx, cfg.RabbitMQURL, zapLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	habitService := habits.NewService(
		database.NewHabitRepository(db),
		registry.Default(),
		bootstrap.NewCache(redisClient, zapLogger),
		cfg.SnapshotCacheTTL,
		zapLogger,
		habits.WithQueue(jobQueue),
		habits.WithTracer(telemetry.Tracer()),
	)
	taskRepo := database.NewTaskRepository(db)

	healthChecker := handlers.NewHealthChecker(db.HealthCheck).
		AddCheck("rabbitmq", jobQueue.HealthCheck)
	if redisClient != nil {
		healthChecker.AddCheck("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	openAPIHandler, err := handlers.NewOpenAPIHandler(openAPIPath)
	if err != nil {
		return err
	}

	rateStore, err := rateLimitStore(redisClient)
	if err != nil {
		return err
	}
	corsReloader := middleware.NewCORSReloader(database.NewCorsConfigRepository(db), cfg.FrontendURL, zapLogger, time.Minute)
	rateLimitReloader := middleware.NewRateLimitReloader(rateStore, database.NewRatelimitConfigRepository(db), middleware.DefaultRatelimitRate, zapLogger, time.Minute)

	// gorilla/mux runs middleware in registration order, first registered outermost
	r := mux.NewRouter()
	r.Use(otelmux.Middleware(serviceName))
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(corsReloader.Middleware())
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))

	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", versionInfo).Methods(http.MethodGet)
	openAPIHandler.RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(rateLimitReloader.Middleware())
	apiRouter.Use(middleware.Tenant(zapLogger))

	loc := cfg.Location()
	handlers.NewHabitHandler(habitService, loc, zapLogger).RegisterRoutes(apiRouter.PathPrefix("/habits").Subrouter())
	handlers.NewTaskHandler(taskRepo, loc, zapLogger).RegisterRoutes(apiRouter.PathPrefix("/tasks").Subrouter())
	handlers.NewAgendaHandler(taskRepo, loc, zapLogger).RegisterRoutes(apiRouter)

	// preflight requests are answered by the CORS middleware; this gives them a route to match
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      middleware.DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go corsReloader.Start(ctx)
	go rateLimitReloader.Start(ctx)

	gc := queue.NewGarbageCollector(jobQueue, time.Hour, 24*time.Hour, zapLogger)
	go func() {
		if err := gc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info("server_listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	zapLogger.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	zapLogger.Info("server_exited")
	return nil
}

// rateLimitStore shares counters through Redis when available
func rateLimitStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memory.NewStore(), nil
	}
	store, err := redisstore.NewStore(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit store: %w", err)
	}
	return store, nil
}

func versionInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":%q,"timestamp":%q}`, version, time.Now().UTC().Format(time.RFC3339))
}

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"
