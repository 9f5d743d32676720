package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/benvon/smart-agenda/internal/bootstrap"
	"github.com/benvon/smart-agenda/internal/config"
	"github.com/benvon/smart-agenda/internal/database"
	"github.com/benvon/smart-agenda/internal/queue"
	"github.com/benvon/smart-agenda/internal/registry"
	"github.com/benvon/smart-agenda/internal/services/habits"
	"github.com/benvon/smart-agenda/internal/telemetry"
	"github.com/benvon/smart-agenda/internal/workers"
)

const serviceName = "smart-agenda-worker"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	noScheduler := flag.Bool("no-scheduler", false, "Only consume jobs; another replica runs the daily scheduler")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireQueue(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag
	zapLogger, stopLogger, err := bootstrap.Logger(cfg, debugMode)
	if err != nil {
		log.Fatal(err)
	}
	defer stopLogger()

	if err := run(cfg, !*noScheduler, zapLogger); err != nil {
		zapLogger.Fatal("worker_failed", zap.Error(err))
	}
}

func run(cfg *config.Config, withScheduler bool, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zapLogger.Info("starting_worker",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
		zap.String("timezone", cfg.Location().String()),
		zap.Bool("scheduler", withScheduler),
	)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTELEnabled && cfg.OTELEndpoint != "", serviceName, cfg.OTELEndpoint, zapLogger)
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
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
	zapLogger.Info("connected_to_database")

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		if redisClient, err = bootstrap.ConnectRedis(ctx, cfg.RedisURL); err != nil {
			// refreshes then only recompute; the API's cache expires on its own TTL
			zapLogger.Warn("redis_unavailable_using_local_cache", zap.Error(err))
			redisClient = nil
		} else {
			defer func() { _ = redisClient.Close() }()
		}
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
		habits.WithTracer(telemetry.Tracer()),
	)
	loc := cfg.Location()
	processor := workers.NewProcessor(habitService, jobQueue, loc, zapLogger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consume(gctx, jobQueue, processor, cfg.RabbitMQPrefetch, zapLogger)
	})
	if withScheduler {
		scheduler := workers.NewScheduler(habitService, jobQueue, loc, zapLogger)
		g.Go(func() error { return ignoreCancel(scheduler.Run(gctx)) })
	}

	err = g.Wait()
	zapLogger.Info("worker_stopped")
	return err
}

// consume processes deliveries with up to prefetch jobs in flight
func consume(ctx context.Context, jobQueue queue.JobQueue, processor *workers.Processor, prefetch int, zapLogger *zap.Logger) error {
	msgChan, errChan, err := jobQueue.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	zapLogger.Info("worker_consuming")

	var inflight errgroup.Group
	inflight.SetLimit(prefetch)
	defer func() { _ = inflight.Wait() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			zapLogger.Error("queue_error", zap.Error(err))
		case msg, ok := <-msgChan:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("delivery channel closed")
			}
			inflight.Go(func() error {
				if err := processor.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("failed_to_process_job", zap.Error(err))
				}
				return nil
			})
		}
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
