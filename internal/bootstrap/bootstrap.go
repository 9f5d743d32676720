// Package bootstrap wires the infrastructure shared by the server and worker
// binaries.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/benvon/smart-agenda/internal/cache"
	"github.com/benvon/smart-agenda/internal/config"
	"github.com/benvon/smart-agenda/internal/logger"
	"github.com/benvon/smart-agenda/internal/queue"
)

// Backoff controls Retry
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// DefaultBackoff rides out broker startup in compose and Kubernetes
var DefaultBackoff = Backoff{Attempts: 10, Initial: 2 * time.Second, Max: 30 * time.Second}

// Retry calls fn until it succeeds, attempts run out or ctx is done. Delays
// double from Initial up to Max.
func Retry(ctx context.Context, b Backoff, log *zap.Logger, what string, fn func() error) error {
	if b.Attempts < 1 {
		b.Attempts = 1
	}
	var err error
	delay := b.Initial
	for attempt := 1; attempt <= b.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == b.Attempts {
			break
		}
		log.Warn("connect_failed_retrying",
			zap.String("target", what),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", b.Attempts),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > b.Max {
			delay = b.Max
		}
	}
	return fmt.Errorf("failed to connect to %s after %d attempts: %w", what, b.Attempts, err)
}

// ConnectQueue dials RabbitMQ with retries
func ConnectQueue(ctx context.Context, url string, log *zap.Logger) (*queue.RabbitMQQueue, error) {
	var q *queue.RabbitMQQueue
	err := Retry(ctx, DefaultBackoff, log, "rabbitmq", func() error {
		var err error
		q, err = queue.NewRabbitMQQueue(url, log)
		return err
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ConnectRedis parses url and pings the server
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewCache returns a Redis-backed cache when client is set, else an
// in-process one.
func NewCache(client *redis.Client, log *zap.Logger) cache.Cache {
	if client == nil {
		return cache.NewMemory()
	}
	return cache.NewRedis(client, log)
}

// Logger builds the production logger and, when the config came from a file,
// follows log_level changes in that file. The returned stop function is
// never nil.
func Logger(cfg *config.Config, debug bool) (*zap.Logger, func(), error) {
	log, level, err := logger.NewProductionLogger(debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if !debug {
		if err := logger.SetLevel(level, cfg.LogLevel); err != nil {
			log.Warn("invalid_log_level_ignored", zap.String("log_level", cfg.LogLevel), zap.Error(err))
		}
	}
	stop := func() { _ = logger.Sync(log) }
	if cfg.ConfigFile == "" {
		return log, stop, nil
	}

	w, err := config.NewWatcher(cfg.ConfigFile, func(next *config.Config) {
		applyLevel(log, level, next.LogLevel)
	}, log)
	if err != nil {
		log.Warn("config_watch_disabled", zap.Error(err))
		return log, stop, nil
	}
	return log, func() {
		_ = w.Close()
		_ = logger.Sync(log)
	}, nil
}

func applyLevel(log *zap.Logger, level zap.AtomicLevel, name string) {
	before := level.Level()
	if err := logger.SetLevel(level, name); err != nil {
		log.Warn("invalid_log_level_ignored", zap.String("log_level", name), zap.Error(err))
		return
	}
	if level.Level() != before {
		log.Info("log_level_changed",
			zap.String("from", before.String()),
			zap.String("to", level.Level().String()),
		)
	}
}
