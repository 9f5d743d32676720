package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// genTTL bounds how long a key's generation counter outlives its last Delete.
// It must exceed the slowest load.
const genTTL = time.Hour

// Redis is a cache backed by a Redis server. Values are shared between
// processes; in-flight loads are only deduplicated within this process.
// Each key has a generation counter that Delete bumps; a load stores its
// result only if the counter has not moved since the load began.
type Redis struct {
	client redis.UniversalClient
	group  singleflight.Group
	log    *zap.Logger
}

// NewRedis wraps client
func NewRedis(client redis.UniversalClient, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{client: client, log: log}
}

// Get returns the cached value or loads and stores it. A Redis outage degrades
// to calling the loader directly.
func (r *Redis) Get(ctx context.Context, key string, ttl time.Duration, load Loader) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, redis.Nil) {
		r.log.Warn("cache_read_failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	gen, genErr := r.generation(ctx, key)
	res, err, _ := r.group.Do(key+"#"+strconv.FormatInt(gen, 10), func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if ttl > 0 && genErr == nil {
			r.store(ctx, key, gen, v, ttl)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func genKey(key string) string {
	return key + ":gen"
}

func (r *Redis) generation(ctx context.Context, key string) (int64, error) {
	gen, err := r.client.Get(ctx, genKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// store writes v under key unless a Delete bumped the generation meanwhile
func (r *Redis) store(ctx context.Context, key string, gen int64, v []byte, ttl time.Duration) {
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey(key)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleLoad
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, v, ttl)
			return nil
		})
		return err
	}, genKey(key))
	switch {
	case err == nil:
	case errors.Is(err, errStaleLoad), errors.Is(err, redis.TxFailedErr):
		r.log.Debug("cache_write_skipped_stale", zap.String("key", key))
	default:
		r.log.Warn("cache_write_failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

var errStaleLoad = errors.New("cache key invalidated during load")

// Delete removes keys and bumps their generations so loads already running
// cannot write them back.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keys...)
		for _, k := range keys {
			p.Incr(ctx, genKey(k))
			p.Expire(ctx, genKey(k), genTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// Ping checks connectivity
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

var _ Cache = (*Redis)(nil)
