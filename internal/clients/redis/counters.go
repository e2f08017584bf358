package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aymarr/mediguardian-backend/internal/pkg/logger"
)

// CounterStore backs the escalation failure counters with redis so they
// survive process restarts and are shared across replicas.
type CounterStore struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewCounterStore(log *logger.Logger) (*CounterStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &CounterStore{
		log: log.With("service", "RedisCounterStore"),
		rdb: rdb,
	}, nil
}

func (c *CounterStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c == nil || c.rdb == nil {
		return 0, fmt.Errorf("redis counter store not initialized")
	}
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// NX keeps the original expiry so the window stays anchored to the first
	// failure of the day.
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr %q: %w", key, err)
	}
	return incr.Val(), nil
}

func (c *CounterStore) Reset(ctx context.Context, key string) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis counter store not initialized")
	}
	return c.rdb.Del(ctx, key).Err()
}

func (c *CounterStore) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
