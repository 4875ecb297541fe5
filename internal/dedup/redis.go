package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares dedup state across processes. SETNX gives the same
// single-mutation-point guarantee the memory store gets from its mutex.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	minGap  time.Duration
	horizon time.Duration
}

// RedisOptions configures the Redis-backed store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	MinGap   time.Duration
	Horizon  time.Duration
}

// NewRedisStore connects and pings the Redis backend.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{
		client:  client,
		prefix:  opts.Prefix,
		minGap:  opts.MinGap,
		horizon: opts.Horizon,
	}, nil
}

// ShouldProcess mirrors MemoryStore semantics: bar keys are claimed once
// (expiry is the eviction horizon, not a retry window); barless keys are
// claimed for the burst gap.
func (s *RedisStore) ShouldProcess(ctx context.Context, key Key, _ time.Time) (bool, error) {
	if key.HasBar() {
		ok, err := s.client.SetNX(ctx, s.wrap("bar", key.barID()), 1, s.horizon).Result()
		if err != nil {
			return false, fmt.Errorf("dedup setnx: %w", err)
		}
		if ok {
			// Refresh the gap marker too so barless retransmits of the
			// same instrument stay suppressed.
			s.client.Set(ctx, s.wrap("gap", key.gapID()), 1, s.minGap)
		}
		return ok, nil
	}

	ok, err := s.client.SetNX(ctx, s.wrap("gap", key.gapID()), 1, s.minGap).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return ok, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) wrap(kind, id string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, kind, id)
}
