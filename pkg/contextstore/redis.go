package contextstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Contexts are stored as JSON values
// with an optional per-session TTL, the analytics turn log as a capped list.
// Suitable for multi-node deployments.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	limits Limits
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all context keys (default: "tripcourier:ctx:").
	Prefix string
	// SessionTTL is the session expiry duration (0 = never expire).
	SessionTTL time.Duration
	// PoolSize is the connection pool size (default: 10).
	PoolSize int

	Limits Limits
}

// NewRedisStore creates a Redis-backed context store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "tripcourier:ctx:"
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    cfg.SessionTTL,
		limits: cfg.Limits.withDefaults(),
	}, nil
}

// NewRedisStoreFromClient creates a Redis store from an existing client.
// This is useful for testing with miniredis.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration, limits Limits) *RedisStore {
	if prefix == "" {
		prefix = "tripcourier:ctx:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		limits: limits.withDefaults(),
	}
}

func (s *RedisStore) contextKey(sessionID string) string {
	return s.prefix + "state:" + sessionID
}

func (s *RedisStore) logKey(sessionID string) string {
	return s.prefix + "log:" + sessionID
}

func (s *RedisStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Get returns the context for a session, creating a default one if absent.
// The default is not written until the first Update.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Context, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.load(ctx, sessionID)
}

func (s *RedisStore) load(ctx context.Context, sessionID string) (*Context, error) {
	data, err := s.client.Get(ctx, s.contextKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return newContext(sessionID, time.Now().UTC()), nil
		}
		return nil, fmt.Errorf("%w: get context: %v", ErrStoreUnavailable, err)
	}

	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	return &c, nil
}

// Update merges the update into the stored context and writes the merged
// state back in a single SET, so a failed turn never leaves a partial write.
func (s *RedisStore) Update(ctx context.Context, sessionID string, upd Update) (*Context, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	applyUpdate(c, upd, s.limits, time.Now().UTC())

	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.contextKey(sessionID), data, s.ttl)
	for _, turn := range upd.Turns {
		entry, err := json.Marshal(turn)
		if err != nil {
			return nil, fmt.Errorf("marshal turn: %w", err)
		}
		pipe.RPush(ctx, s.logKey(sessionID), entry)
	}
	pipe.LTrim(ctx, s.logKey(sessionID), int64(-s.limits.MaxLogTurns), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.logKey(sessionID), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: save context: %v", ErrStoreUnavailable, err)
	}

	return c, nil
}

// Log returns the extended turn record for a session.
func (s *RedisStore) Log(ctx context.Context, sessionID string) ([]Turn, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	data, err := s.client.LRange(ctx, s.logKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: load log: %v", ErrStoreUnavailable, err)
	}

	turns := make([]Turn, 0, len(data))
	for _, d := range data {
		var turn Turn
		if err := json.Unmarshal([]byte(d), &turn); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Close releases the Redis client.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

// Ping checks if the Redis connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.client.Ping(ctx).Err()
}
