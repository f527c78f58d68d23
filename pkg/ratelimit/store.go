package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists backoff state. The Redis store lets several CLI processes
// sharing one account honour the same backoff window.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// MemoryStore keeps state in process.
type MemoryStore struct {
	mu    sync.Mutex
	state State
}

// NewMemoryStore returns a store holding a healthy state.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: Healthy()}
}

// Load returns the stored state.
func (m *MemoryStore) Load(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

// Save replaces the stored state.
func (m *MemoryStore) Save(ctx context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	return nil
}

// RedisStore keeps state in Redis.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

// Load reads the state from Redis. Missing keys yield a healthy state.
func (r *RedisStore) Load(ctx context.Context) (State, error) {
	vals, err := r.redis.MGet(ctx, RedisKeyBlockedUntil, RedisKeyRemaining, RedisKeyLastUpdate).Result()
	if err != nil {
		return State{}, fmt.Errorf("load rate limit state: %w", err)
	}

	state := Healthy()
	if v, ok := vals[0].(string); ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return State{}, fmt.Errorf("parse blocked_until: %w", err)
		}
		state.BlockedUntil = time.UnixMilli(ms)
	}
	if v, ok := vals[1].(string); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return State{}, fmt.Errorf("parse remaining: %w", err)
		}
		state.Remaining = n
	}
	if v, ok := vals[2].(string); ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return State{}, fmt.Errorf("parse last_update: %w", err)
		}
		state.LastUpdate = time.UnixMilli(ms)
	}
	return state, nil
}

// Save writes the state atomically. Keys expire with the backoff window
// so an abandoned block never outlives its reset.
func (r *RedisStore) Save(ctx context.Context, state State) error {
	ttl := time.Until(state.BlockedUntil)
	if ttl < time.Minute {
		ttl = time.Minute
	}

	pipe := r.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyBlockedUntil, state.BlockedUntil.UnixMilli(), ttl)
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, ttl)
	pipe.Set(ctx, RedisKeyLastUpdate, state.LastUpdate.UnixMilli(), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}
