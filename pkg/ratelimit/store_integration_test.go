//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestRedisStore_Integration_RoundTrip(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := NewRedisStore(redisClient)
	ctx := context.Background()

	state, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() on empty redis error = %v", err)
	}
	if state.Remaining != RemainingUnknown {
		t.Errorf("Remaining = %d, want unknown", state.Remaining)
	}

	want := State{
		BlockedUntil: time.Now().Add(30 * time.Second).Truncate(time.Millisecond),
		Remaining:    0,
		LastUpdate:   time.Now().Truncate(time.Millisecond),
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.BlockedUntil.Equal(want.BlockedUntil) {
		t.Errorf("BlockedUntil = %v, want %v", got.BlockedUntil, want.BlockedUntil)
	}
	if got.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", got.Remaining)
	}
}

func TestTracker_Integration_SharedBackoff(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	first := NewTracker(NewRedisStore(redisClient), zerolog.Nop())
	second := NewTracker(NewRedisStore(redisClient), zerolog.Nop())

	headers := map[string][]string{HeaderRetryAfter: {"30"}}
	if err := first.Observe(ctx, 429, headers); err != nil {
		t.Fatalf("Observe() error = %v", err)
	}

	allowed, wait, err := second.Allow(ctx)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Error("second tracker should see the backoff opened by the first")
	}
	if wait <= 0 || wait > 30*time.Second {
		t.Errorf("wait = %v, want within (0, 30s]", wait)
	}
}
