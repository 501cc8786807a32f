//go:build integration

package ratelimit

import (
	"context"
	"os"
	"strconv"
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

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_GetState(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(NewRedisStore(redisClient), logger)
	ctx := context.Background()

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.IsHealthy {
		t.Error("Default state should be healthy")
	}

	if err := tracker.UpdateFromHeaders(ctx, rateLimitHeaders("75", "120")); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	state, err = tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() after update error = %v", err)
	}
	if state.Remaining != 75 {
		t.Errorf("Remaining = %d, want 75", state.Remaining)
	}
	if !state.IsHealthy {
		t.Error("State with 75 remaining should be healthy")
	}

	expectedResetDuration := 120 * time.Second
	actualResetDuration := state.TimeUntilReset()
	tolerance := 5 * time.Second

	if actualResetDuration < expectedResetDuration-tolerance || actualResetDuration > expectedResetDuration+tolerance {
		t.Errorf("TimeUntilReset = %v, want approximately %v", actualResetDuration, expectedResetDuration)
	}
}

func TestTracker_Integration_ShouldAllowRequest_Critical(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(NewRedisStore(redisClient), logger)
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, rateLimitHeaders("3", "60")); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("ShouldAllowRequest() = true, want false for critical state")
	}
}

func TestTracker_Integration_ShouldAllowRequest_Warning(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(NewRedisStore(redisClient), logger)
	ctx := context.Background()

	if err := tracker.UpdateFromHeaders(ctx, rateLimitHeaders("15", "60")); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	start := time.Now()
	allowed, err := tracker.ShouldAllowRequest(ctx)
	duration := time.Since(start)

	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Error("ShouldAllowRequest() = false, want true for warning state")
	}
	if duration < 900*time.Millisecond {
		t.Errorf("ShouldAllowRequest() throttle duration = %v, want >= 1s", duration)
	}
}

func TestTracker_Integration_LimitSharedAndWindowExpiry(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	writer := NewTracker(NewRedisStore(redisClient), logger)
	reader := NewTracker(NewRedisStore(redisClient), logger)
	ctx := context.Background()

	resetAt := time.Now().Add(time.Minute).Unix()
	if err := writer.UpdateFromHeaders(ctx, rateLimitHeaders("3", strconv.FormatInt(resetAt, 10))); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	raw, err := redisClient.Get(ctx, RedisKeyLimit).Int()
	if err != nil {
		t.Fatalf("Get(%s) error = %v", RedisKeyLimit, err)
	}
	if raw != 1000 {
		t.Errorf("%s = %d, want 1000", RedisKeyLimit, raw)
	}

	state, err := reader.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Limit != 1000 || state.Remaining != 3 {
		t.Errorf("shared state = %d/%d, want 3/1000", state.Remaining, state.Limit)
	}
	if state.ResetAt.Unix() != resetAt {
		t.Errorf("ResetAt = %d, want %d", state.ResetAt.Unix(), resetAt)
	}

	allowed, err := reader.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if allowed {
		t.Error("ShouldAllowRequest() = true, want false inside a critical window")
	}

	// Same critical budget, but its window has already closed.
	expired := time.Now().Add(-5 * time.Second).Unix()
	if err := writer.UpdateFromHeaders(ctx, rateLimitHeaders("2", strconv.FormatInt(expired, 10))); err != nil {
		t.Fatalf("UpdateFromHeaders() error = %v", err)
	}

	state, err = reader.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.NeedsCriticalBlock() || !state.WindowExpired() {
		t.Fatalf("state = %+v, want critical with expired window", state)
	}

	allowed, err = reader.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Error("ShouldAllowRequest() = false, want true once the window expired")
	}
}
