package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
)

// Redis connects to KURS_TEST_REDIS_ADDR on a scratch DB and flushes it.
func Redis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("KURS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("KURS_TEST_REDIS_ADDR not set; skipping integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}
