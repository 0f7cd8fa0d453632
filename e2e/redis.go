package e2e

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var (
	redisOnce      sync.Once
	redisContainer *tcredis.RedisContainer
	redisURL       string
	redisStartErr  error
	redisWG        sync.WaitGroup
)

// UseRedis signals that the test needs a redis to persist to. This
// will either provision or reuse a redis container for the test. Do
// not expect a clean keyspace; it is shared across tests to simulate
// real-world usage.
func UseRedis(t *testing.T) *redis.Client {
	t.Helper()

	redisOnce.Do(func() {
		ctx := context.Background()
		redisContainer, redisStartErr = tcredis.Run(ctx, "redis:7-alpine")
		if redisStartErr != nil {
			return
		}
		redisURL, redisStartErr = redisContainer.ConnectionString(ctx)
	})
	if redisStartErr != nil {
		t.Fatalf("failed to start redis container: %v", redisStartErr)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("failed to parse redis url: %v", err)
	}

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	redisWG.Add(1)
	t.Cleanup(redisWG.Done)
	return client
}

func TerminateRedisForE2E() {
	redisWG.Wait()
	if redisContainer != nil {
		err := redisContainer.Terminate(context.Background())
		if err != nil {
			fmt.Printf("failed to terminate redis container: %v", err)
		}
	}
}
