package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("POPIS_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// newRedisRecords returns a store under a prefix unique to the test, removing
// its keys afterwards.
func newRedisRecords(t *testing.T) *RedisRecords {
	client := getRedisClient(t)
	prefix := fmt.Sprintf("popis-test:%s:%d:", t.Name(), time.Now().UnixNano())
	s := NewRedisRecords(client, prefix)
	t.Cleanup(func() {
		client.Del(context.Background(), s.docsKey, s.seqKey)
	})
	return s
}

func TestRedisRecords(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*testing.T, recordStore)
	}{
		{"CreateAndList", testCreateAndList},
		{"UpdateAndPatch", testUpdateAndPatch},
		{"Delete", testDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newRedisRecords(t))
		})
	}
}

func TestRedisRecordsEmptyList(t *testing.T) {
	s := newRedisRecords(t)

	records, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty list, got %d records", len(records))
	}
}
