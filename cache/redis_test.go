package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestEscapeGlob(t *testing.T) {
	if got := escapeGlob("records:*[a]?"); got != `records:\*\[a\]\?` {
		t.Fatalf("unexpected escape %q", got)
	}
}

func TestRedis_NilClientIsMiss(t *testing.T) {
	ctx := context.Background()
	r := NewRedis(nil, "test:", nil)
	r.Set(ctx, "k", 1, time.Minute)
	var v int
	if r.Get(ctx, "k", &v) {
		t.Fatalf("expected miss without a client")
	}
	if n := r.EvictAll(ctx); n != 0 {
		t.Fatalf("expected 0 evicted, got %d", n)
	}
}

func TestRedis_RoundTrip(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 and REDIS_ADDRESS to run redis tests")
	}
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}

	ns := "maintcost-test:" + time.Now().Format("150405.000000") + ":"
	r := NewRedis(client, ns, nil)
	t.Cleanup(func() { r.EvictAll(ctx) })

	r.Set(ctx, "records:all", []string{"a", "b"}, time.Second)
	r.Set(ctx, "records:PMB", []string{"c"}, time.Minute)
	r.Set(ctx, "summary:all", []string{"d"}, time.Minute)
	r.Set(ctx, "records:forever", []string{"e"}, 0)

	var got []string
	if !r.Get(ctx, "records:all", &got) || len(got) != 2 {
		t.Fatalf("expected hit, got %v", got)
	}
	if r.Get(ctx, "records:forever", &got) {
		t.Fatalf("zero ttl must not store a key without expiry")
	}
	if n := r.EvictByPrefix(ctx, "records:"); n != 2 {
		t.Fatalf("expected 2 evicted, got %d", n)
	}
	if r.Get(ctx, "records:PMB", &got) {
		t.Fatalf("expected miss after eviction")
	}
	if n := r.EvictAll(ctx); n != 1 {
		t.Fatalf("expected 1 evicted, got %d", n)
	}
}
