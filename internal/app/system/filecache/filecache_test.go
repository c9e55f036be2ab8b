package filecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const testRedisAddr = "localhost:6379"

// setupRedis returns a client for a local Redis, or skips the test.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestGetOrLoad_Disabled(t *testing.T) {
	c := New(nil, "test:", time.Minute, zap.NewNop())
	if c.Enabled() {
		t.Fatal("nil client should disable storage")
	}

	var calls int32
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "photos/a.jpg", nil
	}
	for i := 0; i < 2; i++ {
		v, err := c.GetOrLoad(context.Background(), "a", load)
		if err != nil || v != "photos/a.jpg" {
			t.Fatalf("GetOrLoad = %q, %v", v, err)
		}
	}
	if calls != 2 {
		t.Errorf("load calls = %d, want 2 without storage", calls)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping on disabled cache: %v", err)
	}
	if err := c.Delete(context.Background(), "a"); err != nil {
		t.Errorf("Delete on disabled cache: %v", err)
	}
}

func TestGetOrLoad_CollapsesConcurrentMisses(t *testing.T) {
	c := New(nil, "test:", time.Minute, zap.NewNop())

	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v", nil
	}

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := c.GetOrLoad(context.Background(), "k", load); err != nil || v != "v" {
				t.Errorf("GetOrLoad = %q, %v", v, err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("load calls = %d, want 1", calls)
	}
}

func TestGetOrLoad_LoadError(t *testing.T) {
	c := New(nil, "test:", time.Minute, zap.NewNop())
	boom := errors.New("upstream down")
	_, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestGetOrLoad_Redis(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	prefix := "contenthub:test:" + time.Now().Format("150405.000000") + ":"
	c := New(client, prefix, time.Minute, zap.NewNop())
	t.Cleanup(func() { _ = c.Delete(context.Background(), "slug") })

	var calls int32
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "photos/file_9.jpg", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad(ctx, "slug", load)
		if err != nil || v != "photos/file_9.jpg" {
			t.Fatalf("GetOrLoad = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("load calls = %d, want 1 with Redis", calls)
	}

	ttl, err := client.TTL(ctx, prefix+"slug").Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v, %v", ttl, err)
	}

	if err := c.Delete(ctx, "slug"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.GetOrLoad(ctx, "slug", load); err != nil {
		t.Fatalf("GetOrLoad after delete: %v", err)
	}
	if calls != 2 {
		t.Errorf("load calls = %d, want 2 after delete", calls)
	}
}
