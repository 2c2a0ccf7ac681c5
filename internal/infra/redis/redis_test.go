//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/go-redis/redis/v8"

	"sales-import/internal/config"
	"sales-import/internal/domain"
)

func withMiniredis(t *testing.T) (*miniredis.Miniredis, *redClient) {
	t.Helper()
	db, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(db.Close)
	c := Wrap(redis.NewClient(&redis.Options{Addr: db.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return db, c
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("should grant the lock to one holder at a time", func(t *testing.T) {
		_, c := withMiniredis(t)
		locker := NewLocker(c.Raw())

		token, err := locker.TryLock(ctx, "lock:test", time.Minute)
		if err != nil {
			t.Fatalf("expected the first lock to succeed, got %v", err)
		}
		if _, err := locker.TryLock(ctx, "lock:test", time.Minute); !errors.Is(err, domain.ErrLockNotAcquired) {
			t.Fatalf("expected ErrLockNotAcquired, got %v", err)
		}

		if err := locker.Unlock(ctx, "lock:test", token); err != nil {
			t.Fatalf("unexpected unlock error: %v", err)
		}
		if _, err := locker.TryLock(ctx, "lock:test", time.Minute); err != nil {
			t.Fatalf("expected the lock to be free after unlock, got %v", err)
		}
	})

	t.Run("should not release a lock owned by another token", func(t *testing.T) {
		db, c := withMiniredis(t)
		locker := NewLocker(c.Raw())

		if _, err := locker.TryLock(ctx, "lock:test", time.Minute); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := locker.Unlock(ctx, "lock:test", "someone-else"); err != nil {
			t.Fatalf("unexpected unlock error: %v", err)
		}
		if !db.Exists("lock:test") {
			t.Error("expected the lock to survive a foreign unlock")
		}
	})

	t.Run("should expire with its ttl", func(t *testing.T) {
		db, c := withMiniredis(t)
		locker := NewLocker(c.Raw())

		if _, err := locker.TryLock(ctx, "lock:test", time.Second); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		db.FastForward(2 * time.Second)
		if _, err := locker.TryLock(ctx, "lock:test", time.Second); err != nil {
			t.Fatalf("expected the expired lock to be free, got %v", err)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	db, c := withMiniredis(t)
	rl := NewRateLimiter(c)
	key := UploadKey("10.0.0.1")

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, key, 2, time.Minute)
		if err != nil || !ok {
			t.Fatalf("request %d: expected allow, got %v %v", i+1, ok, err)
		}
	}
	ok, err := rl.Allow(ctx, key, 2, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected the third request in the window to be denied")
	}

	db.FastForward(time.Minute + time.Second)
	if ok, _ := rl.Allow(ctx, key, 2, time.Minute); !ok {
		t.Error("expected a new window to allow again")
	}
}

func TestRateLimiter_RepairsCounterWithoutTTL(t *testing.T) {
	ctx := context.Background()
	db, c := withMiniredis(t)
	key := UploadKey("10.0.0.2")

	// a counter stranded without expiry must not lock the client out for good
	if err := db.Set(key, "100"); err != nil {
		t.Fatal(err)
	}
	rl := NewRateLimiter(c)
	if ok, err := rl.Allow(ctx, key, 2, time.Minute); err != nil || ok {
		t.Fatalf("expected a denial inside the window, got %v %v", ok, err)
	}
	if ttl := db.TTL(key); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected the counter to get a window ttl, got %s", ttl)
	}
	db.FastForward(time.Minute + time.Second)
	if ok, err := rl.Allow(ctx, key, 2, time.Minute); err != nil || !ok {
		t.Fatalf("expected the next window to allow, got %v %v", ok, err)
	}
}

func TestClient_IncrWindow(t *testing.T) {
	ctx := context.Background()
	db, c := withMiniredis(t)

	for want := int64(1); want <= 3; want++ {
		n, err := c.IncrWindow(ctx, "counter", 30*time.Second)
		if err != nil || n != want {
			t.Fatalf("expected %d, got %d (%v)", want, n, err)
		}
	}
	if ttl := db.TTL("counter"); ttl <= 0 || ttl > 30*time.Second {
		t.Errorf("expected a ttl within the window, got %s", ttl)
	}
	if _, err := c.IncrWindow(ctx, "counter", 0); err == nil {
		t.Error("expected an error for a zero window")
	}
}

func TestClientOptions(t *testing.T) {
	t.Run("should accept a bare address", func(t *testing.T) {
		opts, err := clientOptions(&config.RedisConfig{URL: "cache:6379", Password: "pw", DB: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opts.Addr != "cache:6379" || opts.Password != "pw" || opts.DB != 2 {
			t.Errorf("unexpected options %+v", opts)
		}
	})

	t.Run("should parse a redis url", func(t *testing.T) {
		opts, err := clientOptions(&config.RedisConfig{URL: "redis://:secret@cache:6380/3", Password: "ignored"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opts.Addr != "cache:6380" || opts.Password != "secret" || opts.DB != 3 {
			t.Errorf("unexpected options %+v", opts)
		}
	})

	t.Run("should reject an empty url", func(t *testing.T) {
		if _, err := clientOptions(&config.RedisConfig{}); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestClient_GetMiss(t *testing.T) {
	_, c := withMiniredis(t)
	_, err := c.Get(context.Background(), "absent")
	if !IsNil(err) {
		t.Fatalf("expected a nil reply, got %v", err)
	}
}
