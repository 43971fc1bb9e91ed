package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/velocity-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestSetNXGetDel(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	ok, err := client.SetNX(ctx, "k", "owner-1", time.Second)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "k", "owner-2", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("second setnx should not acquire")
	}
	if mock.ttls["k"] != time.Second {
		t.Fatalf("expected ttl to be forwarded, got %s", mock.ttls["k"])
	}

	value, err := client.Get(ctx, "k")
	if err != nil || value != "owner-1" {
		t.Fatalf("unexpected get value=%q err=%v", value, err)
	}

	if err := client.Del(ctx, "k"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "k"); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestSetOverwrites(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if _, err := client.SetNX(ctx, "k", "pending", time.Minute); err != nil {
		t.Fatalf("setnx failed: %v", err)
	}
	if err := client.Set(ctx, "k", "done", time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if mock.data["k"] != "done" || mock.ttls["k"] != time.Hour {
		t.Fatalf("expected overwrite with new ttl, got %q %s", mock.data["k"], mock.ttls["k"])
	}
}

func TestReleaseLockComparesToken(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.CartLockKey("user:7")

	if _, err := client.SetNX(ctx, key, "token-b", time.Second); err != nil {
		t.Fatalf("setnx failed: %v", err)
	}
	released, err := client.ReleaseLock(ctx, key, "token-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released {
		t.Fatalf("a stale token must not release the lock")
	}
	if mock.data[key] != "token-b" {
		t.Fatalf("lock of the current holder was removed")
	}

	released, err = client.ReleaseLock(ctx, key, "token-b")
	if err != nil || !released {
		t.Fatalf("expected holder to release, released=%v err=%v", released, err)
	}
	if _, ok := mock.data[key]; ok {
		t.Fatalf("lock should be gone after release")
	}
	if mock.evals != 2 {
		t.Fatalf("expected release to run as a script, evals=%d", mock.evals)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if _, err := client.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error from uninitialized client")
	}
	if _, err := client.ReleaseLock(context.Background(), "k", "t"); err == nil {
		t.Fatalf("expected release error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close without connection should be a no-op: %v", err)
	}
}

func TestCartLockKey(t *testing.T) {
	client := &Client{}
	if got := client.CartLockKey("user:42"); got != "vc:lock:cart:user:42" {
		t.Fatalf("unexpected cart lock key %s", got)
	}
	if got := client.buildKey(); got != "vc" {
		t.Fatalf("empty key should be the namespace, got %s", got)
	}
	if got := client.buildKey("lock", "", "x"); got != "vc:lock:x" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestIdempotencyKey(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("session:abc|POST|/api/v1/cart/items", "k1"); got != "vc:idem:session:abc|POST|/api/v1/cart/items:k1" {
		t.Fatalf("unexpected idempotency key %q", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error when no endpoint configured")
	}

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6380/3", PoolSize: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.DB != 3 || opts.PoolSize != 7 {
		t.Fatalf("unexpected options %+v", opts)
	}

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 1, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 1 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type mockCmdable struct {
	data  map[string]string
	ttls  map[string]time.Duration
	evals int
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

// EvalSha runs the lock release script against the in-memory data.
func (m *mockCmdable) EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	m.evals++
	if sha1 != releaseLockScript.Hash() {
		return redis.NewCmdResult(nil, fmt.Errorf("NOSCRIPT unknown script %s", sha1))
	}
	if m.data[keys[0]] != fmt.Sprint(args[0]) {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(m.data, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}

func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return redis.NewCmdResult(nil, fmt.Errorf("eval not supported"))
}

func (m *mockCmdable) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return redis.NewCmdResult(nil, fmt.Errorf("eval not supported"))
}

func (m *mockCmdable) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	return redis.NewCmdResult(nil, fmt.Errorf("eval not supported"))
}

func (m *mockCmdable) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (m *mockCmdable) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	return redis.NewStringResult("", fmt.Errorf("script load not supported"))
}
