package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/velocity-backend/pkg/errors"
	"github.com/google/uuid"
)

const (
	defaultLockTTL      = 10 * time.Second
	defaultLockRetry    = 25 * time.Millisecond
	lockReleaseDeadline = 2 * time.Second
)

// Locker serializes operations on one cart owner. The returned unlock func
// must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// lockAll acquires keys in sorted order so two callers locking the same pair
// cannot deadlock.
func lockAll(ctx context.Context, locker Locker, keys ...string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	unlocks := make([]func(), 0, len(sorted))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		unlock, err := locker.Lock(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

type localLock struct {
	sem  chan struct{}
	refs int
}

// LocalLocker is a process-local keyed mutex. Entries are dropped once no
// caller holds or waits for them.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

// NewLocalLocker returns an empty keyed mutex.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &localLock{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry)
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, ctx.Err(), "waiting for cart lock")
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.release(key, entry)
		})
	}, nil
}

func (l *LocalLocker) release(key string, entry *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

// size reports how many keys are tracked.
func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// lockStore defines the redis operations used by RedisLocker.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
	CartLockKey(ownerKey string) string
}

// RedisLocker implements Locker with SETNX + TTL so carts stay serialized
// across service instances. It is best-effort: the TTL is never renewed, so
// an operation that outlives it can overlap with the next holder. The store
// transaction still guards the rows themselves. Release is an atomic
// compare-and-delete, so an expired holder never frees someone else's lock.
type RedisLocker struct {
	client lockStore
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisLocker constructs a Redis-backed locker.
func NewRedisLocker(client lockStore, ttl time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for cart locks")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl, retry: defaultLockRetry}, nil
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.client.CartLockKey(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "acquire cart lock")
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, ctx.Err(), "waiting for cart lock")
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseDeadline)
			defer cancel()
			_ = l.release(releaseCtx, redisKey, token)
		})
	}, nil
}

// release frees the lock only if the token still matches.
func (l *RedisLocker) release(ctx context.Context, key, token string) error {
	if _, err := l.client.ReleaseLock(ctx, key, token); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
