package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const defaultLockTTL = 30 * time.Minute

// Lock keeps two workers from purging at the same time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock is a SETNX lock with an owner token so a worker never releases
// a lock that expired and was taken by someone else.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	owner string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis store required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	defer func() { l.owner = "" }()

	value, err := l.store.Get(ctx, l.key)
	if redis.IsMiss(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}
