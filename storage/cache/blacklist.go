package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/mrembo/urembo/core"
)

const blacklistKeyPrefix = "auth:blacklist:"

// TokenBlacklist records revoked token IDs until they expire on their own.
type TokenBlacklist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

type redisBlacklist struct {
	client *redis.Client
}

var _ TokenBlacklist = (*redisBlacklist)(nil)

func NewRedisBlacklist(conf core.RedisConfig) (TokenBlacklist, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &redisBlacklist{client: client}, nil
}

func (b *redisBlacklist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired
	}
	if err := b.client.Set(ctx, blacklistKeyPrefix+jti, "revoked", ttl).Err(); err != nil {
		return errors.Wrap(err, "blacklisting token")
	}
	return nil
}

func (b *redisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	count, err := b.client.Exists(ctx, blacklistKeyPrefix+jti).Result()
	if err != nil {
		return false, errors.Wrap(err, "checking token blacklist")
	}
	return count > 0, nil
}

// InmemBlacklist is a map-backed TokenBlacklist for development and tests.
type InmemBlacklist struct {
	mutex   sync.RWMutex
	entries map[string]time.Time // jti -> expiry
}

var _ TokenBlacklist = (*InmemBlacklist)(nil)

func NewInmemBlacklist() *InmemBlacklist {
	return &InmemBlacklist{entries: make(map[string]time.Time)}
}

func (b *InmemBlacklist) Add(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.entries[jti] = time.Now().Add(ttl)
	return nil
}

func (b *InmemBlacklist) Contains(_ context.Context, jti string) (bool, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	expiry, ok := b.entries[jti]
	return ok && time.Now().Before(expiry), nil
}
