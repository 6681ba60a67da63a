package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tallyq/tally/internal/repository"
)

var _ repository.SettlementLock = (*redisSettlementLock)(nil)

const (
	lockKeyPrefix = "tally:lock:"
	lockTTL       = 10 * time.Minute
)

type redisSettlementLock struct {
	client *goredis.Client
}

// NewSettlementLock creates a Redis-backed settlement lock using SETNX.
func NewSettlementLock(client *goredis.Client) repository.SettlementLock {
	return &redisSettlementLock{client: client}
}

// Acquire uses Redis SETNX to atomically take a processing lock.
func (r *redisSettlementLock) Acquire(ctx context.Context, jobID uuid.UUID) (bool, error) {
	key := lockKeyPrefix + jobID.String()
	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire lock: %w", err)
	}
	return ok, nil
}

// Release re-arms the TTL on the lock key for eventual cleanup. The key
// is kept so late redeliveries of a settled job are still detected.
func (r *redisSettlementLock) Release(ctx context.Context, jobID uuid.UUID) error {
	key := lockKeyPrefix + jobID.String()
	return r.client.Expire(ctx, key, lockTTL).Err()
}
