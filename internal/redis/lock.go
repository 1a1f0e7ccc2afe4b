package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles short-lived distributed locks in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireRequestLock attempts to take the accept lock for a request.
// Returns true if the lock was acquired, false if another driver holds it.
func (s *LockStore) AcquireRequestLock(ctx context.Context, requestID int64, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, requestLockKey(requestID), "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseRequestLock releases the accept lock for a request.
func (s *LockStore) ReleaseRequestLock(ctx context.Context, requestID int64) error {
	return s.client.Del(ctx, requestLockKey(requestID)).Err()
}

func requestLockKey(requestID int64) string {
	return fmt.Sprintf("lock:request:%d", requestID)
}
