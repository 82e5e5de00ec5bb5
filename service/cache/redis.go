package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statusInProgress = "IN_PROGRESS"
	statusCompleted  = "COMPLETED"

	// A crashed checkout releases its guard after this window.
	inProgressExpiry = 30 * time.Second
	completedExpiry  = 24 * time.Hour
)

// IdempotencyStore guards against a doubly submitted checkout executing
// two pushes for the same account reference.
type IdempotencyStore interface {
	CheckOrSetInProgress(ctx context.Context, reference string) (bool, error)
	SetCompleted(ctx context.Context, reference string) error
	Release(ctx context.Context, reference string) error
}

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) IdempotencyStore {
	return &redisStore{client: client}
}

func checkoutKey(reference string) string {
	return fmt.Sprintf("checkout:%s", reference)
}

// CheckOrSetInProgress returns true when the reference was already claimed,
// either completed or still in flight. SETNX makes the claim atomic across
// concurrent submissions.
func (r *redisStore) CheckOrSetInProgress(ctx context.Context, reference string) (bool, error) {
	key := checkoutKey(reference)

	status, err := r.client.Get(ctx, key).Result()
	if err == nil && status == statusCompleted {
		return true, nil
	}

	set, err := r.client.SetNX(ctx, key, statusInProgress, inProgressExpiry).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX error: %w", err)
	}
	return !set, nil
}

func (r *redisStore) SetCompleted(ctx context.Context, reference string) error {
	return r.client.Set(ctx, checkoutKey(reference), statusCompleted, completedExpiry).Err()
}

// Release frees the guard so the customer can retry after a failed push.
func (r *redisStore) Release(ctx context.Context, reference string) error {
	return r.client.Del(ctx, checkoutKey(reference)).Err()
}
