package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists cart snapshots in redis keyed by cart ID.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func cartKey(id string) string {
	return fmt.Sprintf("cart:%s", id)
}

// Get returns the stored snapshot, or an empty cart when none exists.
func (s *Store) Get(ctx context.Context, id string) (Cart, error) {
	raw, err := s.client.Get(ctx, cartKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return New(id), nil
	}
	if err != nil {
		return Cart{}, fmt.Errorf("redis GET error: %w", err)
	}

	var c Cart
	if err = json.Unmarshal([]byte(raw), &c); err != nil {
		return Cart{}, fmt.Errorf("could not decode cart snapshot: %w", err)
	}
	return c, nil
}

func (s *Store) Save(ctx context.Context, c Cart) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, cartKey(c.ID), raw, s.ttl).Err()
}

func (s *Store) Clear(ctx context.Context, id string) error {
	return s.client.Del(ctx, cartKey(id)).Err()
}
