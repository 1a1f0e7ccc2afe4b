package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"carva/internal/store"
)

const (
	changeChannel     = "carva:changes"
	defaultMaxRetries = 16
)

// KVStore keeps collections as plain string keys. Writes publish the key on
// a pub/sub channel so other instances can react without waiting a poll.
type KVStore struct {
	client     *redis.Client
	maxRetries int
}

// NewKVStore creates a Redis-backed store.KV.
func NewKVStore(client *redis.Client) *KVStore {
	return &KVStore{client: client, maxRetries: defaultMaxRetries}
}

// Get returns the value for key, or nil if it is absent.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Put replaces the value for key.
func (s *KVStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, value, 0)
		pipe.Publish(ctx, changeChannel, key)
		return nil
	})
	return err
}

// Update runs fn under WATCH and retries when another client wrote the key
// between the read and the EXEC.
func (s *KVStore) Update(ctx context.Context, key string, fn store.UpdateFunc) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, next, 0)
			}
			pipe.Publish(ctx, changeChannel, key)
			return nil
		})
		return err
	}

	for i := 0; i < s.maxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s: %w", key, store.ErrConflict)
}

// Delete removes key.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Publish(ctx, changeChannel, key)
		return nil
	})
	return err
}

// SetNX stores value only if key does not exist.
func (s *KVStore) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, err
	}
	if ok {
		s.client.Publish(ctx, changeChannel, key)
	}
	return ok, nil
}

// Subscribe forwards change notifications from the pub/sub channel.
func (s *KVStore) Subscribe(ctx context.Context) (<-chan string, error) {
	pubsub := s.client.Subscribe(ctx, changeChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", changeChannel, err)
	}

	out := make(chan string, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Close is a no-op; the client is owned by the caller.
func (s *KVStore) Close() error {
	return nil
}
