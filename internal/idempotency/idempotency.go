// Package idempotency remembers checkout responses by Idempotency-Key so a
// retried request replays the first result instead of placing a second order.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrInFlight = errors.New("a request with this idempotency key is in progress")

const pending = "__pending__"

// Record is a stored response.
type Record struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type Store interface {
	// Begin reserves key. It returns the stored record when the key already
	// completed, ErrInFlight while another request holds it, and nil, nil
	// when the caller now owns the key.
	Begin(ctx context.Context, key string) (*Record, error)
	Complete(ctx context.Context, key string, rec Record) error
	// Abort releases a reservation so the request can be retried.
	Abort(ctx context.Context, key string) error
}

type RedisStore struct {
	rdb        *redis.Client
	prefix     string
	ttl        time.Duration
	pendingTTL time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "idem:checkout:", ttl: ttl, pendingTTL: time.Minute}
}

func (s *RedisStore) Begin(ctx context.Context, key string) (*Record, error) {
	k := s.prefix + key
	ok, err := s.rdb.SetNX(ctx, k, pending, s.pendingTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	v, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return s.Begin(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}
	if v == pending {
		return nil, ErrInFlight
	}
	var rec Record
	if err := json.Unmarshal([]byte(v), &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+key, b, s.ttl).Err()
}

func (s *RedisStore) Abort(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+key).Err()
}
