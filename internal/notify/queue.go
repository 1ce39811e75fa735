// Package notify delivers order emails outside the request path. Handlers
// enqueue jobs through a Dispatcher; a Worker drains the queue, retries
// failed sends and publishes the matching order event.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Kind string

const (
	KindOrderPlaced   Kind = "order_placed"
	KindStatusChanged Kind = "status_changed"
)

type Line struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Total    string `json:"total"`
}

type Job struct {
	ID             string    `json:"id"`
	Kind           Kind      `json:"kind"`
	OrderID        string    `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	UserID         string    `json:"user_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Subtotal       string    `json:"subtotal,omitempty"`
	Shipping       string    `json:"shipping,omitempty"`
	Tax            string    `json:"tax,omitempty"`
	Total          string    `json:"total"`
	Lines          []Line    `json:"lines,omitempty"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}

// ErrEmpty is returned by Pop when no job arrived before the timeout.
var ErrEmpty = errors.New("queue empty")

type Queue interface {
	Push(ctx context.Context, j Job) error
	// Pop blocks up to timeout waiting for a job.
	Pop(ctx context.Context, timeout time.Duration) (Job, error)
}

// MemQueue is a bounded in-process queue for single-binary deployments.
type MemQueue struct {
	ch chan Job
}

func NewMemQueue(size int) *MemQueue { return &MemQueue{ch: make(chan Job, size)} }

// Push fails instead of blocking when the buffer is full.
func (q *MemQueue) Push(ctx context.Context, j Job) error {
	select {
	case q.ch <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("notification queue full")
	}
}

func (q *MemQueue) Pop(ctx context.Context, timeout time.Duration) (Job, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case j := <-q.ch:
		return j, nil
	case <-t.C:
		return Job{}, ErrEmpty
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// RedisQueue is a list used FIFO: LPUSH on the producer side, BRPOP on the consumer side.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "notify:jobs"
	}
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) Push(ctx context.Context, j Job) error {
	b, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return q.rdb.LPush(ctx, q.key, b).Err()
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return Job{}, ErrEmpty
	}
	if err != nil {
		return Job{}, err
	}
	// res = [key, value]
	var j Job
	if err := json.Unmarshal([]byte(res[1]), &j); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	return j, nil
}
