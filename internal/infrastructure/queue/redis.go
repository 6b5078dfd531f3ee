// Package queue provides the job queue implementations behind the sync
// worker pool.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/ports"

	"github.com/redis/go-redis/v9"
)

const dequeueBlock = 5 * time.Second

// RedisQueue is a durable FIFO job queue on a Redis list. Producers LPUSH,
// consumers BRPOP, so jobs come off in arrival order and survive process
// restarts.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue connects to Redis and verifies the connection.
func NewRedisQueue(addr, password string, db int, key string) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisQueueWithClient(client, key), nil
}

// NewRedisQueueWithClient creates a queue on an existing client. Useful for
// tests and for sharing a client across components.
func NewRedisQueueWithClient(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "storebridge:jobs"
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job *domain.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("%w: failed to enqueue job: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Dequeue blocks until a job arrives or the context ends. The blocking pop
// uses a short timeout so context cancellation is noticed promptly.
func (q *RedisQueue) Dequeue(ctx context.Context) (*domain.Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		values, err := q.client.BRPop(ctx, dequeueBlock, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: failed to dequeue job: %v", domain.ErrPersistence, err)
		}

		// BRPOP returns [key, value].
		if len(values) != 2 {
			continue
		}
		var job domain.Job
		if err := json.Unmarshal([]byte(values[1]), &job); err != nil {
			return nil, fmt.Errorf("failed to decode job: %w", err)
		}
		return &job, nil
	}
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read queue length: %v", domain.ErrPersistence, err)
	}
	return n, nil
}

// Close closes the underlying Redis client.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

var _ ports.JobQueue = (*RedisQueue)(nil)
