// Package queue provides the Redis-backed job queues behind asynchronous
// fan-out: one list for pending triggers, one for failed push chunks.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/semtim/backend/internal/fanout"
)

const (
	triggerKey = "fanout:triggers"
	retryKey   = "fanout:push-retries"

	// pollTimeout bounds each blocking pop so consumers notice context
	// cancellation.
	pollTimeout = 5 * time.Second
)

// Options configure the Redis connection.
type Options struct {
	Host     string
	Port     string
	Password string
}

// Client is the Redis-backed queue client. Triggers and retries live on
// separate logical databases.
type Client struct {
	triggers *redis.Client
	retries  *redis.Client
}

// New connects to Redis and pings both logical databases.
func New(opts Options) (*Client, error) {
	addr := fmt.Sprintf("%s:%s", opts.Host, opts.Port)

	triggers := redis.NewClient(&redis.Options{Addr: addr, Password: opts.Password, DB: 0})
	if err := triggers.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping trigger queue storage: %w", err)
	}

	retries := redis.NewClient(&redis.Options{Addr: addr, Password: opts.Password, DB: 1})
	if err := retries.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping retry queue storage: %w", err)
	}

	return &Client{triggers: triggers, retries: retries}, nil
}

// EnqueueTrigger pushes a trigger for the fan-out worker.
func (c *Client) EnqueueTrigger(ctx context.Context, t fanout.Trigger) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to serialize trigger: %w", err)
	}
	return c.triggers.RPush(ctx, triggerKey, payload).Err()
}

// DequeueTrigger pops the next pending trigger, blocking up to the poll
// timeout. Returns (nil, nil) when the queue is empty.
func (c *Client) DequeueTrigger(ctx context.Context) (*fanout.Trigger, error) {
	vals, err := c.triggers.BLPop(ctx, pollTimeout, triggerKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var t fanout.Trigger
	if err := json.Unmarshal([]byte(vals[1]), &t); err != nil {
		return nil, fmt.Errorf("failed to deserialize trigger: %w", err)
	}
	return &t, nil
}

// EnqueueRetry pushes a failed push chunk for redelivery.
func (c *Client) EnqueueRetry(ctx context.Context, chunk fanout.RetryChunk) error {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to serialize retry chunk: %w", err)
	}
	return c.retries.RPush(ctx, retryKey, payload).Err()
}

// DequeueRetry pops the next failed chunk, blocking up to the poll timeout.
// Returns (nil, nil) when the queue is empty.
func (c *Client) DequeueRetry(ctx context.Context) (*fanout.RetryChunk, error) {
	vals, err := c.retries.BLPop(ctx, pollTimeout, retryKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var chunk fanout.RetryChunk
	if err := json.Unmarshal([]byte(vals[1]), &chunk); err != nil {
		return nil, fmt.Errorf("failed to deserialize retry chunk: %w", err)
	}
	return &chunk, nil
}

// Close releases both Redis connections.
func (c *Client) Close() error {
	if err := c.triggers.Close(); err != nil {
		return err
	}
	return c.retries.Close()
}
