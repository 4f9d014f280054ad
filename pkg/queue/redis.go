package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"QuantDesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue publishes messages onto a capped Redis list. Consumers BRPOP
// from Key().
type RedisQueue struct {
	logger    *logger.Logger
	client    redis.Cmdable
	keyPrefix string
	maxLen    int64
	now       func() time.Time
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets custom key prefix.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		if prefix != "" {
			r.keyPrefix = prefix
		}
	}
}

// WithMaxLen caps the list length; older messages are trimmed. Zero disables trimming.
func WithMaxLen(n int64) RedisQueueOption {
	return func(r *RedisQueue) {
		r.maxLen = n
	}
}

// NewRedisPublisher creates a publisher-only queue.
func NewRedisPublisher(lgr *logger.Logger, client redis.Cmdable, opts ...RedisQueueOption) *RedisQueue {
	q := &RedisQueue{
		logger:    lgr,
		client:    client,
		keyPrefix: "quantdesk:queue",
		maxLen:    10000,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds a message to the queue.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	data, err := r.encode(msgType, payload)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.Key(), data)
	if r.maxLen > 0 {
		pipe.LTrim(ctx, r.Key(), 0, r.maxLen-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("redis enqueue failed",
			logger.String("type", msgType),
			logger.Error(err))
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// PublishMessage publishes a message (implements QueueService).
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	return r.Enqueue(ctx, msgType, payload)
}

// Key returns the list key messages are pushed to.
func (r *RedisQueue) Key() string {
	return fmt.Sprintf("%s:messages", r.keyPrefix)
}

func (r *RedisQueue) encode(msgType string, payload interface{}) ([]byte, error) {
	msg := Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: r.now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return data, nil
}
