package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"QuantDesk/internal/domain/models"
	"QuantDesk/internal/domain/repository"
	pkgkafka "QuantDesk/pkg/kafka"
	applogger "QuantDesk/pkg/logger"
	"QuantDesk/pkg/queue"
)

// ActivityTableDDL creates the ClickHouse activity table.
const ActivityTableDDL = `CREATE TABLE IF NOT EXISTS %s (
	event_id String,
	kind LowCardinality(String),
	actor String,
	subject String,
	detail String,
	at DateTime64(3)
) ENGINE = MergeTree ORDER BY (kind, at)`

// ClickHouseActivitySink implements ActivitySink for ClickHouse.
type ClickHouseActivitySink struct {
	db    *sql.DB
	table string
}

func NewClickHouseActivitySink(db *sql.DB, table string) repository.ActivitySink {
	return &ClickHouseActivitySink{db: db, table: table}
}

func (s *ClickHouseActivitySink) Write(ctx context.Context, events []models.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	const chunkSize = 500
	for start := 0; start < len(events); start += chunkSize {
		end := start + chunkSize
		if end > len(events) {
			end = len(events)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, e := range events[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args, e.ID, string(e.Kind), e.Actor, e.Subject, e.Detail, e.At)
		}
		q := fmt.Sprintf("INSERT INTO %s (event_id, kind, actor, subject, detail, at) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert activity: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseActivitySink) Close() error {
	return nil // Managed by pkg
}

// KafkaActivitySink implements ActivitySink for Kafka, keyed by event kind.
type KafkaActivitySink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaActivitySink(producer *pkgkafka.Producer, topic string) repository.ActivitySink {
	return &KafkaActivitySink{producer: producer, topic: topic}
}

func (p *KafkaActivitySink) Write(ctx context.Context, events []models.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, e := range events {
		msgs[i] = pkgkafka.Message{Key: []byte(e.Kind), Value: e}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op; the producer is shared with the log collector and closed by its owner.
func (p *KafkaActivitySink) Close() error { return nil }

// QueueActivitySink pushes events onto a Redis list through pkg/queue.
type QueueActivitySink struct {
	q *queue.RedisQueue
}

func NewQueueActivitySink(q *queue.RedisQueue) repository.ActivitySink {
	return &QueueActivitySink{q: q}
}

func (s *QueueActivitySink) Write(ctx context.Context, events []models.ActivityEvent) error {
	for _, e := range events {
		if err := s.q.Enqueue(ctx, string(e.Kind), e); err != nil {
			return fmt.Errorf("enqueue activity %s: %w", e.ID, err)
		}
	}
	return nil
}

func (s *QueueActivitySink) Close() error { return nil }

// LogActivitySink writes events to the application log only.
type LogActivitySink struct {
	l *applogger.Logger
}

func NewLogActivitySink(l *applogger.Logger) repository.ActivitySink {
	return &LogActivitySink{l: l}
}

func (s *LogActivitySink) Write(_ context.Context, events []models.ActivityEvent) error {
	for _, e := range events {
		s.l.Debug("activity",
			applogger.String("id", e.ID),
			applogger.String("kind", string(e.Kind)),
			applogger.String("actor", e.Actor),
			applogger.String("subject", e.Subject),
			applogger.String("detail", e.Detail),
		)
	}
	return nil
}

func (s *LogActivitySink) Close() error { return nil }
