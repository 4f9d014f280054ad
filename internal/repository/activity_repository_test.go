package repository

import (
	"bytes"
	"context"
	"testing"
	"time"

	"QuantDesk/internal/domain/models"
	applogger "QuantDesk/pkg/logger"
	"QuantDesk/pkg/queue"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvents() []models.ActivityEvent {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return []models.ActivityEvent{
		{ID: "e1", Kind: models.ActivityLoginSucceeded, Actor: "investor@hnw.com", At: at},
		{ID: "e2", Kind: models.ActivityStrategySearch, Actor: "investor@hnw.com", Subject: "Momentum Alpha", Detail: "found", At: at},
	}
}

func TestLogActivitySink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogActivitySink(applogger.NewWithWriter(&buf, zerolog.DebugLevel))

	require.NoError(t, sink.Write(context.Background(), sampleEvents()))
	require.NoError(t, sink.Close())

	out := buf.String()
	assert.Contains(t, out, `"kind":"login_succeeded"`)
	assert.Contains(t, out, `"subject":"Momentum Alpha"`)
}

func TestSinksIgnoreEmptyBatches(t *testing.T) {
	assert.NoError(t, NewClickHouseActivitySink(nil, "activity_events").Write(context.Background(), nil))
	assert.NoError(t, NewKafkaActivitySink(nil, "quantdesk.activity").Write(context.Background(), nil))
}

func TestQueueActivitySinkReportsEnqueueErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	sink := NewQueueActivitySink(queue.NewRedisPublisher(applogger.Nop(), client))
	err := sink.Write(context.Background(), sampleEvents())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "e1")
	assert.NoError(t, sink.Write(context.Background(), nil))
}

func TestActivityTableDDL(t *testing.T) {
	assert.Contains(t, ActivityTableDDL, "CREATE TABLE IF NOT EXISTS %s")
	assert.Contains(t, ActivityTableDDL, "event_id String")
}
