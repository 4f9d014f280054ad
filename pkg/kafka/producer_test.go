package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	p, err := NewProducer()
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestNewProducerAppliesOptions(t *testing.T) {
	p, err := NewProducer(
		WithBrokers([]string{"localhost:9092"}),
		WithCompression("zstd"),
		WithHashByKey(true),
		WithBatchSize(10),
	)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "zstd", p.comp)
	assert.Equal(t, 10, p.writer.BatchSize)
	assert.IsType(t, &kafka.Hash{}, p.writer.Balancer)
}

func TestNewProducerRejectsBadAcks(t *testing.T) {
	_, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithRequiredAcks(2))
	assert.Error(t, err)
}

func TestZeroOptionsKeepDefaults(t *testing.T) {
	p, err := NewProducer(
		WithBrokers([]string{"localhost:9092"}),
		WithBatchSize(0),
		WithTimeouts(0, 0),
		WithCompression(""),
	)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 100, p.writer.BatchSize)
	assert.Equal(t, 10*time.Second, p.writer.WriteTimeout)
	assert.Equal(t, "gzip", p.comp)
}

func TestBuildMessagesEncodesValues(t *testing.T) {
	at := time.Unix(1700000000, 0)
	msgs, total, err := buildMessages("activity", []Message{
		{Key: []byte("login"), Value: []byte("raw")},
		{Value: "text"},
		{Value: map[string]int{"n": 1}},
	}, at)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, "raw", string(msgs[0].Value))
	assert.Equal(t, "login", string(msgs[0].Key))
	assert.Equal(t, "text", string(msgs[1].Value))
	assert.JSONEq(t, `{"n":1}`, string(msgs[2].Value))
	assert.Equal(t, int64(len("raw")+len("text")+len(`{"n":1}`)), total)
	assert.Equal(t, "activity", msgs[2].Topic)
}

func TestBuildMessagesRejectsUnencodable(t *testing.T) {
	_, _, err := buildMessages("activity", []Message{{Value: make(chan int)}}, time.Now())
	assert.Error(t, err)
}

func TestParseCompressionFallsBackToGzip(t *testing.T) {
	assert.Equal(t, kafka.Gzip, parseCompression("unknown"))
	assert.Equal(t, kafka.Lz4, parseCompression("lz4"))
}
