package middleware

import (
	"context"
	"sync"
	"time"

	"QuantDesk/internal/domain/models"
	domrepo "QuantDesk/internal/domain/repository"
	applogger "QuantDesk/pkg/logger"

	"github.com/google/uuid"
)

// ActivityPipeline sits between the dashboard and an activity sink.
// Record never blocks: events are buffered and flushed in batches by a
// background goroutine, retried with capped backoff, and dropped when the
// buffer is full.
type ActivityPipeline struct {
	sink    domrepo.ActivitySink
	metrics domrepo.Metrics
	logger  *applogger.Logger

	bufCh         chan models.ActivityEvent
	bufSize       int
	batchSize     int
	flushInterval time.Duration
	maxRetries    int
	backoffMin    time.Duration
	backoffMax    time.Duration

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	now   func() time.Time
	newID func() string
}

var _ domrepo.ActivityRecorder = (*ActivityPipeline)(nil)

type PipelineOption func(*ActivityPipeline)

// WithBufferSize sets how many events may wait for the sink.
func WithBufferSize(n int) PipelineOption {
	return func(p *ActivityPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBatch sets the batch size and the flush interval for partial batches.
func WithBatch(size int, interval time.Duration) PipelineOption {
	return func(p *ActivityPipeline) {
		if size > 0 {
			p.batchSize = size
		}
		if interval > 0 {
			p.flushInterval = interval
		}
	}
}

// WithRetry sets the retry count and backoff range for failed flushes.
func WithRetry(max int, backoffMin, backoffMax time.Duration) PipelineOption {
	return func(p *ActivityPipeline) {
		if max >= 0 {
			p.maxRetries = max
		}
		if backoffMin > 0 {
			p.backoffMin = backoffMin
		}
		if backoffMax >= p.backoffMin {
			p.backoffMax = backoffMax
		}
	}
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *ActivityPipeline) { p.now = now }
}

// NewActivityPipeline creates a new pipeline.
func NewActivityPipeline(sink domrepo.ActivitySink, metrics domrepo.Metrics, l *applogger.Logger, opts ...PipelineOption) *ActivityPipeline {
	p := &ActivityPipeline{
		sink:          sink,
		metrics:       metrics,
		logger:        l,
		bufSize:       256,
		batchSize:     50,
		flushInterval: 2 * time.Second,
		maxRetries:    3,
		backoffMin:    100 * time.Millisecond,
		backoffMax:    5 * time.Second,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.ActivityEvent, p.bufSize)
	return p
}

// Record stamps the event with an id and time when missing and enqueues it.
func (p *ActivityPipeline) Record(e models.ActivityEvent) {
	if e.ID == "" {
		e.ID = p.newID()
	}
	if e.At.IsZero() {
		e.At = p.now().UTC()
	}
	select {
	case p.bufCh <- e:
	default:
		p.metrics.RecordActivityDropped()
		p.logger.Warn("activity buffer full, event dropped",
			applogger.String("kind", string(e.Kind)),
			applogger.String("id", e.ID))
	}
}

// Start launches background flushing of buffered events.
func (p *ActivityPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop flushes what is buffered and waits for the background goroutine.
func (p *ActivityPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	close(p.stopCh)
	p.mu.Unlock()

	select {
	case <-p.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.sink.Close()
}

// Pending returns the number of buffered events.
func (p *ActivityPipeline) Pending() int {
	return len(p.bufCh)
}

func (p *ActivityPipeline) run(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	batch := make([]models.ActivityEvent, 0, p.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		p.deliver(ctx, batch)
		batch = make([]models.ActivityEvent, 0, p.batchSize)
	}

	for {
		select {
		case <-p.stopCh:
			for {
				select {
				case e := <-p.bufCh:
					batch = append(batch, e)
					if len(batch) >= p.batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		case <-ctx.Done():
			flush()
			return
		case e := <-p.bufCh:
			batch = append(batch, e)
			if len(batch) >= p.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// deliver writes one batch, retrying with exponential backoff capped at backoffMax.
func (p *ActivityPipeline) deliver(ctx context.Context, batch []models.ActivityEvent) {
	start := time.Now()
	backoff := p.backoffMin
	for attempt := 0; ; attempt++ {
		err := p.sink.Write(ctx, batch)
		if err == nil {
			p.metrics.RecordLatency("activity_flush", time.Since(start).Seconds())
			return
		}
		p.metrics.RecordError("activity_flush")
		if attempt >= p.maxRetries {
			p.logger.Error("activity batch dropped after retries",
				applogger.Int("events", len(batch)),
				applogger.Int("attempts", attempt+1),
				applogger.Error(err))
			return
		}
		p.logger.Warn("activity flush failed, retrying",
			applogger.Int("attempt", attempt+1),
			applogger.Duration("backoff_ms", backoff),
			applogger.Error(err))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff *= 2
		if backoff > p.backoffMax {
			backoff = p.backoffMax
		}
	}
}
