package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"QuantDesk/internal/domain/models"
	"QuantDesk/internal/repository"
	applogger "QuantDesk/pkg/logger"
	"QuantDesk/pkg/metrics"

	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

type memStore struct {
	mu       sync.Mutex
	data     map[string]string
	failLoad bool
	failSave bool

	// afterLoad runs once, after the next Load has read its value.
	afterLoad func()
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (s *memStore) Load(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	if s.failLoad {
		s.mu.Unlock()
		return "", false, errStoreDown
	}
	v, ok := s.data[key]
	hook := s.afterLoad
	s.afterLoad = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return v, ok, nil
}

func (s *memStore) Save(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errStoreDown
	}
	s.data[key] = value
	return nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memStore) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

type recordedActivity struct {
	mu     sync.Mutex
	events []models.ActivityEvent
}

func (r *recordedActivity) Record(e models.ActivityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordedActivity) kinds() []models.ActivityKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ActivityKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func bundled(t *testing.T) *repository.BundledData {
	t.Helper()
	d, err := repository.LoadBundledData()
	require.NoError(t, err)
	return d
}

func nopLogger() *applogger.Logger { return applogger.Nop() }

func nopMetrics() metrics.Nop { return metrics.Nop{} }

// manualScheduler queues callbacks until the test fires them.
type manualScheduler struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	s.pending = append(s.pending, t)
	return t
}

// next returns the delay of the earliest queued callback.
func (s *manualScheduler) next() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return 0, false
	}
	return s.pending[0].d, true
}

// fire runs the earliest queued callback and reports its delay.
func (s *manualScheduler) fire() (time.Duration, bool) {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return 0, false
	}
	t := s.pending[0]
	s.pending = s.pending[1:]
	s.mu.Unlock()

	if !t.stopped {
		t.f()
	}
	return t.d, true
}
