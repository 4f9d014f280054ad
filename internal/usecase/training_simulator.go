package usecase

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"QuantDesk/internal/domain/models"
	domrepo "QuantDesk/internal/domain/repository"
	applogger "QuantDesk/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrNetworkRequired = errors.New("a neural network must be selected")
	ErrUnknownNetwork  = errors.New("unknown neural network")
	ErrTrainingRunning = errors.New("training already running")
)

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler schedules on the runtime timer.
func RealScheduler() Scheduler { return timerScheduler{} }

// TrainingDelays holds how long each scripted state is shown.
type TrainingDelays struct {
	Retrieve  time.Duration
	FirstPass time.Duration
	NextPass  time.Duration
	Build     time.Duration
	Finalize  time.Duration
	Complete  time.Duration
}

func DefaultTrainingDelays() TrainingDelays {
	return TrainingDelays{
		Retrieve:  5 * time.Second,
		FirstPass: 10 * time.Second,
		NextPass:  5 * time.Second,
		Build:     20 * time.Second,
		Finalize:  3 * time.Second,
		Complete:  2 * time.Second,
	}
}

type trainingStep struct {
	stage      models.TrainingStage
	executions int
	hold       time.Duration
}

func (d TrainingDelays) script() []trainingStep {
	return []trainingStep{
		{models.StageRetrievingData, 0, d.Retrieve},
		{models.StageExecutingStrategies, 0, d.FirstPass},
		{models.StageExecutingStrategies, 1, d.NextPass},
		{models.StageBuildingNetwork, models.TrainingExecutionPasses, d.Build},
		{models.StageFinalizing, models.TrainingExecutionPasses, d.Finalize},
		{models.StageComplete, models.TrainingExecutionPasses, d.Complete},
	}
}

type trainingSub struct {
	id int
	fn TrainingObserver
}

type TrainingObserver func(models.TrainingStatus)

// TrainingSimulator plays the scripted training sequence. Each state is held
// for its delay, then a single transition function moves to the next one.
// After the last hold the run ends with the stage left at complete.
type TrainingSimulator struct {
	networks  []models.NeuralNetwork
	scheduler Scheduler
	steps     []trainingStep
	activity  domrepo.ActivityRecorder
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	now       func() time.Time

	mu        sync.Mutex
	status    models.TrainingStatus
	pos       int
	pending   Timer
	observers []trainingSub
	nextID    int
}

func NewTrainingSimulator(networks []models.NeuralNetwork, scheduler Scheduler, delays TrainingDelays, activity domrepo.ActivityRecorder, metrics domrepo.Metrics, l *applogger.Logger) *TrainingSimulator {
	if scheduler == nil {
		scheduler = RealScheduler()
	}
	s := &TrainingSimulator{
		networks:  append([]models.NeuralNetwork(nil), networks...),
		scheduler: scheduler,
		steps:     delays.script(),
		activity:  activity,
		metrics:   metrics,
		logger:    l,
		now:       time.Now,
	}
	s.status = models.TrainingStatus{
		Stage:          models.StageIdle,
		ExecutionTotal: models.TrainingExecutionPasses,
		UpdatedAt:      s.now().UTC(),
	}
	return s
}

// Networks lists the selectable neural networks.
func (s *TrainingSimulator) Networks() []models.NeuralNetwork {
	return append([]models.NeuralNetwork(nil), s.networks...)
}

// Start begins a run for network. There is no cancel: once started the run
// always plays to the end.
func (s *TrainingSimulator) Start(network string) (models.TrainingStatus, error) {
	if network == "" {
		return models.TrainingStatus{}, ErrNetworkRequired
	}
	if !s.knownNetwork(network) {
		return models.TrainingStatus{}, fmt.Errorf("%w: %s", ErrUnknownNetwork, network)
	}

	s.mu.Lock()
	if s.status.Running {
		s.mu.Unlock()
		return models.TrainingStatus{}, ErrTrainingRunning
	}
	started := s.now().UTC()
	s.status = models.TrainingStatus{
		RunID:          uuid.NewString(),
		Network:        network,
		ExecutionTotal: models.TrainingExecutionPasses,
		Running:        true,
		StartedAt:      &started,
	}
	s.pos = 0
	st := s.enter(s.steps[0])
	s.mu.Unlock()

	s.logger.Info("training started",
		applogger.String("run_id", st.RunID),
		applogger.String("network", network))
	s.publish(st)
	return st, nil
}

// advance is the only transition function; runID guards against a stale timer.
func (s *TrainingSimulator) advance(runID string) {
	s.mu.Lock()
	if !s.status.Running || s.status.RunID != runID {
		s.mu.Unlock()
		return
	}
	s.pos++
	var st models.TrainingStatus
	if s.pos < len(s.steps) {
		st = s.enter(s.steps[s.pos])
	} else {
		s.pending = nil
		s.status.Running = false
		s.status.UpdatedAt = s.now().UTC()
		st = s.status
	}
	s.mu.Unlock()

	if !st.Running {
		s.logger.Info("training finished", applogger.String("run_id", st.RunID))
	}
	s.publish(st)
}

// enter applies step and schedules the next transition. Callers hold mu.
func (s *TrainingSimulator) enter(step trainingStep) models.TrainingStatus {
	s.status.Stage = step.stage
	s.status.Step = step.stage.Step()
	s.status.ExecutionCount = step.executions
	s.status.UpdatedAt = s.now().UTC()

	runID := s.status.RunID
	s.pending = s.scheduler.AfterFunc(step.hold, func() { s.advance(runID) })
	return s.status
}

func (s *TrainingSimulator) publish(st models.TrainingStatus) {
	s.metrics.RecordTrainingStage(string(st.Stage), st.Step)
	detail := fmt.Sprintf("%d/%d", st.ExecutionCount, st.ExecutionTotal)
	if !st.Running {
		detail = "finished"
	}
	s.activity.Record(models.ActivityEvent{
		Kind:    models.ActivityTrainingStage,
		Subject: string(st.Stage),
		Actor:   st.Network,
		Detail:  detail,
	})

	s.mu.Lock()
	obs := make([]TrainingObserver, 0, len(s.observers))
	for _, sub := range s.observers {
		obs = append(obs, sub.fn)
	}
	s.mu.Unlock()
	for _, fn := range obs {
		fn(st)
	}
}

// Status returns the current training status.
func (s *TrainingSimulator) Status() models.TrainingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Subscribe registers an observer of status changes and returns a function that removes it.
func (s *TrainingSimulator) Subscribe(fn TrainingObserver) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers = append(s.observers, trainingSub{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.observers {
			if sub.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Shutdown stops the pending timer. It is meant for process exit only.
func (s *TrainingSimulator) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

func (s *TrainingSimulator) knownNetwork(model string) bool {
	for _, n := range s.networks {
		if n.Model == model {
			return true
		}
	}
	return false
}
