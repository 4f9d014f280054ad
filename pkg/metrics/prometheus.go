package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	logins          *prometheus.CounterVec
	gridLoads       *prometheus.CounterVec
	gridSaves       prometheus.Counter
	trainingStage   *prometheus.GaugeVec
	activityDropped prometheus.Counter
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a recorder registered on reg; nil means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		logins: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantdesk_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		gridLoads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantdesk_grid_loads_total",
				Help: "Strategy searches by outcome",
			},
			[]string{"outcome"},
		),
		gridSaves: f.NewCounter(
			prometheus.CounterOpts{
				Name: "quantdesk_grid_saves_total",
				Help: "Parameter grids saved to the catalog",
			},
		),
		trainingStage: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quantdesk_training_stage",
				Help: "Current training simulator step (0 idle .. 5 complete)",
			},
			[]string{"stage"},
		),
		activityDropped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "quantdesk_activity_dropped_total",
				Help: "Activity events dropped because the buffer was full",
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantdesk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantdesk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordLogin(outcome string) {
	r.logins.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordGridLoad(outcome string) {
	r.gridLoads.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordGridSave() {
	r.gridSaves.Inc()
}

// RecordTrainingStage keeps a single stage label at the current step value.
func (r *Recorder) RecordTrainingStage(stage string, step int) {
	r.trainingStage.Reset()
	r.trainingStage.WithLabelValues(stage).Set(float64(step))
}

func (r *Recorder) RecordActivityDropped() {
	r.activityDropped.Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordLogin(string)              {}
func (Nop) RecordGridLoad(string)           {}
func (Nop) RecordGridSave()                 {}
func (Nop) RecordTrainingStage(string, int) {}
func (Nop) RecordActivityDropped()          {}
func (Nop) RecordError(string)              {}
func (Nop) RecordLatency(string, float64)   {}
