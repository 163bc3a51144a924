package jobmetrics

import (
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for a finished run.
const (
	OutcomeOK      = "ok"
	OutcomeRetry   = "retry"
	OutcomeDropped = "dropped"
)

// Metrics holds the worker collectors. Methods are no-ops on a nil receiver.
type Metrics struct {
	runs         *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	lastSuccess  *prometheus.GaugeVec
	belowMinimum prometheus.Gauge
	alerts       *prometheus.CounterVec
}

// NewMetrics registers the worker collectors; a nil registerer means the
// process default.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hotel_jobs_total",
			Help: "Finished task runs by task type and outcome.",
		}, []string{"job", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hotel_job_duration_seconds",
			Help:    "Task run duration.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"job"}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hotel_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per task type.",
		}, []string{"job"}),
		belowMinimum: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hotel_basics_below_minimum",
			Help: "Basics whose stock was below minimum at the last scan.",
		}),
		alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hotel_low_stock_alerts_total",
			Help: "Low stock alerts by action.",
		}, []string{"action"}),
	}
}

// Tracker times one run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing a run of job.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the run and returns err unchanged. asynq.SkipRetry counts as dropped.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	outcome := OutcomeOK
	switch {
	case errors.Is(err, asynq.SkipRetry):
		outcome = OutcomeDropped
	case err != nil:
		outcome = OutcomeRetry
	}
	m := t.metrics
	m.runs.WithLabelValues(t.job, outcome).Inc()
	m.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	if outcome == OutcomeOK {
		m.lastSuccess.WithLabelValues(t.job).SetToCurrentTime()
	}
	return err
}

// ObserveScan records the result of a low stock scan.
func (m *Metrics) ObserveScan(below, published, cleared int) {
	if m == nil {
		return
	}
	m.belowMinimum.Set(float64(below))
	if published > 0 {
		m.alerts.WithLabelValues("published").Add(float64(published))
	}
	if cleared > 0 {
		m.alerts.WithLabelValues("cleared").Add(float64(cleared))
	}
}
