package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SweepErrorStore   = "store"
	SweepErrorPublish = "publish"
	SweepErrorFetch   = "fetch"

	PublishResultOk    = "ok"
	PublishResultError = "error"
)

// Sweeper метрики фонового перевода просроченных предложений
type Sweeper struct {
	Runs        *prometheus.CounterVec
	TimedOut    prometheus.Counter
	Errors      *prometheus.CounterVec
	Duration    prometheus.Histogram
	LastSuccess prometheus.Gauge
}

func NewSweeper(reg prometheus.Registerer) *Sweeper {
	m := &Sweeper{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proposal_sweep_runs_total",
			Help: "Number of timeout sweep runs by final status.",
		}, []string{"status"}),
		TimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "proposal_sweep_timed_out_total",
			Help: "Number of proposals moved to timed_out by the sweeper.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proposal_sweep_errors_total",
			Help: "Number of sweep errors by kind.",
		}, []string{"kind"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "proposal_sweep_duration_seconds",
			Help:    "Duration of a timeout sweep run.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "proposal_sweep_last_success_timestamp_seconds",
			Help: "Unix time of the last sweep run that finished without a run-level error.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.TimedOut, m.Errors, m.Duration, m.LastSuccess)
	}
	return m
}

func (m *Sweeper) ObserveRun(status string, started, finished time.Time, timedOut int) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
	m.Duration.Observe(finished.Sub(started).Seconds())
	if timedOut > 0 {
		m.TimedOut.Add(float64(timedOut))
	}
	if status != "failed" {
		m.LastSuccess.Set(float64(finished.Unix()))
	}
}

func (m *Sweeper) ObserveError(kind string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(kind).Inc()
}

// Events счетчик публикаций доменных событий
type Events struct {
	Published *prometheus.CounterVec
}

func NewEvents(reg prometheus.Registerer) *Events {
	m := &Events{
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "domain_events_published_total",
			Help: "Number of domain event publish attempts by type and result.",
		}, []string{"type", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Published)
	}
	return m
}

func (m *Events) ObservePublish(eventType string, err error) {
	if m == nil {
		return
	}
	result := PublishResultOk
	if err != nil {
		result = PublishResultError
	}
	m.Published.WithLabelValues(eventType, result).Inc()
}
