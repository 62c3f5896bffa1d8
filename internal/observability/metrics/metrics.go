package metrics

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	metricPrefix = "classroom_aggregation_"

	resultSuccess = "success"
	resultError   = "error"
	resultEmpty   = "empty"

	outcomeInserted = "inserted"
	outcomeSkipped  = "skipped"
)

// Metrics bundles the aggregation job metrics on a private registry,
// so a job can be pushed or dumped without the process-wide default registry.
type Metrics struct {
	registry *prometheus.Registry

	DaysTotal     *prometheus.CounterVec
	DayDuration   *prometheus.HistogramVec
	ReadingsTotal prometheus.Counter
	RowsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Gauge
	FailedDays    prometheus.Gauge
	LastSuccess   prometheus.Gauge
}

// New constructs and registers metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DaysTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "days_total",
				Help: "Total processed days by result",
			},
			[]string{"result"},
		),
		DayDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "day_duration_seconds",
				Help:    "Per-day load, aggregate and save duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		ReadingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "readings_total",
			Help: "Total raw readings loaded",
		}),
		RowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rows_total",
				Help: "Total summary rows by write outcome",
			},
			[]string{"outcome"},
		),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "run_duration_seconds",
			Help: "Duration of the last run in seconds",
		}),
		FailedDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "run_failed_days",
			Help: "Failed days in the last run",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "last_success_timestamp_seconds",
			Help: "Unix time of the last run without failed days",
		}),
	}
	m.registry.MustRegister(
		m.DaysTotal,
		m.DayDuration,
		m.ReadingsTotal,
		m.RowsTotal,
		m.RunDuration,
		m.FailedDays,
		m.LastSuccess,
	)
	return m
}

// RegisterDB exposes connection pool statistics for db.
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	if m == nil || db == nil {
		return nil
	}
	if name == "" {
		name = "default"
	}
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// ObserveDay records one processed day.
func (m *Metrics) ObserveDay(err error, readings, inserted, skipped int, duration time.Duration) {
	if m == nil {
		return
	}
	result := resultSuccess
	switch {
	case err != nil:
		result = resultError
	case readings == 0:
		result = resultEmpty
	}
	m.DaysTotal.WithLabelValues(result).Inc()
	m.DayDuration.WithLabelValues(result).Observe(duration.Seconds())
	if readings > 0 {
		m.ReadingsTotal.Add(float64(readings))
	}
	if inserted > 0 {
		m.RowsTotal.WithLabelValues(outcomeInserted).Add(float64(inserted))
	}
	if skipped > 0 {
		m.RowsTotal.WithLabelValues(outcomeSkipped).Add(float64(skipped))
	}
}

// ObserveRun records the outcome of a whole run.
func (m *Metrics) ObserveRun(failedDays int, duration time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.RunDuration.Set(duration.Seconds())
	m.FailedDays.Set(float64(failedDays))
	if failedDays == 0 {
		m.LastSuccess.Set(float64(finishedAt.Unix()))
	}
}

// Gatherer exposes the registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// Push sends the registry to a Pushgateway under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if job == "" {
		return errors.New("metrics: empty push job")
	}
	return push.New(url, job).Gatherer(m.registry).PushContext(ctx)
}

// WriteTextfile writes the registry in text format for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultEmpty   = resultEmpty

	OutcomeInserted = outcomeInserted
	OutcomeSkipped  = outcomeSkipped
)
