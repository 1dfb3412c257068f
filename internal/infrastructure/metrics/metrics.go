// Package metrics exposes Prometheus collectors for the ranking service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portal"

// Metrics holds every collector on a private registry so tests can create
// as many instances as they need.
type Metrics struct {
	registry *prometheus.Registry

	recalculations       *prometheus.CounterVec
	recalculationSeconds *prometheus.HistogramVec
	rankedStudents       prometheus.Gauge
	orphanReferences     prometheus.Gauge
	scoreAnomalies       prometheus.Gauge
	snapshotPersistFails prometheus.Counter

	eventsPublished *prometheus.CounterVec
	handlerFailures *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpSeconds  *prometheus.HistogramVec

	breakerState *prometheus.GaugeVec

	jobRuns    *prometheus.CounterVec
	jobSeconds *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		recalculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "recalculations_total",
			Help:      "Full ranking recomputations by trigger and outcome.",
		}, []string{"trigger", "status"}),
		recalculationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "recalculation_duration_seconds",
			Help:      "Wall time of a full ranking recomputation.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"trigger"}),
		rankedStudents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "students",
			Help:      "Students in the current ranking snapshot.",
		}),
		orphanReferences: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "orphan_references",
			Help:      "Collaborator records pointing at unknown students in the last recomputation.",
		}),
		scoreAnomalies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "score_anomalies",
			Help:      "Out-of-range inputs clamped during the last recomputation.",
		}),
		snapshotPersistFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "snapshot_persist_failures_total",
			Help:      "Snapshots that could not be written to storage or cache.",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events published on the in-process bus.",
		}, []string{"event_type"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "handler_failures_total",
			Help:      "Event handler invocations that returned an error.",
		}, []string{"event_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_open",
			Help:      "1 while the named circuit breaker is not closed.",
		}, []string{"name"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by outcome.",
		}, []string{"job", "status"}),
		jobSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scheduled job run time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
	}

	reg.MustRegister(
		m.recalculations, m.recalculationSeconds, m.rankedStudents,
		m.orphanReferences, m.scoreAnomalies, m.snapshotPersistFails,
		m.eventsPublished, m.handlerFailures,
		m.httpRequests, m.httpSeconds,
		m.breakerState,
		m.jobRuns, m.jobSeconds,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRecalculation records one recompute pass.
func (m *Metrics) ObserveRecalculation(trigger string, d time.Duration, students, orphans, anomalies int, err error) {
	m.recalculations.WithLabelValues(trigger, status(err)).Inc()
	m.recalculationSeconds.WithLabelValues(trigger).Observe(d.Seconds())
	if err != nil {
		return
	}
	m.rankedStudents.Set(float64(students))
	m.orphanReferences.Set(float64(orphans))
	m.scoreAnomalies.Set(float64(anomalies))
}

// SnapshotPersistFailed counts a snapshot that did not reach storage or cache.
func (m *Metrics) SnapshotPersistFailed() {
	m.snapshotPersistFails.Inc()
}

// EventPublished counts a published event.
func (m *Metrics) EventPublished(eventType string) {
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

// HandlerFailed counts a failed event handler.
func (m *Metrics) HandlerFailed(eventType string) {
	m.handlerFailures.WithLabelValues(eventType).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

// SetBreakerOpen tracks a circuit breaker transition.
func (m *Metrics) SetBreakerOpen(name string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.breakerState.WithLabelValues(name).Set(v)
}

// ObserveJob records one scheduled job run.
func (m *Metrics) ObserveJob(job string, d time.Duration, err error) {
	m.jobRuns.WithLabelValues(job, status(err)).Inc()
	m.jobSeconds.WithLabelValues(job).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
