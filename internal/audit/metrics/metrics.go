// Package metrics provides Prometheus instrumentation for the audit
// engine's rule driver: how many rules ran, how many found something,
// how many sends failed, and how long each (rule, pair) execution took.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// Metrics collects Prometheus counters and histograms for rule
// executions. One instance is shared across every concurrent
// (rule, pair) execution.
type Metrics struct {
	executionsTotal   *prometheus.CounterVec
	findSuccessTotal  *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	sendFailuresTotal *prometheus.CounterVec
	activeExecutions  prometheus.Gauge

	httpHandler fasthttp.RequestHandler
	logger      *zap.Logger
}

// New creates a Metrics collector registered under namespace and
// registers it against the default registry.
func New(namespace string, logger *zap.Logger) *Metrics {
	return NewWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewWithRegistry is New but against a caller-supplied registry, used
// by tests that want an isolated registry per run.
func NewWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *Metrics {
	m := &Metrics{logger: logger}

	m.executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "rule_executions_total",
			Help:      "Total number of rule executions, labeled by outcome.",
		},
		[]string{"rule_id", "outcome"},
	)

	m.findSuccessTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "find_success_total",
			Help:      "Total number of rule executions where any find action succeeded.",
		},
		[]string{"rule_id"},
	)

	m.executionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "rule_execution_duration_seconds",
			Help:      "How long one (rule, pair) execution took end to end.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"rule_id"},
	)

	m.sendFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "send_failures_total",
			Help:      "Total number of send action dispatches that failed.",
		},
		[]string{"rule_id"},
	)

	m.activeExecutions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "active_executions",
			Help:      "Number of (rule, pair) executions currently in flight.",
		},
	)

	for _, c := range []prometheus.Collector{
		m.executionsTotal, m.findSuccessTotal, m.executionDuration, m.sendFailuresTotal, m.activeExecutions,
	} {
		if err := registerer.Register(c); err != nil {
			if logger != nil {
				logger.Debug("metric already registered, skipping", zap.Error(err))
			}
		}
	}

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	m.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return m
}

// ServeHTTP exposes the collected metrics in the Prometheus exposition
// format, so a Metrics instance can be handed directly to
// metricsserver.StartMetricsServer as its MetricsHandler.
func (m *Metrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	m.httpHandler(ctx)
}

// ObserveExecution records one finished (rule, pair) execution.
func (m *Metrics) ObserveExecution(ruleID string, foundAnything bool, aborted bool, duration time.Duration) {
	outcome := "completed"
	if aborted {
		outcome = "aborted"
	}
	m.executionsTotal.WithLabelValues(ruleID, outcome).Inc()
	m.executionDuration.WithLabelValues(ruleID).Observe(duration.Seconds())
	if foundAnything {
		m.findSuccessTotal.WithLabelValues(ruleID).Inc()
	}
}

// ObserveSendFailure records one send action dispatch that failed.
func (m *Metrics) ObserveSendFailure(ruleID string) {
	m.sendFailuresTotal.WithLabelValues(ruleID).Inc()
}

// IncActive and DecActive track in-flight executions for the gauge.
func (m *Metrics) IncActive() { m.activeExecutions.Inc() }
func (m *Metrics) DecActive() { m.activeExecutions.Dec() }
