package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talk2data_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talk2data_http_request_duration_seconds",
			Help:    "HTTP request latency by route. Ask requests include the completion round trip.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path", "status"},
	)

	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talk2data_questions_total",
			Help: "Total number of questions by detected operation class.",
		},
		[]string{"operation"},
	)
	outcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talk2data_outcomes_total",
			Help: "Total number of answered questions by outcome kind.",
		},
		[]string{"kind"},
	)
	tableDefaultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "talk2data_table_defaults_total",
			Help: "Total number of questions where no table was named and the first table was assumed.",
		},
	)
	completionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talk2data_completion_duration_seconds",
			Help:    "Completion service latency by status.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"status"},
	)
	executionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talk2data_execution_duration_seconds",
			Help:    "Statement execution latency by operation class.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		questionsTotal,
		outcomesTotal,
		tableDefaultsTotal,
		completionDurationSeconds,
		executionDurationSeconds,
	)
}

func ObserveQuestion(operation string) {
	questionsTotal.WithLabelValues(operation).Inc()
}

func ObserveOutcome(kind string) {
	outcomesTotal.WithLabelValues(kind).Inc()
}

func ObserveTableDefault() {
	tableDefaultsTotal.Inc()
}

func ObserveCompletion(ok bool, elapsed time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	completionDurationSeconds.WithLabelValues(status).Observe(elapsed.Seconds())
}

func ObserveExecution(operation string, elapsed time.Duration) {
	executionDurationSeconds.WithLabelValues(operation).Observe(elapsed.Seconds())
}
