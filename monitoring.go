package gopresto

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gopresto_http_requests_total",
			Help: "Total number of HTTP requests sent to the coordinator.",
		},
		[]string{"method", "status"},
	)

	httpRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gopresto_http_retries_total",
			Help: "Total number of retries after the coordinator answered 503.",
		},
	)

	pagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gopresto_pages_total",
			Help: "Total number of result pages received.",
		},
	)

	rowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gopresto_rows_total",
			Help: "Total number of result rows received.",
		},
	)

	statementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gopresto_statements_total",
			Help: "Total number of statements by outcome.",
		},
		[]string{"outcome"},
	)

	statementDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gopresto_statement_duration_seconds",
			Help:    "Wall time from submission to the last page of a statement.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

const (
	outcomeSuccess        = "success"
	outcomeTruncated      = "truncated"
	outcomeQueryError     = "query_error"
	outcomeTransportError = "transport_error"
	outcomeParseError     = "parse_error"
	outcomeCanceled       = "canceled"
)

// MetricsCollectors returns the collectors maintained by the client.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRetriesTotal,
		pagesTotal,
		rowsTotal,
		statementsTotal,
		statementDurationSeconds,
	}
}

// RegisterMetrics registers the client collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range MetricsCollectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func observeRequest(method string, status int) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func observeRetry() {
	httpRetriesTotal.Inc()
}

func observePage(rows int) {
	pagesTotal.Inc()
	rowsTotal.Add(float64(rows))
}

func observeStatement(outcome string, elapsed time.Duration) {
	statementsTotal.WithLabelValues(outcome).Inc()
	statementDurationSeconds.Observe(elapsed.Seconds())
}
