package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts business events and times business operations.
// *aws.MetricsClient satisfies it, as do the Prometheus and fan-out
// recorders below.
type Recorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordCount(context.Context, string, map[string]string) error { return nil }

func (Nop) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	return nil
}

// Multi records to every recorder and returns the first error.
type Multi []Recorder

func (m Multi) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	var first error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.RecordCount(ctx, metricName, dimensions); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error {
	var first error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.RecordLatency(ctx, metricName, duration, dimensions); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
	Events    *prometheus.CounterVec
	Durations *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewServerMetrics registers the HTTP and business collectors on reg.
func NewServerMetrics(reg *prometheus.Registry, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orders",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orders",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orders",
		Subsystem: service,
		Name:      "business_events_total",
		Help:      "Order lifecycle events by name.",
	}, []string{"event", "outcome"})

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orders",
		Subsystem: service,
		Name:      "operation_duration_ms",
		Help:      "Business operation latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"operation", "outcome"})

	reg.MustRegister(requests, latency, events, durations)
	return &ServerMetrics{Requests: requests, LatencyMS: latency, Events: events, Durations: durations, gatherer: reg}
}

// RecordCount increments the business event counter. The "Outcome"
// dimension, when present, becomes the outcome label.
func (m *ServerMetrics) RecordCount(_ context.Context, metricName string, dimensions map[string]string) error {
	m.Events.WithLabelValues(metricName, dimensions["Outcome"]).Inc()
	return nil
}

func (m *ServerMetrics) RecordLatency(_ context.Context, metricName string, duration time.Duration, dimensions map[string]string) error {
	m.Durations.WithLabelValues(metricName, dimensions["Outcome"]).Observe(float64(duration.Milliseconds()))
	return nil
}

// Middleware observes every request under its route template.
func (m *ServerMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		m.Requests.WithLabelValues(handler, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
