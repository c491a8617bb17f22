package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type failingRecorder struct{ calls int }

func (f *failingRecorder) RecordCount(context.Context, string, map[string]string) error {
	f.calls++
	return errors.New("unavailable")
}

func (f *failingRecorder) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	f.calls++
	return errors.New("unavailable")
}

func TestServerMetrics_RecordCount(t *testing.T) {
	m := NewServerMetrics(prometheus.NewRegistry(), "test")

	_ = m.RecordCount(context.Background(), "CheckoutRejected", map[string]string{"Outcome": "INSUFFICIENT_STOCK"})
	_ = m.RecordCount(context.Background(), "CheckoutRejected", map[string]string{"Outcome": "INSUFFICIENT_STOCK"})
	_ = m.RecordCount(context.Background(), "OrdersCreated", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues("CheckoutRejected", "INSUFFICIENT_STOCK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("OrdersCreated", "")))
}

func TestServerMetrics_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewServerMetrics(prometheus.NewRegistry(), "test")

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for _, path := range []string{"/orders/a", "/orders/b", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("/orders/:id", http.MethodGet, "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("unmatched", http.MethodGet, "404")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "orders_test_http_requests_total")
}

func TestMulti_RecordsEverywhere(t *testing.T) {
	m := NewServerMetrics(prometheus.NewRegistry(), "test")
	failing := &failingRecorder{}

	err := Multi{failing, nil, m}.RecordCount(context.Background(), "OrdersCreated", nil)

	assert.Error(t, err)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("OrdersCreated", "")))
}

func TestServerMetrics_RecordLatency(t *testing.T) {
	m := NewServerMetrics(prometheus.NewRegistry(), "test")
	failing := &failingRecorder{}

	err := Multi{failing, m}.RecordLatency(context.Background(), "CheckoutLatency", 120*time.Millisecond, map[string]string{"Outcome": "success"})
	assert.Error(t, err)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, testutil.CollectAndCount(m.Durations))

	assert.NoError(t, Nop{}.RecordLatency(context.Background(), "CheckoutLatency", time.Second, nil))
}
