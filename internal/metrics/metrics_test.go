package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSubmissionAccepted(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SubmissionAccepted(TriggerAuto, 3)
	m.SubmissionAccepted("", 2)
	m.SubmissionAccepted(TriggerManual, 1)

	if got := testutil.ToFloat64(m.Submissions.WithLabelValues(TriggerAuto)); got != 1 {
		t.Errorf("expected 1 auto submission, got %v", got)
	}
	if got := testutil.ToFloat64(m.Submissions.WithLabelValues(TriggerManual)); got != 2 {
		t.Errorf("expected 2 manual submissions, got %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.AttemptStarted()
	m.SubmissionAccepted(TriggerAuto, 1)
	m.AttemptReviewed("marked")
	m.AssignmentsExpiredAdd(2)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(prometheus.NewRegistry())

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	if got := testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/ping", "200")); got != 1 {
		t.Errorf("expected 1 recorded request, got %v", got)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Errorf("metrics output missing http_requests_total")
	}
}
