package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	TriggerManual = "manual"
	TriggerAuto   = "auto"
)

// Metrics holds the service collectors. All methods are safe on a nil receiver.
type Metrics struct {
	RequestCounter     *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	AttemptsStarted    prometheus.Counter
	Submissions        *prometheus.CounterVec
	AnswersSubmitted   prometheus.Histogram
	AttemptsReviewed   *prometheus.CounterVec
	AssignmentsExpired prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		AttemptsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aptitude_attempts_started_total",
			Help: "Attempts started by test takers",
		}),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aptitude_submissions_total",
				Help: "Answer batches accepted, by trigger",
			},
			[]string{"trigger"},
		),
		AnswersSubmitted: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aptitude_answers_per_submission",
			Help:    "Number of answers in an accepted batch",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		}),
		AttemptsReviewed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aptitude_attempts_reviewed_total",
				Help: "Review transitions applied by administrators",
			},
			[]string{"status"},
		),
		AssignmentsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aptitude_assignments_expired_total",
			Help: "Assignments moved to expired by the expiry job",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.AttemptsStarted,
		m.Submissions,
		m.AnswersSubmitted,
		m.AttemptsReviewed,
		m.AssignmentsExpired,
	)
	return m
}

func (m *Metrics) AttemptStarted() {
	if m == nil {
		return
	}
	m.AttemptsStarted.Inc()
}

// SubmissionAccepted counts an accepted batch; unknown triggers count as manual
func (m *Metrics) SubmissionAccepted(trigger string, answers int) {
	if m == nil {
		return
	}
	if trigger != TriggerAuto {
		trigger = TriggerManual
	}
	m.Submissions.WithLabelValues(trigger).Inc()
	m.AnswersSubmitted.Observe(float64(answers))
}

func (m *Metrics) AttemptReviewed(status string) {
	if m == nil {
		return
	}
	m.AttemptsReviewed.WithLabelValues(status).Inc()
}

func (m *Metrics) AssignmentsExpiredAdd(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.AssignmentsExpired.Add(float64(n))
}

// Middleware records request counts and durations by route template
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() gin.HandlerFunc {
	var h http.Handler
	if m == nil {
		h = promhttp.Handler()
	} else {
		h = promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	}
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
