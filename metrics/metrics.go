// metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// reqDuration is a histogram of HTTP request durations in seconds, labeled
// by route pattern, method, and status code.
var reqDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: []float64{0.01, 0.1, 0.3, 1.2, 5},
	},
	[]string{"path", "method", "status"},
)

var (
	contactSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact submissions by outcome.",
		},
		[]string{"outcome"},
	)

	spamScores = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "contact_spam_score",
		Help:    "Spam scores of contact submissions that reached scoring.",
		Buckets: prometheus.LinearBuckets(0, 1, 11),
	})

	emailVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_verifications_total",
			Help: "Email verifications by deciding check.",
		},
		[]string{"outcome"},
	)

	rateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Rate limiter decisions for contact submissions.",
		},
		[]string{"decision"},
	)

	navigations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigation_decisions_total",
			Help: "Route guard decisions by result.",
		},
		[]string{"result"},
	)
)

// RegisterDefault registers the Go runtime and process collectors, the HTTP
// histogram, and the contact/verification collectors. Safe to call more
// than once; a failure other than double registration is fatal.
func RegisterDefault(logger *zap.Logger) {
	mustRegister(logger, "Go collector", collectors.NewGoCollector())
	mustRegister(logger, "process collector", collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mustRegister(logger, "HTTP request histogram", reqDuration)
	mustRegister(logger, "contact submissions", contactSubmissions)
	mustRegister(logger, "spam scores", spamScores)
	mustRegister(logger, "email verifications", emailVerifications)
	mustRegister(logger, "rate limit decisions", rateLimitDecisions)
	mustRegister(logger, "navigation decisions", navigations)
}

func mustRegister(logger *zap.Logger, name string, c prometheus.Collector) {
	if err := prometheus.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return
		}
		if logger != nil {
			logger.Fatal("failed to register "+name, zap.Error(err))
		}
		panic("metrics: failed to register " + name + ": " + err.Error())
	}
}

// ContactOutcome counts one contact submission ("delivered", "flagged",
// "fallback", "blocked", "rate_limited", "invalid", "error").
func ContactOutcome(outcome string) {
	contactSubmissions.WithLabelValues(outcome).Inc()
}

// SpamScore records the score of a submission.
func SpamScore(score int) {
	spamScores.Observe(float64(score))
}

// Verification counts one email verification by the check that decided it.
func Verification(outcome string) {
	emailVerifications.WithLabelValues(outcome).Inc()
}

// RateLimit counts one limiter decision.
func RateLimit(admitted bool) {
	if admitted {
		rateLimitDecisions.WithLabelValues("admitted").Inc()
		return
	}
	rateLimitDecisions.WithLabelValues("rejected").Inc()
}

// Navigation counts one guard decision ("admit", "redirect", "unknown").
func Navigation(result string) {
	navigations.WithLabelValues(result).Inc()
}

// HTTPMetrics records request duration into http_request_duration_seconds.
// The chi route pattern is used as the path label; requests without a
// matched pattern share the "unmatched" label so the label set stays bounded.
func HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		protoMajor := r.ProtoMajor
		if protoMajor < 1 {
			protoMajor = 1
		}
		ww := middleware.NewWrapResponseWriter(w, protoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		// 0 means the handler never called WriteHeader: net/http sends 200.
		if status == 0 {
			status = http.StatusOK
		}
		if status < 100 || status > 599 {
			status = http.StatusInternalServerError
		}

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		reqDuration.WithLabelValues(path, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

// Handler returns an http.Handler that exposes the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
