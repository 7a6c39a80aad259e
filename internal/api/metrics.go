package api

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "elevideo_api_requests_total",
		Help: "Requests sent to the Elevideo API by method and status class",
	}, []string{"method", "code_class"}) // code_class: 2xx|3xx|4xx|5xx|error

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "elevideo_api_request_duration_seconds",
		Help:    "Latency of Elevideo API requests",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"method"})

	sessionExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "elevideo_session_expired_total",
		Help: "401 responses that cleared the stored credential",
	})
)

func codeClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

func observeRequest(method string, status int, started time.Time) {
	requestsTotal.WithLabelValues(method, codeClass(status)).Inc()
	requestDuration.WithLabelValues(method).Observe(time.Since(started).Seconds())
}
