package gateway

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var instrumentOnce sync.Once

var (
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
)

func registerOrExisting[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Instrumentation records request counts, latency and response size per
// route. /metrics itself is not measured.
func Instrumentation() fiber.Handler {
	instrumentOnce.Do(func() {
		requestsTotal = registerOrExisting(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signup",
			Subsystem: "request",
			Name:      "requests_count",
			Help:      "Number of requests per each endpoint",
		}, []string{"code", "method", "route"}))

		requestDuration = registerOrExisting(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "signup",
			Subsystem: "response",
			Name:      "duration_seconds",
			Help:      "signup response duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}))

		responseSize = registerOrExisting(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "signup",
			Subsystem: "response",
			Name:      "size_bytes",
			Help:      "signup response size",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}, []string{"method", "route"}))
	})

	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		status := strconv.Itoa(c.Response().StatusCode())

		requestsTotal.WithLabelValues(status, c.Method(), route).Inc()
		requestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		responseSize.WithLabelValues(c.Method(), route).Observe(float64(len(c.Response().Body())))
		return err
	}
}
