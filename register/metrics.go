package register

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	outcomeCreated     = "created"
	outcomeProfileSave = "profile_save_failed"
	outcomeInFlight    = "in_flight"

	stepCreateAccount = "create_account"
	stepWriteProfile  = "write_profile"
)

var metricsOnce sync.Once

var (
	registrationsTotal   *prometheus.CounterVec
	registrationDuration *prometheus.HistogramVec
	stepDuration         *prometheus.HistogramVec
)

func registerCounterVec(c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		logrus.Printf("prometheus counter register failed: %v", err)
	}
	return c
}

func registerHistogramVec(c *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
		logrus.Printf("prometheus histogram register failed: %v", err)
	}
	return c
}

func initMetrics() {
	metricsOnce.Do(func() {
		registrationsTotal = registerCounterVec(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signup",
			Subsystem: "register",
			Name:      "attempts_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}))

		registrationDuration = registerHistogramVec(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "signup",
			Subsystem: "register",
			Name:      "duration_seconds",
			Help:      "End to end registration latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}))

		stepDuration = registerHistogramVec(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "signup",
			Subsystem: "register",
			Name:      "step_duration_seconds",
			Help:      "Latency of the external calls made during registration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step", "result"}))
	})
}

func recordOutcome(outcome string, start time.Time) {
	initMetrics()
	registrationsTotal.WithLabelValues(outcome).Inc()
	registrationDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func recordStep(step string, err error, start time.Time) {
	initMetrics()
	result := "success"
	if err != nil {
		result = "error"
	}
	stepDuration.WithLabelValues(step, result).Observe(time.Since(start).Seconds())
}
