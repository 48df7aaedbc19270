package app

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"service-dispatch/internal/metrics"
)

// Metrics bundles the engine's Prometheus collectors so dig can hand them
// out as one dependency.
type Metrics struct {
	OffersCreated     prometheus.Counter
	OfferFailures     *prometheus.CounterVec
	FakeGPS           prometheus.Counter
	RateLimitExceeded prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		OffersCreated:     registerCounter(metrics.NewOffersCreatedTotal()),
		OfferFailures:     registerCounterVec(metrics.NewOfferFailuresTotal()),
		FakeGPS:           registerCounter(metrics.NewFakeGPSTotal()),
		RateLimitExceeded: registerCounter(metrics.NewRateLimitExceededTotal()),
	}
}

// registerCounter registers c, reusing the already-registered collector when
// two containers share a process (tests build several).
func registerCounter(c prometheus.Counter) prometheus.Counter {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(prometheus.Counter)
		}
		panic(err)
	}
	return c
}

func registerCounterVec(c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		panic(err)
	}
	return c
}
