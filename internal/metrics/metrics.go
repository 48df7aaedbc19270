package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewOffersCreatedTotal returns a Prometheus counter for the number of offers created
func NewOffersCreatedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_offers_created_total",
		Help: "Total number of offers created by the distribution protocol",
	})
}

// NewOfferFailuresTotal returns a Prometheus counter vector for failed offers by reason
func NewOfferFailuresTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_offer_failures_total",
		Help: "Total number of offers ended by rejection or timeout",
	}, []string{"reason"})
}

// NewFakeGPSTotal returns a Prometheus counter for location samples flagged as spoofed
func NewFakeGPSTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_fake_gps_total",
		Help: "Total number of location samples flagged by the GPS integrity filter",
	})
}

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}
