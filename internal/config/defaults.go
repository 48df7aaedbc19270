package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "dispatch",
	Pass: "dispatch",
	Name: "dispatch_db",
}

var defaultKafka = Kafka{
	OrderEventsTopic:  "order-events",
	OrderEventsGroup:  "service-dispatch",
	NotificationTopic: "courier-notifications",
}

var defaultRedis = Redis{
	GeoKey: "dispatch:couriers:geo",
}

var defaultOffers = Offers{
	Timeout:                  60 * time.Second,
	MaxPickupDistanceKm:      10,
	ArrivalRadiusMeters:      100,
	MaxRejectionsBeforePause: 5,
	RejectionPenaltyPoints:   10,
	MaxAttempts:              5,
}

var defaultRouting = Routing{
	Enabled:             true,
	MaxGroupDistanceKm:  3,
	MaxDetourDistanceKm: 2,
	MaxAdditionalTime:   15 * time.Minute,
	MaxOrdersPerRoute:   3,
	BearingToleranceDeg: 45,
	AvgSpeedKmh:         25,
	AvgDeliveryTime:     5 * time.Minute,
}

var defaultRateLimit = RateLimit{
	Enabled:    true,
	Rate:       1, // location samples arrive every ~3s; 1 rps with burst absorbs jitter
	Burst:      5,
	TTL:        10 * time.Minute,
	MaxBuckets: 100_000,
}

var defaultPprof = Pprof{
	Addr: "127.0.0.1:6060",
}

var defaultScheduler = Scheduler{
	ExpireInterval: 5 * time.Second,
	RetryInterval:  15 * time.Second,
	RetryBatchSize: 100,
}

// Default returns the full default configuration.
func Default() Config {
	return Config{
		Port:      defaultPort,
		DB:        defaultDB,
		Kafka:     defaultKafka,
		Redis:     defaultRedis,
		Offers:    defaultOffers,
		Routing:   defaultRouting,
		RateLimit: defaultRateLimit,
		Scheduler: defaultScheduler,
		Pprof:     defaultPprof,
	}
}
