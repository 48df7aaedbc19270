package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// DB stores database connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN returns the postgres connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", d.User, d.Pass, d.Host, d.Port, d.Name)
}

// Kafka stores broker settings for the order-event consumer and the
// notification producer.
type Kafka struct {
	Brokers           []string
	OrderEventsTopic  string
	OrderEventsGroup  string
	NotificationTopic string
}

// Redis stores settings for the courier live-position geo index.
// An empty Addr disables the index; dispatch falls back to a full scan.
type Redis struct {
	Addr     string
	Password string
	GeoKey   string
}

// Offers stores the offer distribution constants.
type Offers struct {
	Timeout                  time.Duration
	MaxPickupDistanceKm      float64
	ArrivalRadiusMeters      float64
	MaxRejectionsBeforePause int
	RejectionPenaltyPoints   int
	MaxAttempts              int
}

// Routing stores the en-route insertion and batching parameters.
type Routing struct {
	Enabled             bool
	MaxGroupDistanceKm  float64
	MaxDetourDistanceKm float64
	MaxAdditionalTime   time.Duration
	MaxOrdersPerRoute   int
	BearingToleranceDeg float64
	AvgSpeedKmh         float64
	AvgDeliveryTime     time.Duration
}

// RateLimit stores per-courier location ingestion limits.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Scheduler stores worker loop intervals.
type Scheduler struct {
	ExpireInterval time.Duration
	RetryInterval  time.Duration
	RetryBatchSize int
}

// Pprof stores debug profiling settings.
type Pprof struct {
	Enabled bool
	Addr    string
	User    string
	Pass    string
}

// Config stores all service-dispatch settings.
type Config struct {
	Port      int
	Timezone  string
	DB        DB
	Kafka     Kafka
	Redis     Redis
	Offers    Offers
	Routing   Routing
	RateLimit RateLimit
	Scheduler Scheduler
	Pprof     Pprof
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := Default()
	var errs []string

	setIntFromEnv(&cfg.Port, "PORT", &errs)
	setStringFromEnv(&cfg.Timezone, "DISPATCH_TIMEZONE")

	setStringFromEnv(&cfg.DB.Host, "DB_HOST")
	setStringFromEnv(&cfg.DB.Port, "DB_PORT")
	setStringFromEnv(&cfg.DB.User, "DB_USER")
	setStringFromEnv(&cfg.DB.Pass, "DB_PASSWORD")
	setStringFromEnv(&cfg.DB.Name, "DB_NAME")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitAndTrim(v)
	}
	setStringFromEnv(&cfg.Kafka.OrderEventsTopic, "KAFKA_ORDER_EVENTS_TOPIC")
	setStringFromEnv(&cfg.Kafka.OrderEventsGroup, "KAFKA_ORDER_EVENTS_GROUP")
	setStringFromEnv(&cfg.Kafka.NotificationTopic, "KAFKA_NOTIFICATION_TOPIC")

	setStringFromEnv(&cfg.Redis.Addr, "REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.Redis.GeoKey, "REDIS_GEO_KEY")

	setDurationFromEnv(&cfg.Offers.Timeout, "OFFER_TIMEOUT", &errs)
	setFloatFromEnv(&cfg.Offers.MaxPickupDistanceKm, "MAX_PICKUP_DISTANCE_KM", &errs)
	setFloatFromEnv(&cfg.Offers.ArrivalRadiusMeters, "ARRIVAL_RADIUS_METERS", &errs)
	setIntFromEnv(&cfg.Offers.MaxRejectionsBeforePause, "MAX_REJECTIONS_BEFORE_PAUSE", &errs)
	setIntFromEnv(&cfg.Offers.RejectionPenaltyPoints, "REJECTION_PENALTY_POINTS", &errs)
	setIntFromEnv(&cfg.Offers.MaxAttempts, "MAX_OFFER_ATTEMPTS", &errs)

	setBoolFromEnv(&cfg.Routing.Enabled, "ROUTE_SUGGESTIONS_ENABLED")
	setFloatFromEnv(&cfg.Routing.MaxGroupDistanceKm, "MAX_GROUP_DISTANCE_KM", &errs)
	setFloatFromEnv(&cfg.Routing.MaxDetourDistanceKm, "MAX_DETOUR_DISTANCE_KM", &errs)
	setDurationFromEnv(&cfg.Routing.MaxAdditionalTime, "MAX_ADDITIONAL_TIME", &errs)
	setIntFromEnv(&cfg.Routing.MaxOrdersPerRoute, "MAX_ORDERS_PER_ROUTE", &errs)
	setFloatFromEnv(&cfg.Routing.BearingToleranceDeg, "BEARING_TOLERANCE_DEG", &errs)
	setFloatFromEnv(&cfg.Routing.AvgSpeedKmh, "AVG_SPEED_KMH", &errs)
	setDurationFromEnv(&cfg.Routing.AvgDeliveryTime, "AVG_DELIVERY_TIME", &errs)

	setBoolFromEnv(&cfg.RateLimit.Enabled, "RATE_LIMIT_ENABLED")
	setFloatFromEnv(&cfg.RateLimit.Rate, "RATE_LIMIT_RATE", &errs)
	setIntFromEnv(&cfg.RateLimit.Burst, "RATE_LIMIT_BURST", &errs)

	setDurationFromEnv(&cfg.Scheduler.ExpireInterval, "SCHEDULER_EXPIRE_INTERVAL", &errs)
	setDurationFromEnv(&cfg.Scheduler.RetryInterval, "SCHEDULER_RETRY_INTERVAL", &errs)

	setBoolFromEnv(&cfg.Pprof.Enabled, "PPROF_ENABLED")
	setStringFromEnv(&cfg.Pprof.Addr, "PPROF_ADDR")
	setStringFromEnv(&cfg.Pprof.User, "PPROF_USER")
	setStringFromEnv(&cfg.Pprof.Pass, "PPROF_PASS")

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.Parse()

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Offers.Timeout <= 0 {
		return fmt.Errorf("offer timeout must be positive")
	}
	if c.Offers.MaxAttempts <= 0 {
		return fmt.Errorf("max offer attempts must be positive")
	}
	if c.Routing.AvgSpeedKmh <= 0 {
		return fmt.Errorf("average speed must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); c.Timezone != "" && err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the configured timezone; empty means the host's local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func setIntFromEnv(target *int, key string, errs *[]string) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Sprintf("invalid %s: %v", key, err))
			return
		}
		*target = i
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]string) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Sprintf("invalid %s: %v", key, err))
			return
		}
		*target = f
	}
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]string) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Sprintf("invalid %s: %v", key, err))
			return
		}
		*target = d
	}
}

func setBoolFromEnv(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = strings.EqualFold(v, "true") || v == "1"
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
