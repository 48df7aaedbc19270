package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"service-dispatch/internal/config"
	"service-dispatch/internal/geoindex"
	"service-dispatch/internal/http/handlers"
	"service-dispatch/internal/http/pprofserver"
	"service-dispatch/internal/http/router"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/notify"
	"service-dispatch/internal/ports/dispatchtx"
	"service-dispatch/internal/repository"
	"service-dispatch/internal/service/batch"
	"service-dispatch/internal/service/courier"
	"service-dispatch/internal/service/dispatch"
	"service-dispatch/internal/service/location"
	"service-dispatch/internal/service/order"
	"service-dispatch/internal/service/routing"
)

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error)
	logFatalf func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect: connectDbWithRetry,
		logFatalf: log.Fatalf,
	}
}

// WithDBConnect sets the database connection function
func (b *ContainerBuilder) WithDBConnect(
	fn func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds and returns a new dig container
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerInfra(container); err != nil {
		return nil, fmt.Errorf("infra: %w", err)
	}
	if err := registerService(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds and returns a new dig container
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context) error {
	return provideAll(container,
		func() context.Context { return ctx },
		NewLogger,
		config.Load,
		newMetrics,
	)
}

func registerDb(
	container *dig.Container,
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) error {
	providerDB := func(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
		return dbConnect(ctx, cfg.DB.DSN(), 10, time.Second)
	}
	return provideAll(container, providerDB)
}

func registerInfra(container *dig.Container) error {
	return provideAll(container,
		newGeoIndex,
		notify.NewRegistry,
		newNotifyProducer,
		notify.NewNotifier,
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
	)
}

// newGeoIndex returns nil when Redis is not configured; dispatch then falls
// back to a full courier scan.
func newGeoIndex(cfg *config.Config) *geoindex.Index {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	return geoindex.New(client, cfg.Redis.GeoKey)
}

func newNotifyProducer(cfg *config.Config) (*notify.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.NotificationTopic == "" {
		return nil, nil
	}
	sp, err := notify.NewSyncProducer(cfg.Kafka.Brokers)
	if err != nil {
		return nil, fmt.Errorf("notification producer: %w", err)
	}
	return notify.NewProducer(sp, cfg.Kafka.NotificationTopic), nil
}

func registerService(container *dig.Container) error {
	return provideAll(container,
		repository.NewDispatchRepo,
		repository.NewCourierRepo,
		repository.NewOrderRepo,
		repository.NewOfferRepo,
		repository.NewEventRepo,
		func(r *repository.DispatchRepo) dispatchtx.Runner { return r },

		// an interface holding a nil *geoindex.Index would dodge the
		// services' nil checks, hence the explicit conversions
		func(idx *geoindex.Index) dispatch.CandidateIndex {
			if idx == nil {
				return nil
			}
			return idx
		},
		func(idx *geoindex.Index) location.GeoIndex {
			if idx == nil {
				return nil
			}
			return idx
		},
		func(idx *geoindex.Index) courier.GeoIndex {
			if idx == nil {
				return nil
			}
			return idx
		},

		func(runner dispatchtx.Runner, idx courier.GeoIndex, cfg *config.Config, logger logx.Logger) *courier.Service {
			return courier.NewService(runner, idx, cfg.Location(), logger)
		},
		func(runner dispatchtx.Runner, logger logx.Logger) *order.Service {
			return order.NewService(runner, logger)
		},
		func(
			runner dispatchtx.Runner,
			couriers *repository.CourierRepo,
			orders *repository.OrderRepo,
			idx location.GeoIndex,
			m *Metrics,
			cfg *config.Config,
			logger logx.Logger,
		) *location.Service {
			return location.NewService(runner, couriers, orders, idx, m.FakeGPS, cfg.Offers, logger)
		},
		func(
			runner dispatchtx.Runner,
			couriers *repository.CourierRepo,
			orders *repository.OrderRepo,
			offers *repository.OfferRepo,
			idx dispatch.CandidateIndex,
			notifier *notify.Notifier,
			m *Metrics,
			cfg *config.Config,
			logger logx.Logger,
		) *dispatch.Service {
			return dispatch.NewService(runner, couriers, orders, offers, idx, notifier,
				cfg.Offers, m.OffersCreated, m.OfferFailures, logger)
		},
		func(runner dispatchtx.Runner, orders *repository.OrderRepo, cfg *config.Config, logger logx.Logger) *batch.Service {
			return batch.NewService(runner, orders, cfg.Routing, logger)
		},
		func(couriers *repository.CourierRepo, orders *repository.OrderRepo, cfg *config.Config, logger logx.Logger) *routing.Service {
			return routing.NewService(couriers, orders, cfg.Routing, logger)
		},
	)
}

type pprofOut struct {
	dig.Out
	Server *http.Server `name:"pprof_server"`
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	pprofProvider := func(cfg *config.Config) pprofOut {
		if !cfg.Pprof.Enabled {
			return pprofOut{}
		}
		return pprofOut{Server: &http.Server{
			Addr:              cfg.Pprof.Addr,
			Handler:           pprofserver.Handler(pprofserver.Config{User: cfg.Pprof.User, Pass: cfg.Pprof.Pass}),
			ReadHeaderTimeout: 5 * time.Second,
		}}
	}
	return provideAll(container,
		handlers.New,
		handlers.NewDispatchUsecase,
		handlers.NewDispatchHandler,
		handlers.NewCourierUsecase,
		handlers.NewCourierQuery,
		handlers.NewLocationUsecase,
		handlers.NewRoutingUsecase,
		handlers.NewCourierHandler,
		handlers.NewOrderUsecase,
		handlers.NewOrderQuery,
		handlers.NewEventQuery,
		handlers.NewOrderHandler,
		handlers.NewBatchUsecase,
		handlers.NewBatchHandler,
		handlers.NewWSHandler,
		newRouterDeps,
		router.New,
		serverProvider,
		pprofProvider,
	)
}
