package app

import (
	"service-dispatch/internal/config"
	"service-dispatch/internal/http/handlers"
	"service-dispatch/internal/http/middleware/ratelimit"
	"service-dispatch/internal/http/router"
	"service-dispatch/internal/logx"
)

func newRateLimitClock() ratelimit.Clock {
	return ratelimit.RealClock{}
}

func newRateLimiter(cfg *config.Config, clock ratelimit.Clock) ratelimit.Limiter {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return ratelimit.NopLimiter{}
	}
	return ratelimit.NewTokenBucketLimiter(clock, ratelimit.Config{
		Rate:    rl.Rate,
		Burst:   rl.Burst,
		IdleTTL: rl.TTL,
		MaxKeys: rl.MaxBuckets,
	})
}

// newRateLimitMiddleware keys the location-ingestion budget per courier.
func newRateLimitMiddleware(logger logx.Logger, m *Metrics, limiter ratelimit.Limiter) *ratelimit.Middleware {
	return ratelimit.New(logger, m.RateLimitExceeded, limiter, ratelimit.URLParamKey("id"))
}

func newRouterDeps(
	logger logx.Logger,
	base *handlers.Handlers,
	cour *handlers.CourierHandler,
	ord *handlers.OrderHandler,
	disp *handlers.DispatchHandler,
	bat *handlers.BatchHandler,
	ws *handlers.WSHandler,
	rl *ratelimit.Middleware,
	cfg *config.Config,
) router.Deps {
	deps := router.Deps{
		Logger:   logger,
		Base:     base,
		Courier:  cour,
		Order:    ord,
		Dispatch: disp,
		Batch:    bat,
		WS:       ws,
	}
	if cfg.RateLimit.Enabled {
		deps.LocationLimit = rl.Handler()
	}
	return deps
}
