package ratelimit

import (
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"service-dispatch/internal/logx"
)

// KeyFunc extracts the limiter key from a request.
type KeyFunc func(r *http.Request) string

// Middleware rejects requests over the limit with 429.
type Middleware struct {
	logger  logx.Logger
	counter prometheus.Counter
	limiter Limiter
	keyFn   KeyFunc
}

// New creates a Middleware. A nil limiter means no limiting, a nil keyFn
// falls back to the client IP.
func New(logger logx.Logger, counter prometheus.Counter, limiter Limiter, keyFn KeyFunc) *Middleware {
	if limiter == nil {
		limiter = NopLimiter{}
	}
	if keyFn == nil {
		keyFn = ClientIPKey
	}
	return &Middleware{
		logger:  logger,
		counter: counter,
		limiter: limiter,
		keyFn:   keyFn,
	}
}

// Handler returns chi-style middleware.
func (m *Middleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := m.keyFn(r)

			if !m.limiter.Allow(key) {
				if m.counter != nil {
					m.counter.Inc()
				}
				m.logger.Warn("rate limit exceeded",
					logx.String("key", key),
					logx.String("method", r.Method),
					logx.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				if _, err := io.WriteString(w, `{"error":"too many requests"}`); err != nil {
					// client may have dropped the connection
					m.logger.Debug("rate limit response write failed",
						logx.String("key", key),
						logx.Any("err", err),
					)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// URLParamKey keys the limiter by a chi URL parameter, falling back to the
// client IP when the parameter is absent. Location ingestion uses this so
// the budget is per courier, not per source address.
func URLParamKey(name string) KeyFunc {
	return func(r *http.Request) string {
		if v := chi.URLParam(r, name); v != "" {
			return name + ":" + v
		}
		return ClientIPKey(r)
	}
}

// ClientIPKey keys the limiter by the request's remote address.
func ClientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
