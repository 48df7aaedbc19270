package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"service-dispatch/internal/http/handlers"
	mw "service-dispatch/internal/http/middleware"
	"service-dispatch/internal/logx"
)

// Deps collects everything the router mounts.
type Deps struct {
	Logger   logx.Logger
	Base     *handlers.Handlers
	Courier  *handlers.CourierHandler
	Order    *handlers.OrderHandler
	Dispatch *handlers.DispatchHandler
	Batch    *handlers.BatchHandler
	WS       *handlers.WSHandler

	// LocationLimit guards the GPS ingestion route; nil disables limiting.
	LocationLimit func(http.Handler) http.Handler
}

// New constructs a chi-based http.Handler with base middleware and routes.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(mw.Observability(d.Logger))

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	r.Handle("/metrics", promhttp.Handler())
	r.NotFound(http.HandlerFunc(d.Base.NotFound))

	// websocket sessions outlive the request timeout, so the route is
	// mounted outside the timed group
	r.Get("/ws/couriers/{id}", d.WS.Connect)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(5 * time.Second))

		r.Route("/couriers/{id}", func(r chi.Router) {
			r.Get("/", d.Courier.GetByID)
			r.Post("/status", d.Courier.UpdateStatus)
			r.Get("/arrival", d.Courier.Arrival)
			r.Get("/route-suggestions", d.Courier.RouteSuggestions)

			if d.LocationLimit != nil {
				r.With(d.LocationLimit).Post("/location", d.Courier.IngestLocation)
			} else {
				r.Post("/location", d.Courier.IngestLocation)
			}
		})

		r.Route("/orders/{id}", func(r chi.Router) {
			r.Get("/", d.Order.GetByID)
			r.Post("/status", d.Order.UpdateStatus)
			r.Get("/events", d.Order.Events)
			r.Post("/distribute", d.Dispatch.Distribute)
		})

		r.Post("/offers/{id}/respond", d.Dispatch.Respond)

		r.Get("/batches/suggestions", d.Batch.Suggestions)
		r.Post("/batches", d.Batch.Create)
	})

	return r
}
