package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/trace"

	"seopilot/internal/config"
	apierrors "seopilot/internal/errors"
	"seopilot/internal/infrastructure"
	custommw "seopilot/internal/middleware"
)

// RouterDeps are the handlers and settings the router mounts
type RouterDeps struct {
	Security  config.SecurityConfig
	Logger    *slog.Logger
	Tracer    trace.Tracer
	Metrics   *infrastructure.BusinessMetrics
	Errors    *apierrors.ErrorHandler
	Sessions  custommw.SessionParser
	Gateway   *Gateway
	Session   *SessionHandler
	Items     *ItemHandler
	Health    *HealthHandler
	WebSocket http.Handler
	// PrometheusHTTP serves /metrics when telemetry metrics are enabled
	PrometheusHTTP http.Handler
}

// NewRouter builds the HTTP routing tree
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.NewOTelMiddleware(d.Tracer, d.Metrics, d.Logger).Handler)
	r.Use(custommw.StructuredLogger(d.Logger))
	r.Use(apierrors.RecoveryMiddleware(d.Errors))
	r.Use(custommw.SecurityHeaders)
	r.Use(custommw.CORS(custommw.CORSConfig{
		AllowedOrigins: d.Security.AllowedOrigins,
		Logger:         d.Logger,
	}))
	if d.Security.RateLimit.Enabled {
		r.Use(custommw.NewRateLimiter(d.Security.RateLimit.RPS, d.Security.RateLimit.Burst, d.Logger).Handler)
	}

	r.NotFound(d.Errors.NotFound)
	r.MethodNotAllowed(d.Errors.MethodNotAllowed)

	r.Get("/healthz", d.Health.HealthCheck)
	if d.PrometheusHTTP != nil {
		r.Method(http.MethodGet, "/metrics", d.PrometheusHTTP)
	}

	if d.WebSocket != nil {
		r.With(custommw.Session(d.Sessions, d.Errors, d.Logger, true)).
			Method(http.MethodGet, "/ws", d.WebSocket)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Post("/session", d.Session.Create)

		r.Group(func(r chi.Router) {
			r.Use(custommw.Session(d.Sessions, d.Errors, d.Logger, false))

			r.Get("/nonces/{action}", d.Gateway.ServeNonce)
			r.Post("/admin/actions/{action}", d.Gateway.ServeAction)
			r.Mount("/items", d.Items.Routes())
		})
	})

	return r
}
