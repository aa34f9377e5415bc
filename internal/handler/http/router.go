package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/karciss/red-social-backend/internal/domain"
	"github.com/karciss/red-social-backend/internal/service"
	"github.com/karciss/red-social-backend/pkg/health"
	"github.com/karciss/red-social-backend/pkg/middleware"
)

// RouterConfig carries the router's non-service dependencies.
type RouterConfig struct {
	CORS         middleware.CORSConfig
	PprofEnabled bool
	PprofCIDRs   []string
}

// NewRouter creates a chi router with all auth service routes registered.
func NewRouter(
	userService *service.UserService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Tracing("auth"))
	r.Use(middleware.PrometheusMetrics("auth"))

	// Operational endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	if cfg.PprofEnabled {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	authHandler := NewAuthHandler(userService, logger)
	userHandler := NewUserHandler(userService, logger)

	authenticate := Authenticate(userService)

	// Public auth endpoints
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(ContentTypeJSON).Post("/register", authHandler.Register)
		r.With(ContentTypeJSON).Post("/login", authHandler.Login)
		r.With(ContentTypeJSON).Post("/refresh", authHandler.Refresh)
		r.With(ContentTypeJSON).Post("/validate-token", authHandler.ValidateToken)

		r.With(authenticate).Get("/me", authHandler.Me)
	})

	// User endpoints (auth required)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/search", userHandler.Search)
		r.With(ContentTypeJSON).Put("/me", userHandler.UpdateMe)
		r.Get("/{id}", userHandler.GetByID)

		// Admin lifecycle surface
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(domain.RoleAdmin))

			r.Get("/", userHandler.List)
			r.Delete("/{id}", userHandler.Deactivate)
			r.Put("/{id}/activate", userHandler.Activate)
		})
	})

	return r
}
