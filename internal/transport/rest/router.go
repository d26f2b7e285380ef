package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/performance-management/internal/core/events"
	"github.com/frahmantamala/performance-management/internal/guard"
	"github.com/frahmantamala/performance-management/internal/session"
	"github.com/frahmantamala/performance-management/internal/transport/middleware"
	"github.com/frahmantamala/performance-management/internal/transport/swagger"
)

const apiPrefix = "/api/v1"

func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	redisClient redis.UniversalClient,
	sessionHandler *session.Handler,
	guardHandler *guard.Handler,
	proxy *BackendProxy,
	rules *guard.Ruleset,
	bus *events.EventBus,
	allowedOrigins string,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db, redisClient)

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route(apiPrefix, func(r chi.Router) {
		// Health check routes
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if sessionHandler != nil {
			// Auth routes
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", sessionHandler.Login)
				sr.Post("/logout", sessionHandler.Logout)
			})

			// Navigation guard query. The optional auth middleware lets the
			// handler turn a dead session into a deny decision.
			if guardHandler != nil {
				r.Group(func(gr chi.Router) {
					gr.Use(sessionHandler.OptionalAuthMiddleware)
					gr.Get("/navigate", guardHandler.Navigate)
				})
			}

			// Protected routes that require a live session
			r.Group(func(pr chi.Router) {
				pr.Use(sessionHandler.AuthMiddleware)

				pr.Get("/session", sessionHandler.Session)

				// Role-gated dashboard namespaces, proxied to the backend.
				// The guard evaluates the path after the API prefix, so these
				// match the UI route space one to one.
				if proxy != nil {
					pr.Group(func(gr chi.Router) {
						gr.Use(guard.Middleware(rules, apiPrefix, bus, logger))
						for _, rule := range rules.Rules() {
							gr.Handle(rule.AllowedPrefix, proxy)
							gr.Handle(rule.AllowedPrefix+"/*", proxy)
						}
						for _, shared := range rules.SharedPrefixes() {
							gr.Handle(shared, proxy)
							gr.Handle(shared+"/*", proxy)
						}
					})
				}
			})
		}
	})
}
