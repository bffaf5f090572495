package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/wedding-platform/app"
	"github.com/upb/wedding-platform/middleware"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(deps.Metrics.Middleware)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	guard := deps.AccessMiddleware

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/status", deps.HealthHandler.HandleStatus)

		r.Group(func(r chi.Router) {
			if deps.RateLimitMiddleware != nil {
				r.Use(deps.RateLimitMiddleware.LimitByClient)
			}
			r.Use(deps.AuthMiddleware.RequireAuth)
			if deps.RateLimitMiddleware != nil {
				r.Use(deps.RateLimitMiddleware.Limit)
			}

			// Access questions about the caller
			r.Route("/access", func(r chi.Router) {
				r.Post("/check", deps.AccessHandler.HandleCheckPermission)
				r.Get("/roles", deps.AccessHandler.HandleCheckRoles)
				r.Get("/groups", deps.AccessHandler.HandleListGroups)
				r.Get("/groups/{groupID}", deps.AccessHandler.HandleCheckGroup)
			})

			// Groups; everything below /{groupID} needs owner or super_admin access
			r.Route("/groups", func(r chi.Router) {
				r.Get("/", deps.GroupHandler.HandleListGroups)
				r.With(guard.RequirePermission(models.ResourceGuests, models.ActionCreate)).
					Post("/", deps.GroupHandler.HandleCreateGroup)

				r.Route("/{groupID}", func(r chi.Router) {
					r.Use(guard.RequireGroupAccess)
					r.Get("/", deps.GroupHandler.HandleGetGroup)
					r.Get("/members", deps.GroupHandler.HandleListMembers)
					r.Post("/members", deps.GroupHandler.HandleAddMember)
					r.Put("/members/{userID}", deps.GroupHandler.HandleUpdateMember)
					r.Delete("/members/{userID}", deps.GroupHandler.HandleRemoveMember)
				})
			})

			// Users
			r.Route("/users", func(r chi.Router) {
				r.Get("/me", deps.UserHandler.HandleGetCurrentUser)
				r.Put("/me", deps.UserHandler.HandleUpdateCurrentUser)

				r.Group(func(r chi.Router) {
					r.Use(guard.RequireRole(models.RoleSuperAdmin))
					r.Get("/", deps.UserHandler.HandleListUsers)
					r.Put("/{userID}/role", deps.UserHandler.HandleChangeRole)
				})
			})

			// Audit logs (super admins only)
			r.Route("/audit", func(r chi.Router) {
				r.Use(guard.RequireRole(models.RoleSuperAdmin))
				r.Get("/logs", deps.AuditHandler.HandleListAuditLogs)
			})
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	return r
}
