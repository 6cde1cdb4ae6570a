package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/customer-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Public auth endpoints
		r.Post("/auth/register", s.handleRegister)
		r.With(s.rateLimitMiddleware).Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)
		r.Post("/auth/forgot-password", s.handleForgotPassword)
		r.Post("/auth/reset-password", s.handleResetPassword)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Session endpoints
			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/logout", s.handleLogout)
			r.Put("/auth/change-password", s.handleChangePassword)

			// Profile management
			r.Get("/users/profile", s.handleMe)
			r.Put("/users/profile", s.handleUpdateProfile)
			r.Delete("/users/account", s.handleDeactivateAccount)

			// Customer record endpoints
			r.Route("/customers", func(r chi.Router) {
				r.Get("/", s.handleListCustomers)
				r.Post("/", s.handleCreateCustomer)
				r.Get("/search", s.handleSearchCustomers)
				r.Get("/code/{code}", s.handleGetCustomerByCode)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetCustomer)
					r.Put("/", s.handleUpdateCustomer)
					r.Delete("/", s.handleDeleteCustomer)
				})
			})

			// Admin endpoints
			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireRole(auth.RoleAdmin))

				r.Get("/users", s.handleListUsers)
				r.Put("/users/{id}/role", s.handleUpdateRole)
				r.Patch("/users/{id}/status", s.handleToggleStatus)
				r.Get("/audit", s.handleListAudit)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
