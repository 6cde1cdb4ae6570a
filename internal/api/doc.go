// Package api implements the HTTP REST API for Customer Core.
//
// This package provides:
//   - Authentication endpoints (register, login, refresh, logout, recovery)
//   - Customer record CRUD and search endpoints
//   - Admin endpoints for user management and audit queries
//   - Middleware stack (request ID, logging, recovery, CORS, JWT auth)
//   - Optional Redis-backed login rate limiting
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between clients (web admin, mobile apps) and the
// auth service plus the customer and audit repositories. Handlers decode
// and validate requests, delegate to the service layer, and map sentinel
// errors onto HTTP statuses. Mutations emit audit entries through the
// asynchronous recorder so logging never blocks a response.
//
// # Security
//
// Authentication uses short-lived HS256 access tokens with rotating
// opaque refresh tokens. Admin routes are gated on the role claim.
// Login and recovery responses are shaped so that account existence
// cannot be probed from the outside.
package api
