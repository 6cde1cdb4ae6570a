package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/customer-core/internal/audit"
	"github.com/nerrad567/customer-core/internal/auth"
)

// updateRoleRequest is the request body for PUT /admin/users/{id}/role.
type updateRoleRequest struct {
	Role string `json:"role"`
}

// handleListUsers returns every account. Admin only.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.auth.ListUsers(r.Context())
	if err != nil {
		s.logger.Error("listing users", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// handleUpdateRole changes a user's role. Admins cannot change their own.
func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.auth.UpdateRole(r.Context(), claims.Subject, id, auth.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrForbidden):
			writeBadRequest(w, "role must be admin or user")
		case errors.Is(err, auth.ErrSelfModification):
			writeForbidden(w, "cannot change your own role")
		case errors.Is(err, auth.ErrUserNotFound):
			writeNotFound(w, "user not found")
		default:
			s.logger.Error("updating role", "target", id, "error", err)
			writeInternalError(w, "failed to update role")
		}
		return
	}

	s.auditLog(audit.AuditLog{
		Action:     "update_role",
		EntityType: "user",
		EntityID:   user.ID,
		UserID:     claims.Subject,
		Details:    map[string]any{"role": string(user.Role)},
	})

	writeJSON(w, http.StatusOK, user)
}

// handleToggleStatus flips a user's active flag. Admins cannot toggle
// their own account; deactivation revokes the target's refresh token.
func (s *Server) handleToggleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := claimsFromContext(r.Context())

	user, err := s.auth.ToggleStatus(r.Context(), claims.Subject, id)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrSelfModification):
			writeForbidden(w, "cannot toggle your own account")
		case errors.Is(err, auth.ErrUserNotFound):
			writeNotFound(w, "user not found")
		default:
			s.logger.Error("toggling status", "target", id, "error", err)
			writeInternalError(w, "failed to toggle status")
		}
		return
	}

	s.auditLog(audit.AuditLog{
		Action:     "toggle_status",
		EntityType: "user",
		EntityID:   user.ID,
		UserID:     claims.Subject,
		Details:    map[string]any{"is_active": user.IsActive},
	})

	writeJSON(w, http.StatusOK, user)
}

// handleListAudit returns paginated audit log entries. Admin only.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeJSON(w, http.StatusOK, &audit.ListResult{Logs: []audit.AuditLog{}})
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))   //nolint:errcheck // zero means default
	offset, _ := strconv.Atoi(q.Get("offset")) //nolint:errcheck // zero means first page

	result, err := s.auditRepo.List(r.Context(), audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		s.logger.Error("listing audit logs", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
