package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/customer-core/internal/audit"
	"github.com/nerrad567/customer-core/internal/auth"
)

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// refreshRequest is the request body for POST /auth/refresh.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// changePasswordRequest is the request body for PUT /auth/change-password.
type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// updateProfileRequest is the request body for PUT /users/profile.
type updateProfileRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// deactivateAccountRequest is the request body for DELETE /users/account.
type deactivateAccountRequest struct {
	Password string `json:"password"`
}

// forgotPasswordRequest is the request body for POST /auth/forgot-password.
type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// resetPasswordRequest is the request body for POST /auth/reset-password.
type resetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// handleRegister creates a new account with the user role.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.auth.Register(r.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameExists):
			writeConflict(w, "username already taken")
		case errors.Is(err, auth.ErrEmailExists):
			writeConflict(w, "email already registered")
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "password must be at least 8 characters")
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		default:
			s.logger.Error("registering user", "error", err)
			writeInternalError(w, "failed to register user")
		}
		return
	}

	s.auditLog(audit.AuditLog{
		Action:     "register",
		EntityType: "user",
		EntityID:   user.ID,
		UserID:     user.ID,
	})

	writeJSON(w, http.StatusCreated, user)
}

// handleLogin authenticates a user and returns an access/refresh token pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	pair, user, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeUnauthorized(w, "invalid credentials")
		case errors.Is(err, auth.ErrUserInactive):
			writeForbidden(w, "account is disabled")
		default:
			s.logger.Error("logging in", "error", err)
			writeInternalError(w, "failed to log in")
		}
		return
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(r.Context(), clientIP(r)); err != nil {
			s.logger.Warn("resetting login rate limit", "error", err)
		}
	}

	s.auditLog(audit.AuditLog{
		Action:     "login",
		EntityType: "session",
		UserID:     user.ID,
		Details:    map[string]any{"username": user.Username},
	})

	writeJSON(w, http.StatusOK, pair)
}

// handleRefresh rotates a refresh token and returns a fresh token pair.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	pair, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			writeUnauthorized(w, "refresh token expired")
		case errors.Is(err, auth.ErrTokenInvalid):
			writeUnauthorized(w, "invalid refresh token")
		case errors.Is(err, auth.ErrUserInactive):
			writeForbidden(w, "account is disabled")
		default:
			s.logger.Error("refreshing token", "error", err)
			writeInternalError(w, "failed to refresh token")
		}
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// handleMe returns the authenticated user's account.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	user, err := s.auth.GetCurrentUser(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "account no longer exists")
			return
		}
		s.logger.Error("loading current user", "error", err)
		writeInternalError(w, "failed to load account")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleLogout discards the caller's refresh token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	if err := s.auth.Logout(r.Context(), claims.Subject); err != nil {
		s.logger.Error("logging out", "error", err)
		writeInternalError(w, "failed to log out")
		return
	}

	s.auditLog(audit.AuditLog{
		Action:     "logout",
		EntityType: "session",
		Details:    map[string]any{"username": claims.Subject},
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// handleChangePassword rotates the caller's password after re-verifying
// the current one. Success revokes the account's refresh token.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	err := s.auth.ChangePassword(r.Context(), claims.Subject, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeUnauthorized(w, "current password is incorrect")
		case errors.Is(err, auth.ErrPasswordMismatch):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "password confirmation does not match")
		case errors.Is(err, auth.ErrPasswordUnchanged):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "new password must differ from the current one")
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "password must be at least 8 characters")
		default:
			s.logger.Error("changing password", "error", err)
			writeInternalError(w, "failed to change password")
		}
		return
	}

	s.auditLog(audit.AuditLog{
		Action:     "change_password",
		EntityType: "user",
		Details:    map[string]any{"username": claims.Subject},
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed, please log in again"})
}

// handleUpdateProfile changes the caller's email and full name.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.auth.UpdateProfile(r.Context(), claims.Subject, req.Email, req.FullName)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			writeConflict(w, "email already registered")
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		default:
			s.logger.Error("updating profile", "error", err)
			writeInternalError(w, "failed to update profile")
		}
		return
	}

	s.auditLog(audit.AuditLog{
		Action:     "update",
		EntityType: "user",
		EntityID:   user.ID,
		UserID:     user.ID,
	})

	writeJSON(w, http.StatusOK, user)
}

// handleDeactivateAccount soft-deletes the caller's own account after
// confirming their password.
func (s *Server) handleDeactivateAccount(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req deactivateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.auth.DeactivateAccount(r.Context(), claims.Subject, req.Password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeUnauthorized(w, "invalid password")
			return
		}
		s.logger.Error("deactivating account", "error", err)
		writeInternalError(w, "failed to deactivate account")
		return
	}

	s.auditLog(audit.AuditLog{
		Action:     "deactivate",
		EntityType: "user",
		Details:    map[string]any{"username": claims.Subject},
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "account deactivated"})
}

// handleForgotPassword starts the password recovery flow.
//
// The response is identical whether or not the email is registered, so
// the endpoint cannot be used to enumerate accounts.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" {
		writeBadRequest(w, "email is required")
		return
	}

	if _, err := s.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		if !errors.Is(err, auth.ErrUserNotFound) {
			s.logger.Error("requesting password reset", "error", err)
			writeInternalError(w, "failed to process reset request")
			return
		}
		// Unknown email falls through to the generic response.
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "if the email is registered, a reset token has been sent",
	})
}

// handleResetPassword redeems a reset token and sets a new password.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Token == "" {
		writeBadRequest(w, "token is required")
		return
	}

	err := s.auth.ResetPassword(r.Context(), req.Token, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenInvalid):
			writeUnauthorized(w, "invalid reset token")
		case errors.Is(err, auth.ErrTokenExpired):
			writeUnauthorized(w, "reset token expired, request a new one")
		case errors.Is(err, auth.ErrPasswordMismatch):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "password confirmation does not match")
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "password must be at least 8 characters")
		default:
			s.logger.Error("resetting password", "error", err)
			writeInternalError(w, "failed to reset password")
		}
		return
	}

	s.auditLog(audit.AuditLog{
		Action:     "reset_password",
		EntityType: "user",
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "password reset, please log in"})
}
