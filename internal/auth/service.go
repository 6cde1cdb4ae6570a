package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Notifier delivers password reset tokens out of band (email in
// production, log-only in development). Implementations must not block
// for long; delivery failures are logged and do not fail the request.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// ServiceConfig carries the token parameters for the auth service.
type ServiceConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
}

// Service orchestrates authentication flows over the user and token
// repositories. It owns the error taxonomy: callers see sentinel errors
// only, never driver or crypto internals.
type Service struct {
	users    UserRepository
	tokens   TokenRepository
	notifier Notifier
	logger   *slog.Logger
	cfg      ServiceConfig

	// decoyHash is verified against when a login names an unknown
	// username, so timing matches a real password check.
	decoyHash string
}

// NewService creates the authentication service.
func NewService(users UserRepository, tokens TokenRepository, notifier Notifier, logger *slog.Logger, cfg ServiceConfig) (*Service, error) {
	decoy, err := HashPassword("decoy-" + time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("preparing decoy hash: %w", err)
	}

	return &Service{
		users:     users,
		tokens:    tokens,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
		decoyHash: decoy,
	}, nil
}

// RegisterInput carries the fields for account creation.
type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
}

// Register creates a new active account with the user role.
// Duplicate username or email fails with the matching sentinel and
// creates no row; uniqueness is enforced by the store, not by a
// check-then-insert race.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Username = NormaliseIdentifier(in.Username)
	in.Email = NormaliseIdentifier(in.Email)

	if !IsValidUsername(in.Username) {
		return nil, fmt.Errorf("%w: invalid username format", ErrInvalidCredentials)
	}
	if !IsValidEmail(in.Email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrInvalidCredentials)
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		Role:         RoleUser,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login verifies credentials and issues a token pair.
//
// Unknown username and wrong password both return ErrInvalidCredentials,
// and the unknown-username path burns a decoy verification so the two
// are indistinguishable by timing. A disabled account fails with
// ErrUserInactive only after the password has been verified, so the
// active flag leaks nothing about credential validity.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, *User, error) {
	username = NormaliseIdentifier(username)

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_, _ = VerifyPassword(password, s.decoyHash) //nolint:errcheck // decoy burn, result unused
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, nil, ErrUserInactive
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)
	return pair, user, nil
}

// Refresh redeems a refresh token for a fresh token pair, rotating the
// refresh token in the process.
//
// The user is re-read from the store so the new access token always
// carries the current role, and a deactivated account cannot refresh.
func (s *Service) Refresh(ctx context.Context, rawToken string) (*TokenPair, error) {
	stored, err := s.tokens.GetByTokenHash(ctx, HashToken(rawToken))
	if err != nil {
		return nil, err
	}

	if time.Now().After(stored.ExpiresAt) {
		if err := s.tokens.Delete(ctx, stored.ID); err != nil {
			s.logger.Warn("deleting expired refresh token", "error", err)
		}
		return nil, ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return s.issueTokens(ctx, user)
}

// Logout discards the account's refresh token. The access token stays
// valid until expiry; it is short-lived by design.
func (s *Service) Logout(ctx context.Context, username string) error {
	user, err := s.users.GetByUsername(ctx, NormaliseIdentifier(username))
	if err != nil {
		return err
	}
	return s.tokens.DeleteAllForUser(ctx, user.ID)
}

// GetCurrentUser returns the account for a verified token subject.
func (s *Service) GetCurrentUser(ctx context.Context, username string) (*User, error) {
	return s.users.GetByUsername(ctx, NormaliseIdentifier(username))
}

// ChangePassword rotates a password after re-verifying the current one.
//
// Rules, checked in order: wrong current password => ErrInvalidCredentials;
// confirmation mismatch => ErrPasswordMismatch; new equals current =>
// ErrPasswordUnchanged. Success revokes the account's refresh token so
// other sessions must log in again.
func (s *Service) ChangePassword(ctx context.Context, username, current, newPassword, confirm string) error {
	user, err := s.users.GetByUsername(ctx, NormaliseIdentifier(username))
	if err != nil {
		return err
	}

	ok, err := VerifyPassword(current, user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	if newPassword == current {
		return ErrPasswordUnchanged
	}
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	if err := s.tokens.DeleteAllForUser(ctx, user.ID); err != nil {
		s.logger.Warn("revoking sessions after password change", "error", err)
	}

	s.logger.Info("password changed", "user_id", user.ID)
	return nil
}

// UpdateProfile changes the account's email and full name.
// A duplicate email fails with ErrEmailExists via the store constraint.
func (s *Service) UpdateProfile(ctx context.Context, username, email, fullName string) (*User, error) {
	user, err := s.users.GetByUsername(ctx, NormaliseIdentifier(username))
	if err != nil {
		return nil, err
	}

	if email != "" {
		email = NormaliseIdentifier(email)
		if !IsValidEmail(email) {
			return nil, fmt.Errorf("%w: invalid email format", ErrInvalidCredentials)
		}
		user.Email = email
	}
	if fullName != "" {
		user.FullName = fullName
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeactivateAccount disables the caller's own account (soft delete).
// The caller must confirm their password. The row is kept; the active
// flag is cleared and the refresh token revoked. Reactivation is an
// admin operation.
func (s *Service) DeactivateAccount(ctx context.Context, username, password string) error {
	user, err := s.users.GetByUsername(ctx, NormaliseIdentifier(username))
	if err != nil {
		return err
	}

	if ok, err := VerifyPassword(password, user.PasswordHash); err != nil || !ok {
		return ErrInvalidCredentials
	}

	user.IsActive = false
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	if err := s.tokens.DeleteAllForUser(ctx, user.ID); err != nil {
		s.logger.Warn("revoking sessions after deactivation", "error", err)
	}

	s.logger.Info("account deactivated", "user_id", user.ID)
	return nil
}

// RequestPasswordReset starts the recovery flow for the account holding
// the email. A fresh single-use token replaces any pending one; its hash
// and expiry land on the user row and the raw token goes to the notifier.
// The raw token is also returned for the transport layer to convey.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, NormaliseIdentifier(email))
	if err != nil {
		return "", err
	}

	raw, err := GenerateOpaqueToken()
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(s.cfg.ResetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, HashToken(raw), expiresAt); err != nil {
		return "", err
	}

	if s.notifier != nil {
		if err := s.notifier.SendPasswordReset(ctx, user.Email, raw); err != nil {
			s.logger.Warn("sending reset notification", "user_id", user.ID, "error", err)
		}
	}

	s.logger.Info("password reset requested", "user_id", user.ID)
	return raw, nil
}

// ResetPassword redeems a reset token and sets a new password.
//
// Unknown token => ErrTokenInvalid. Expired token => the reset state is
// cleared first, then ErrTokenExpired, so the same token can never be
// retried. Success updates the hash and clears the reset state in one
// atomic store call, then revokes the account's refresh token.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword, confirm string) error {
	user, err := s.users.GetByResetTokenHash(ctx, HashToken(rawToken))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrTokenInvalid
		}
		return err
	}

	if time.Now().After(user.ResetTokenExpiresAt) {
		if err := s.users.ClearResetToken(ctx, user.ID); err != nil {
			s.logger.Warn("clearing expired reset token", "error", err)
		}
		return ErrTokenExpired
	}

	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := s.users.ResetPassword(ctx, user.ID, hash); err != nil {
		return err
	}

	if err := s.tokens.DeleteAllForUser(ctx, user.ID); err != nil {
		s.logger.Warn("revoking sessions after password reset", "error", err)
	}

	s.logger.Info("password reset completed", "user_id", user.ID)
	return nil
}

// ListUsers returns all accounts. Admin only; the transport layer
// enforces the role gate.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.users.List(ctx)
}

// UpdateRole changes a user's role. Admins cannot change their own role,
// so a sole admin cannot lock everyone out.
func (s *Service) UpdateRole(ctx context.Context, actorUsername, targetID string, role Role) (*User, error) {
	if !IsValidUserRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrForbidden, role)
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if target.Username == NormaliseIdentifier(actorUsername) {
		return nil, ErrSelfModification
	}

	target.Role = role
	if err := s.users.Update(ctx, target); err != nil {
		return nil, err
	}

	s.logger.Info("role updated", "user_id", target.ID, "role", role, "actor", actorUsername)
	return target, nil
}

// ToggleStatus flips a user's active flag. Admins cannot toggle their
// own account. Deactivation revokes the target's refresh token.
func (s *Service) ToggleStatus(ctx context.Context, actorUsername, targetID string) (*User, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if target.Username == NormaliseIdentifier(actorUsername) {
		return nil, ErrSelfModification
	}

	target.IsActive = !target.IsActive
	if err := s.users.Update(ctx, target); err != nil {
		return nil, err
	}

	if !target.IsActive {
		if err := s.tokens.DeleteAllForUser(ctx, target.ID); err != nil {
			s.logger.Warn("revoking sessions after status toggle", "error", err)
		}
	}

	s.logger.Info("status toggled", "user_id", target.ID, "is_active", target.IsActive, "actor", actorUsername)
	return target, nil
}

// issueTokens mints an access token and rotates in a new refresh token.
func (s *Service) issueTokens(ctx context.Context, user *User) (*TokenPair, error) {
	access, err := GenerateAccessToken(user, s.cfg.JWTSecret, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}

	raw, err := GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	refresh := &RefreshToken{
		UserID:    user.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: time.Now().Add(s.cfg.RefreshTTL),
	}
	if err := s.tokens.Replace(ctx, refresh); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.AccessTTL.Seconds()),
	}, nil
}
