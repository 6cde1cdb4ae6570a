// Package auth provides authentication and authorisation for Customer Core.
//
// It implements a 2-tier role model (user → admin) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Short-lived HS256 JWT access tokens carrying username and role
//   - Opaque refresh tokens stored hashed, one live token per account
//   - Self-service password recovery via single-use reset tokens
//   - Account lifecycle: registration, profile updates, deactivation
//
// Login is enumeration-resistant: an unknown username burns a decoy
// password verification so its timing and error shape match a wrong
// password. Accounts are never hard-deleted; deactivation clears the
// active flag and revokes the account's refresh token.
package auth
