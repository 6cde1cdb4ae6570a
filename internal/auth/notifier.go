package auth

import (
	"context"
	"log/slog"
)

// LogNotifier is a development Notifier that logs reset tokens instead of
// delivering them. Production deployments swap in a mail-backed
// implementation; the service does not care which.
type LogNotifier struct {
	Logger *slog.Logger
}

// SendPasswordReset logs the reset token at warn level so it stands out
// in development output.
func (n *LogNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	n.Logger.Warn("password reset token issued",
		"email", email,
		"token", token,
		"note", "configure a mail notifier for production",
	)
	return nil
}
