package email

import (
	"context"

	"github.com/ledgerly/auth-service/users"
	"github.com/rs/zerolog/log"
)

// LogSender writes outgoing messages to the log instead of delivering them.
// Used in development when no SMTP relay is configured.
type LogSender struct{}

var _ Sender = LogSender{}

func (LogSender) SendVerificationEmail(ctx context.Context, user *users.User, token string) error {
	log.Info().
		Str("email", user.Email).
		Str("token", token).
		Msg("verification email (log sender)")
	return nil
}

func (LogSender) SendPasswordResetEmail(ctx context.Context, user *users.User, token string) error {
	log.Info().
		Str("email", user.Email).
		Str("token", token).
		Msg("password reset email (log sender)")
	return nil
}
