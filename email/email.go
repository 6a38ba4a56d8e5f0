// Package email dispatches transactional auth emails. Delivery is
// best-effort from the auth service's point of view: a failed send is
// reported to the caller, who logs it and lets the auth operation succeed.
package email

import (
	"context"

	"github.com/ledgerly/auth-service/users"
)

// Sender dispatches the two transactional messages the auth flows need. The
// token value must reach the message body; everything else is presentation.
type Sender interface {
	SendVerificationEmail(ctx context.Context, user *users.User, token string) error
	SendPasswordResetEmail(ctx context.Context, user *users.User, token string) error
}
