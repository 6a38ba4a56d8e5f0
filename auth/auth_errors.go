package auth

import "errors"

var (
	// ErrEmailInUse is returned by Signup when the address is already
	// registered.
	ErrEmailInUse = errors.New("email already registered")

	// ErrTermsNotAccepted is returned by Signup when the terms checkbox was
	// not accepted.
	ErrTermsNotAccepted = errors.New("terms of service not accepted")

	// ErrWeakPassword wraps the password strength detail so handlers can map
	// it to a client error.
	ErrWeakPassword = errors.New("password does not meet requirements")

	// ErrInvalidCredentials covers both unknown email and wrong password so
	// callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountSuspended is deliberately distinct from invalid credentials
	// and blocks both login and refresh.
	ErrAccountSuspended = errors.New("account suspended, contact support")

	// ErrInvalidToken covers missing, expired, revoked and already-consumed
	// tokens without revealing which applied.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInvalidChallenge is returned when a two-factor challenge id is
	// unknown or has timed out.
	ErrInvalidChallenge = errors.New("invalid or expired two-factor challenge")

	// ErrInvalidTwoFactorCode is returned for a wrong, reused or sentinel
	// two-factor submission.
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")
)
