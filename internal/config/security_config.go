package config

import "time"

type SecurityConfig interface {
	GetSessionTTL() time.Duration
	GetCsrfTTL() time.Duration
	GetProtectedPrefixes() []string
	GetAuthPages() []string
	GetDefaultLandingPath() string
	GetLoginPath() string
}

// Security holds the edge-middleware policy knobs.
type Security struct{}

var _ SecurityConfig = Security{}

func NewSecurity() Security {
	return Security{}
}

func (Security) GetSessionTTL() time.Duration {
	return 30 * time.Minute // Sessions expire after 30 minutes
}

func (Security) GetCsrfTTL() time.Duration {
	return 24 * time.Hour
}

// GetProtectedPrefixes lists path prefixes that require a valid session.
func (Security) GetProtectedPrefixes() []string {
	return []string{"/dashboard", "/budgets", "/bills", "/goals", "/transactions", "/settings", "/api/me"}
}

// GetAuthPages lists pages a signed-in user should be bounced away from.
func (Security) GetAuthPages() []string {
	return []string{"/login", "/signup", "/forgot-password", "/two-factor"}
}

func (Security) GetDefaultLandingPath() string {
	return "/dashboard"
}

func (Security) GetLoginPath() string {
	return "/login"
}
