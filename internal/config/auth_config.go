package config

import "time"

type AuthConfig interface {
	GetJWTSecret() string
	GetTokenIssuer() string
	GetTokenAudience() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetResetTokenExpiry() time.Duration
	GetVerificationTokenExpiry() time.Duration
	GetDebugTokensEnabled() bool
	GetTOTPIssuer() string
}

// Auth holds token issuance settings, captured once by NewAuth.
type Auth struct {
	jwtSecret   string
	issuer      string
	audience    string
	debugTokens bool
}

var _ AuthConfig = Auth{}

func NewAuth() Auth {
	env := GetEnv("ENV", "DEV")
	return Auth{
		jwtSecret: GetEnv("JWT_SECRET", "dev-only-insecure-secret"),
		issuer:    GetEnv("TOKEN_ISSUER", "ledgerly-auth"),
		audience:  GetEnv("TOKEN_AUDIENCE", "ledgerly-dashboard"),
		// Debug tokens are a test/dev convenience and must never be enabled
		// in production regardless of the env var.
		debugTokens: GetEnv("DEBUG_TOKENS", "") == "true" && env != "PROD" && env != "production",
	}
}

func (a Auth) GetJWTSecret() string {
	return a.jwtSecret
}

func (a Auth) GetTokenIssuer() string {
	return a.issuer
}

func (a Auth) GetTokenAudience() string {
	return a.audience
}

func (Auth) GetAccessTokenExpiry() time.Duration {
	return 15 * time.Minute
}

func (Auth) GetRefreshTokenExpiry() time.Duration {
	return 30 * 24 * time.Hour
}

func (Auth) GetResetTokenExpiry() time.Duration {
	return time.Hour
}

func (Auth) GetVerificationTokenExpiry() time.Duration {
	return 24 * time.Hour
}

func (a Auth) GetDebugTokensEnabled() bool {
	return a.debugTokens
}

func (Auth) GetTOTPIssuer() string {
	return "Ledgerly"
}
