// Package twofactor implements time-based one-time codes and one-time backup
// codes for the two-factor challenge flow.
package twofactor

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Standard TOTP parameters: 30 second period, six digits, SHA-1, one period
// of clock drift tolerated on either side.
const (
	totpPeriod     = 30
	totpSkew       = 1
	totpSecretSize = 20
)

var (
	ErrInvalidCode = errors.New("invalid two-factor code")
	ErrCodeUsed    = errors.New("backup code already used")
)

// Verifier generates and validates TOTP credentials.
type Verifier struct {
	issuer  string
	nowFunc func() time.Time
}

type VerifierOption func(*Verifier)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.nowFunc = now
	}
}

// NewVerifier creates a Verifier. issuer is the name shown in authenticator
// apps for enrolled accounts.
func NewVerifier(issuer string, options ...VerifierOption) *Verifier {
	v := &Verifier{
		issuer:  issuer,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// GenerateSecret creates a new TOTP secret for enrollment, returning the
// base32 secret and the otpauth:// provisioning URL.
func (v *Verifier) GenerateSecret(accountName string) (string, string, error) {
	if strings.TrimSpace(accountName) == "" {
		return "", "", errors.New("[Verifier.GenerateSecret] account name is required")
	}
	if strings.Contains(accountName, ":") {
		return "", "", errors.New("[Verifier.GenerateSecret] account name cannot contain a colon")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      v.issuer,
		AccountName: accountName,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		SecretSize:  totpSecretSize,
	})
	if err != nil {
		return "", "", errors.Wrap(err, "[Verifier.GenerateSecret] totp.Generate")
	}

	return key.Secret(), key.URL(), nil
}

// ValidateCode checks a submitted TOTP code against the stored secret. The
// all-zeros sentinel is rejected before any cryptographic check.
func (v *Verifier) ValidateCode(secretBase32, code string) (bool, error) {
	if strings.TrimSpace(secretBase32) == "" {
		return false, errors.New("[Verifier.ValidateCode] secret is required")
	}
	if IsSentinelCode(code) {
		return false, nil
	}

	valid, err := totp.ValidateCustom(code, secretBase32, v.nowFunc().UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		// Malformed codes and other validation errors are a plain mismatch
		// to the caller.
		return false, nil
	}

	return valid, nil
}

// IsSentinelCode reports whether the submission is an obviously-invalid
// all-zeros value. Such codes are rejected even if a naive check would pass.
func IsSentinelCode(code string) bool {
	if code == "" {
		return true
	}
	for _, r := range code {
		if r != '0' {
			return false
		}
	}
	return true
}
