package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

const (
	lookupIDLength = 16 // bytes of entropy in the repository lookup id
	secretLength   = 32 // bytes of entropy in the secret half (256 bits)
)

// RefreshToken is the parsed form of the opaque wire format "{id}.{secret}".
// The lookup id is the repository key; the secret half is never stored in
// plaintext - only its hash, so a repository-read compromise does not yield
// usable tokens.
type RefreshToken struct {
	LookupID string
	Secret   string
}

// NewRefreshToken generates a fresh token with random id and secret halves.
func NewRefreshToken() (RefreshToken, error) {
	id := make([]byte, lookupIDLength)
	if _, err := rand.Read(id); err != nil {
		return RefreshToken{}, errors.Wrap(err, "[NewRefreshToken] rand.Read id")
	}
	secret := make([]byte, secretLength)
	if _, err := rand.Read(secret); err != nil {
		return RefreshToken{}, errors.Wrap(err, "[NewRefreshToken] rand.Read secret")
	}
	return RefreshToken{
		LookupID: hex.EncodeToString(id),
		Secret:   hex.EncodeToString(secret),
	}, nil
}

// ParseRefreshToken splits a wire token on its first "." separator.
func ParseRefreshToken(raw string) (RefreshToken, error) {
	id, secret, found := strings.Cut(raw, ".")
	if !found || id == "" || secret == "" {
		return RefreshToken{}, errors.New("[ParseRefreshToken] malformed refresh token")
	}
	return RefreshToken{LookupID: id, Secret: secret}, nil
}

// String renders the wire format sent to clients.
func (t RefreshToken) String() string {
	return t.LookupID + "." + t.Secret
}

// HashSecret returns the hex SHA-256 digest stored in place of the raw secret.
func HashSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}
