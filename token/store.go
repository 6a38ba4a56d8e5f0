package token

import (
	"errors"
	"time"
)

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenRevoked  = errors.New("token already revoked")
	ErrTokenConsumed = errors.New("token already consumed")
)

// ClientContext captures where a token was issued from.
type ClientContext struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// StoredRefreshToken is the server-side record of an issued refresh token,
// keyed by the lookup id half of the wire token. The secret half is stored
// only as a SHA-256 hash.
type StoredRefreshToken struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	SecretHash        string     `json:"secret_hash"`
	IssuedAt          time.Time  `json:"issued_at"`
	ExpiresAt         time.Time  `json:"expires_at"`
	RevokedAt         *time.Time `json:"revoked_at,omitempty"`
	ReplacedByTokenID string     `json:"replaced_by_token_id,omitempty"` // rotation chain link
	Client            ClientContext
}

func (t *StoredRefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

func (t *StoredRefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// RefreshTokenRepo manages server-side refresh token records. All writes are
// durable before the call returns.
type RefreshTokenRepo interface {
	Upsert(token *StoredRefreshToken) error
	Get(id string) (*StoredRefreshToken, error)

	// Revoke sets RevokedAt. Revoking an already-revoked token is a no-op.
	Revoke(id string, now time.Time) error

	// Rotate atomically revokes the old token and inserts its replacement,
	// linking the chain via ReplacedByTokenID. If the old token is already
	// revoked the rotation fails with ErrTokenRevoked and nothing is written:
	// two concurrent rotations of one token produce exactly one winner.
	Rotate(oldID string, now time.Time, next *StoredRefreshToken) error

	// RevokeAllForUser terminates every live token belonging to the user.
	RevokeAllForUser(userID string, now time.Time) error

	List(offset, limit int) ([]*StoredRefreshToken, error)
}

// SingleUseToken is a short-lived token consumable exactly once. Password
// reset and email verification tokens share this shape.
type SingleUseToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

func (t *SingleUseToken) Consumed() bool {
	return t.ConsumedAt != nil
}

func (t *SingleUseToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// SingleUseTokenRepo manages single-use tokens keyed by their opaque id.
type SingleUseTokenRepo interface {
	Create(token *SingleUseToken) error
	Get(id string) (*SingleUseToken, error)

	// Consume marks the token used iff it is unconsumed. A second consume of
	// the same token fails with ErrTokenConsumed.
	Consume(id string, now time.Time) (*SingleUseToken, error)
}
