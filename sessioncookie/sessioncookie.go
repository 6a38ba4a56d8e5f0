// Package sessioncookie implements the self-contained session descriptor
// carried in an edge cookie. The server keeps no session table: a session is
// valid exactly when its cookie parses and its expiry is in the future, so
// every parse re-validates the full shape before trusting it.
package sessioncookie

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// CookieName is the fixed session cookie name.
const CookieName = "ledgerly_session"

// Version is the only payload version currently understood. The field exists
// for forward compatibility.
const Version = 1

// DefaultTTL is the session lifetime used when the caller supplies no expiry.
const DefaultTTL = 30 * time.Minute

// Session kinds.
const (
	KindAuthenticated = "authenticated"
	KindDemo          = "demo"
)

// UserSnapshot is the subset of the user record embedded in the cookie.
type UserSnapshot struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	Roles       []string `json:"roles"`
	AvatarURL   string   `json:"avatarUrl,omitempty"`
}

// Metadata carries optional session flags.
type Metadata struct {
	IsTwoFactorEnrolled bool     `json:"isTwoFactorEnrolled,omitempty"`
	FeatureFlags        []string `json:"featureFlags,omitempty"`
}

// Payload is the session descriptor. IssuedAt and ExpiresAt are ISO-8601
// strings so the payload round-trips byte-exactly through serialization.
type Payload struct {
	Version   int          `json:"version"`
	Kind      string       `json:"kind"`
	User      UserSnapshot `json:"user"`
	IssuedAt  string       `json:"issuedAt"`
	ExpiresAt string       `json:"expiresAt"`
	Metadata  *Metadata    `json:"metadata,omitempty"`
}

// Codec creates, serializes and parses session payloads.
type Codec struct {
	ttl     time.Duration
	nowFunc func() time.Time
}

type CodecOption func(*Codec)

// WithTTL overrides the default session lifetime.
func WithTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		c.ttl = ttl
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

func NewCodec(options ...CodecOption) *Codec {
	c := &Codec{
		ttl:     DefaultTTL,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// PayloadInput is the caller-supplied portion of a new payload. IssuedAt and
// ExpiresAt default to now and now+TTL when zero.
type PayloadInput struct {
	Kind      string
	User      UserSnapshot
	IssuedAt  time.Time
	ExpiresAt time.Time
	Metadata  *Metadata
}

// NewPayload builds a fully-populated, validated payload from the input.
func (c *Codec) NewPayload(input PayloadInput) (*Payload, error) {
	issuedAt := input.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = c.nowFunc()
	}
	expiresAt := input.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = issuedAt.Add(c.ttl)
	}

	p := &Payload{
		Version:   Version,
		Kind:      input.Kind,
		User:      input.User,
		IssuedAt:  issuedAt.UTC().Format(time.RFC3339),
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		Metadata:  input.Metadata,
	}

	if err := validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Serialize validates the payload and renders it as URL-encoded JSON, the
// wire form stored in the cookie. Round-trips exactly through Parse.
func (c *Codec) Serialize(p *Payload) (string, error) {
	if err := validate(p); err != nil {
		return "", err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "[Codec.Serialize] json.Marshal")
	}
	return url.QueryEscape(string(data)), nil
}

// Parse decodes a raw cookie value. It returns nil - never an error - for
// missing input, malformed encoding, a schema-invalid shape, or an expired
// payload. An unparsable or past expiry is equivalent to no session.
func (c *Codec) Parse(raw string) *Payload {
	if raw == "" {
		return nil
	}

	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return nil
	}

	var p Payload
	if err := json.Unmarshal([]byte(decoded), &p); err != nil {
		return nil
	}

	if err := validate(&p); err != nil {
		return nil
	}

	expiresAt, err := time.Parse(time.RFC3339, p.ExpiresAt)
	if err != nil {
		return nil
	}
	if !c.nowFunc().Before(expiresAt) {
		return nil
	}

	return &p
}

// MaxAgeSeconds returns the remaining payload lifetime in whole seconds,
// clamped to zero when expired or unparsable.
func (c *Codec) MaxAgeSeconds(p *Payload) int {
	expiresAt, err := time.Parse(time.RFC3339, p.ExpiresAt)
	if err != nil {
		return 0
	}

	remaining := expiresAt.Sub(c.nowFunc())
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds())
}

func validate(p *Payload) error {
	if p.Version != Version {
		return errors.Errorf("[sessioncookie validate] unsupported version %d", p.Version)
	}
	if p.Kind != KindAuthenticated && p.Kind != KindDemo {
		return errors.Errorf("[sessioncookie validate] unknown kind %q", p.Kind)
	}
	if p.User.ID == "" || p.User.Email == "" {
		return errors.New("[sessioncookie validate] user snapshot incomplete")
	}
	if _, err := time.Parse(time.RFC3339, p.IssuedAt); err != nil {
		return errors.Wrap(err, "[sessioncookie validate] issuedAt")
	}
	if _, err := time.Parse(time.RFC3339, p.ExpiresAt); err != nil {
		return errors.Wrap(err, "[sessioncookie validate] expiresAt")
	}
	return nil
}
