package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ledgerly/auth-service/users"
	"github.com/pkg/errors"
)

// Pair is the access+refresh token pair returned to authenticated clients.
// RefreshToken is in the opaque "{id}.{secret}" wire format.
type Pair struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Introspection is the verified view of an access token.
type Introspection struct {
	Active bool     `json:"active"`
	Sub    string   `json:"sub,omitempty"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	Iat    int64    `json:"iat,omitempty"`
	Exp    int64    `json:"exp,omitempty"`
	JTI    string   `json:"jti,omitempty"`
}

// Manager issues signed access tokens and opaque refresh tokens, and owns
// refresh token persistence and rotation.
type Manager struct {
	refreshRepo        RefreshTokenRepo
	signer             Signer
	issuer             string
	audience           string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	nowFunc            func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry, refreshTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.refreshTokenExpiry = refreshTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithAudience(audience string) ManagerOption {
	return func(m *Manager) {
		m.audience = audience
	}
}

func New(refreshRepo RefreshTokenRepo, signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		refreshRepo: refreshRepo,
		signer:      signer,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = 15 * time.Minute
	}
	if m.refreshTokenExpiry == 0 {
		m.refreshTokenExpiry = 30 * 24 * time.Hour
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}

	return m
}

// IssueAccessToken creates a short-lived signed JWT carrying minimal claims.
func (m *Manager) IssueAccessToken(user *users.User) (string, time.Time, error) {
	now := m.nowFunc()
	expiresAt := now.Add(m.accessTokenExpiry)

	claims := jwt.MapClaims{
		"iss":   m.issuer,
		"aud":   m.audience,
		"sub":   user.ID,
		"email": user.Email,
		"roles": user.Roles,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
		"jti":   uuid.New().String(),
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "[Manager.IssueAccessToken] signer.Sign")
	}
	return signed, expiresAt, nil
}

// IssuePair creates and persists a refresh token for the user and pairs it
// with a fresh access token. The refresh record is durable before return.
func (m *Manager) IssuePair(user *users.User, client ClientContext) (*Pair, error) {
	accessToken, accessExpiry, err := m.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	rt, stored, err := m.newRefreshToken(user.ID, client)
	if err != nil {
		return nil, err
	}
	if err := m.refreshRepo.Upsert(stored); err != nil {
		return nil, errors.Wrap(err, "[Manager.IssuePair] refreshRepo.Upsert")
	}

	return &Pair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     rt.String(),
		RefreshExpiresAt: stored.ExpiresAt,
	}, nil
}

// RotatePair revokes the presented refresh token and issues its replacement
// in one repository transaction. The loser of a concurrent rotation observes
// ErrTokenRevoked.
func (m *Manager) RotatePair(oldID string, user *users.User, client ClientContext) (*Pair, error) {
	accessToken, accessExpiry, err := m.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	rt, stored, err := m.newRefreshToken(user.ID, client)
	if err != nil {
		return nil, err
	}
	if err := m.refreshRepo.Rotate(oldID, m.nowFunc(), stored); err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     rt.String(),
		RefreshExpiresAt: stored.ExpiresAt,
	}, nil
}

// Revoke invalidates a single refresh token by lookup id. Idempotent.
func (m *Manager) Revoke(lookupID string) error {
	return m.refreshRepo.Revoke(lookupID, m.nowFunc())
}

// RevokeAllForUser terminates every live refresh token for the user.
func (m *Manager) RevokeAllForUser(userID string) error {
	return m.refreshRepo.RevokeAllForUser(userID, m.nowFunc())
}

// Introspect parses and verifies an access token. An invalid or expired
// token yields Active=false rather than an error.
func (m *Manager) Introspect(rawToken string) (*Introspection, error) {
	if strings.TrimSpace(rawToken) == "" {
		return &Introspection{Active: false}, nil
	}

	parsed, err := jwt.Parse(rawToken, m.signer.GetVerificationKey, jwt.WithTimeFunc(m.nowFunc))
	if err != nil || !parsed.Valid {
		return &Introspection{Active: false}, nil
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return &Introspection{Active: false}, errors.New("[Manager.Introspect] error extracting claims")
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)
	jti, _ := claims["jti"].(string)

	var roles []string
	if claimRoles, ok := claims["roles"].([]interface{}); ok {
		roles = interfaceArrayToString(claimRoles)
	}

	return &Introspection{
		Active: true,
		Sub:    sub,
		Email:  email,
		Roles:  roles,
		Iat:    int64(iat),
		Exp:    int64(exp),
		JTI:    jti,
	}, nil
}

func (m *Manager) newRefreshToken(userID string, client ClientContext) (RefreshToken, *StoredRefreshToken, error) {
	rt, err := NewRefreshToken()
	if err != nil {
		return RefreshToken{}, nil, err
	}
	now := m.nowFunc()
	stored := &StoredRefreshToken{
		ID:         rt.LookupID,
		UserID:     userID,
		SecretHash: HashSecret(rt.Secret),
		IssuedAt:   now,
		ExpiresAt:  now.Add(m.refreshTokenExpiry),
		Client:     client,
	}
	return rt, stored, nil
}

func interfaceArrayToString(iArray []interface{}) []string {
	stringSlice := make([]string, 0)
	for _, v := range iArray {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}
