package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer abstracts the access-token signing scheme so the Manager never
// touches key material directly.
type Signer interface {
	// Sign produces a compact serialized JWT over the claims.
	Sign(claims jwt.MapClaims) (string, error)

	// GetVerificationKey is a jwt.Keyfunc: it rejects tokens whose header
	// declares a different algorithm before handing back the key.
	GetVerificationKey(token *jwt.Token) (any, error)

	// GetSigningMethod reports the algorithm tokens are signed with.
	GetSigningMethod() jwt.SigningMethod
}

// HMACSigner signs access tokens with HMAC-SHA256. The same secret signs
// and verifies, so it must never leave the service.
type HMACSigner struct {
	secret []byte
}

func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{secret: []byte(secret)}
}

func (h *HMACSigner) Sign(claims jwt.MapClaims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "[HMACSigner.Sign] SignedString")
	}
	return signed, nil
}

// GetVerificationKey refuses any non-HMAC algorithm so a token cannot
// downgrade verification by declaring alg=none or an asymmetric scheme.
func (h *HMACSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("[HMACSigner.GetVerificationKey] unexpected signing method %v", token.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACSigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}
