// Package session issues and verifies the application's own bearer tokens.
// A session token proves identity to this service only; it is unrelated to
// the provider credential and outlives provider-side revocation.
package session

import (
	"time"

	"github.com/NikitaN05/youtube-companion-dashboard/internal/errors"
	"github.com/NikitaN05/youtube-companion-dashboard/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long a session stays valid when no TTL is configured.
const DefaultTTL = 7 * 24 * time.Hour

// Claims is the payload carried inside a session token.
type Claims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	SubjectID string `json:"sub_id"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration

	// now is a test hook.
	now func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates an Issuer. The secret must be non-empty; session
// signing with a guessable key is a deployment error, not a runtime one.
func NewIssuer(secret []byte, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, &errors.ErrConfiguration{Setting: "session.signing_secret", Reason: "must not be empty"}
	}
	i := &Issuer{
		secret: secret,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs a session token for the user.
func (i *Issuer) Issue(user *models.User) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:    user.ID,
		Email:     user.Email,
		SubjectID: user.SubjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", &errors.ErrConfiguration{Setting: "session.signing_secret", Reason: err.Error()}
	}
	return signed, nil
}

// Verify parses and validates a session token, returning its claims.
// Failures classify as Expired, InvalidSignature, or Malformed.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, &errors.ErrInvalidSignature{}
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, &errors.ErrMalformed{Reason: "token is not valid"}
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &errors.ErrExpired{}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &errors.ErrInvalidSignature{}
	default:
		return &errors.ErrMalformed{Reason: err.Error()}
	}
}
