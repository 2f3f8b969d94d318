package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = time.Hour

// ErrInvalidToken is returned for any token that fails verification.
// Callers never learn whether the token was expired, forged or malformed.
var ErrInvalidToken = errors.New("invalid token")

// TokenSigner mints and verifies expiring bearer tokens for a subject.
type TokenSigner interface {
	Sign(subject string, ttl time.Duration) (string, error)
	Verify(token string) (string, error)
}

// JWTSigner signs HS256 JWTs carrying {sub, iat, exp}.
type JWTSigner struct {
	secret []byte
	clock  Clock
}

// NewJWTSigner creates a signer. A nil clock uses the system clock.
func NewJWTSigner(secret string, clock Clock) *JWTSigner {
	if clock == nil {
		clock = SystemClock{}
	}
	return &JWTSigner{secret: []byte(secret), clock: clock}
}

// Sign issues a token for subject that expires after ttl.
func (s *JWTSigner) Sign(subject string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("token secret not configured")
	}
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify returns the token subject, or ErrInvalidToken.
func (s *JWTSigner) Verify(token string) (string, error) {
	if len(s.secret) == 0 || token == "" {
		return "", ErrInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
