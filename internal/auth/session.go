package auth

import (
	"errors"
	"time"

	"ideaboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Session cookie attributes.
const (
	SessionCookieName = "user_session"
	SessionMaxAge     = 7 * 24 * time.Hour
)

// SessionUser is the minimal profile stored in the session cookie.
type SessionUser struct {
	ID    uint        `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
}

// NewSessionUser projects a stored user onto its session profile.
func NewSessionUser(u *models.User) SessionUser {
	return SessionUser{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

type sessionClaims struct {
	User SessionUser `json:"user"`
	jwt.RegisteredClaims
}

// SessionCodec signs session profiles into cookie values and back.
// Sessions are stateless: the cookie is the session.
type SessionCodec struct {
	secret []byte
	clock  Clock
	secure bool
}

// NewSessionCodec creates a codec. secure controls the cookie Secure attribute.
func NewSessionCodec(secret string, clock Clock, secure bool) *SessionCodec {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SessionCodec{secret: []byte(secret), clock: clock, secure: secure}
}

// Encode signs the profile.
func (c *SessionCodec) Encode(u SessionUser) (string, error) {
	now := c.clock.Now()
	claims := sessionClaims{
		User: u,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionMaxAge)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies a cookie value and returns the profile.
func (c *SessionCodec) Decode(value string) (SessionUser, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return SessionUser{}, ErrInvalidToken
	}
	if claims.User.ID == 0 || !claims.User.Role.Valid() {
		return SessionUser{}, errors.New("invalid session payload")
	}
	return claims.User, nil
}

// Cookie builds the session cookie for u.
func (c *SessionCodec) Cookie(u SessionUser) (*fiber.Cookie, error) {
	value, err := c.Encode(u)
	if err != nil {
		return nil, err
	}
	return &fiber.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(SessionMaxAge / time.Second),
		HTTPOnly: true,
		Secure:   c.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}, nil
}

// ExpiredCookie returns a cookie that clears the session immediately.
func (c *SessionCodec) ExpiredCookie() *fiber.Cookie {
	return &fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   c.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
