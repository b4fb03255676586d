package httpapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

const cookieIssuer = "go-credentials"

// ErrInvalidSessionCookie is returned when a session cookie fails verification.
var ErrInvalidSessionCookie = goerrors.New("invalid session cookie", goerrors.CategoryAuth).
	WithTextCode("INVALID_SESSION_COOKIE").
	WithCode(goerrors.CodeUnauthorized)

// CookieSigner signs session ids into HS256 JWTs so clients cannot forge or
// extend a session key.
type CookieSigner struct {
	key []byte
	now func() time.Time
}

// NewCookieSigner returns a signer using key.
func NewCookieSigner(key []byte) *CookieSigner {
	return &CookieSigner{key: key, now: time.Now}
}

// Sign returns a token carrying sid that expires after ttl.
func (s *CookieSigner) Sign(sid string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        sid,
		Issuer:    cookieIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session cookie")
	}
	return signed, nil
}

// Parse verifies token and returns the session id it carries.
func (s *CookieSigner) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.ID == "" {
		return "", ErrInvalidSessionCookie
	}
	return claims.ID, nil
}
