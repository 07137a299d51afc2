// guard/session.go
package guard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the part of an identity-provider session the guard inspects.
type Session struct {
	Email string
}

// SessionProvider returns the current session of r, or nil when there is none.
type SessionProvider interface {
	Session(ctx context.Context, r *http.Request) (*Session, error)
}

// SessionFunc adapts a function to SessionProvider.
type SessionFunc func(ctx context.Context, r *http.Request) (*Session, error)

// Session implements SessionProvider.
func (f SessionFunc) Session(ctx context.Context, r *http.Request) (*Session, error) {
	return f(ctx, r)
}

// AccessTokenCookie is the cookie Supabase clients store the access token in.
const AccessTokenCookie = "sb-access-token"

// ErrNoSecret is returned by NewJWTSessions without a signing secret.
var ErrNoSecret = errors.New("guard: jwt secret is required")

// JWTSessions reads Supabase-style HS256 access tokens from the
// Authorization header or the access-token cookie.
type JWTSessions struct {
	secret []byte
	cookie string
}

// NewJWTSessions creates a provider verifying tokens with secret.
func NewJWTSessions(secret string) (*JWTSessions, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &JWTSessions{secret: []byte(secret), cookie: AccessTokenCookie}, nil
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Session implements SessionProvider. A request without a token has no
// session; a token that fails verification is an error.
func (s *JWTSessions) Session(_ context.Context, r *http.Request) (*Session, error) {
	raw := s.token(r)
	if raw == "" {
		return nil, nil
	}

	token, err := jwt.ParseWithClaims(raw, &accessClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return &Session{Email: claims.Email}, nil
}

func (s *JWTSessions) token(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(s.cookie); err == nil {
		return c.Value
	}
	return ""
}
