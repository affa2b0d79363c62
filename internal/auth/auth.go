// Package auth issues and verifies the bearer tokens of the HTTP API.
//
// Tokens are HS256 JWTs whose subject is the user id. With no secret configured
// the API runs unauthenticated as the local user.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lentoflow/lento/internal/errors"
)

const issuer = "lento"

type ctxKey string

const userIDKey ctxKey = "user_id"

// Authenticator signs and checks tokens with a shared secret.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New returns an Authenticator. An empty secret disables authentication.
func New(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Enabled reports whether requests must carry a token.
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// Issue returns a signed token for userID and its expiry.
func (a *Authenticator) Issue(userID string) (string, time.Time, error) {
	if !a.Enabled() {
		return "", time.Time{}, errors.NewInvalidRequest("jwt_secret is not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, errors.NewInvalidField("user", "is required")
	}
	now := a.now()
	exp := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, errors.NewInternal(err)
	}
	return signed, exp, nil
}

// Parse verifies a token and returns its user id.
func (a *Authenticator) Parse(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", errors.NewUnauthorized("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.NewUnauthorized("token has no subject")
	}
	return claims.Subject, nil
}

// Wrap authenticates requests before next. Failures go to fail, which writes
// the response. When authentication is disabled requests pass through without
// a user id.
func (a *Authenticator) Wrap(next http.Handler, fail func(http.ResponseWriter, *http.Request, error)) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			fail(w, r, errors.NewUnauthorized("missing bearer token"))
			return
		}
		userID, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// WithUserID returns ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(userIDKey).(string)
	return uid, ok && uid != ""
}
