package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/lentoflow/lento/internal/errors"
)

func TestIssueAndParse(t *testing.T) {
	a := New("s3cret", time.Hour)

	token, exp, err := a.Issue("alice")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	uid, err := a.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "alice", uid)
}

func TestParse_Rejects(t *testing.T) {
	a := New("s3cret", time.Hour)
	good, _, err := a.Issue("alice")
	require.NoError(t, err)

	expired := New("s3cret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue("alice")
	require.NoError(t, err)

	otherKey, _, err := New("other", time.Hour).Issue("alice")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer: issuer, Subject: "alice", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":   "not-a-token",
		"expired":   old,
		"wrong key": otherKey,
		"alg none":  none,
		"truncated": good[:len(good)-4],
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := a.Parse(tok)
			require.True(t, errors.Is(err, errors.ErrUnauthorized), "got %v", err)
		})
	}
}

func TestIssue_Disabled(t *testing.T) {
	a := New("", time.Hour)
	require.False(t, a.Enabled())
	_, _, err := a.Issue("alice")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestWrap(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	fail := func(w http.ResponseWriter, _ *http.Request, err error) {
		le, _ := errors.As(err)
		w.WriteHeader(le.Status)
	}

	a := New("s3cret", time.Hour)
	h := a.Wrap(next, fail)
	token, _, err := a.Issue("bob")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/today", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "bob", seen)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/today", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Disabled: pass through with no user.
	seen = "unset"
	rec = httptest.NewRecorder()
	New("", time.Hour).Wrap(next, fail).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "", seen)
}
