package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenMaker_RoundTrip(t *testing.T) {
	tm := NewTokenMaker("secret")

	tok, err := tm.New("ops", RoleAdmin, time.Hour)
	require.NoError(t, err)

	c, err := tm.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, "ops", c.Subject)
	require.Equal(t, RoleAdmin, c.Role)
	require.Equal(t, issuer, c.Issuer)
}

func TestTokenMaker_Rejects(t *testing.T) {
	tm := NewTokenMaker("secret")

	expired, err := tm.New("ops", RoleAdmin, -time.Minute)
	require.NoError(t, err)

	otherKey, err := NewTokenMaker("other").New("ops", RoleAdmin, time.Hour)
	require.NoError(t, err)

	foreign := &TokenMaker{secret: []byte("secret"), issuer: "someone-else"}
	wrongIssuer, err := foreign.New("ops", RoleAdmin, time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, Subject: "ops"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":      "not-a-jwt",
		"expired":      expired,
		"other key":    otherKey,
		"wrong issuer": wrongIssuer,
		"no expiry":    noExpiry,
		"wrong alg":    hs512,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tm.Parse(tok)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tm := NewTokenMaker("secret")
	admin, err := tm.New("ops", RoleAdmin, time.Hour)
	require.NoError(t, err)
	viewer, err := tm.New("guest", "viewer", time.Hour)
	require.NoError(t, err)

	var seen Claims
	h := RequireRole(tm, RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "invalid", header: "Bearer junk", want: http.StatusUnauthorized},
		{name: "wrong role", header: "Bearer " + viewer, want: http.StatusForbidden},
		{name: "admin", header: "Bearer " + admin, want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/products", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
		})
	}

	require.Equal(t, "ops", seen.Subject)
}
