package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func protectedHandler(t *testing.T, gotSubject *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotSubject = GetSubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_RequireAuth(t *testing.T) {
	mw := NewAuthMiddleware(testSecret, zap.NewNop())

	t.Run("valid token passes and exposes subject", func(t *testing.T) {
		var subject string
		handler := mw.RequireAuth(protectedHandler(t, &subject))

		token := signToken(t, testSecret, jwt.RegisteredClaims{
			Subject:   "caller-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/budget", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "caller-1", subject)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		var subject string
		handler := mw.RequireAuth(protectedHandler(t, &subject))

		req := httptest.NewRequest(http.MethodGet, "/v1/budget", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		var subject string
		handler := mw.RequireAuth(protectedHandler(t, &subject))

		token := signToken(t, testSecret, jwt.RegisteredClaims{
			Subject:   "caller-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/budget", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		var subject string
		handler := mw.RequireAuth(protectedHandler(t, &subject))

		token := signToken(t, "another-secret", jwt.RegisteredClaims{
			Subject:   "caller-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/budget", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		var subject string
		handler := mw.RequireAuth(protectedHandler(t, &subject))

		req := httptest.NewRequest(http.MethodGet, "/v1/budget", nil)
		req.Header.Set("Authorization", "Token abc123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestExtractBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Empty(t, extractBearerToken(req))

	req.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", extractBearerToken(req))

	req.Header.Set("Authorization", "bearer xyz")
	assert.Equal(t, "xyz", extractBearerToken(req))
}
