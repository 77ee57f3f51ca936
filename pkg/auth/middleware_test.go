package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r)
		w.WriteHeader(http.StatusOK)
		if claims != nil {
			_, _ = w.Write([]byte(claims.Subject))
		}
	})
}

func TestHTTPMiddlewareRejectsMissingHeader(t *testing.T) {
	validator, _, _, _ := setupTestValidator(t)
	handler := validator.HTTPMiddleware(nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPMiddlewareRejectsMalformedHeader(t *testing.T) {
	validator, _, _, _ := setupTestValidator(t)
	handler := validator.HTTPMiddleware(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPMiddlewareAcceptsValidToken(t *testing.T) {
	validator, privateKey, issuer, audience := setupTestValidator(t)
	handler := validator.HTTPMiddleware(nil)(okHandler())

	tokenString := createTestJWT(t, privateKey, issuer, audience, "user-42", nil)
	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-42", rec.Body.String())
}

func TestHTTPMiddlewareSkipsExcludedPaths(t *testing.T) {
	validator, _, _, _ := setupTestValidator(t)
	handler := validator.HTTPMiddleware([]string{"/health"})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	validator, privateKey, issuer, audience := setupTestValidator(t)
	handler := validator.HTTPMiddleware(nil)(RequireRole("admin")(okHandler()))

	adminToken := createTestJWT(t, privateKey, issuer, audience, "user-1", map[string]any{"role": "admin"})
	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	memberToken := createTestJWT(t, privateKey, issuer, audience, "user-2", map[string]any{"role": "member"})
	req = httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.Header.Set("Authorization", "Bearer "+memberToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
