package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

const testSecret = "test-secret"

func testUser() *models.User {
	return &models.User{ID: "user-1", Email: "u@example.com", Role: models.RoleSeller}
}

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(testUser(), testSecret, time.Hour)
	require.NoError(t, err)

	principal, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", principal.UserID)
	assert.Equal(t, models.RoleSeller, principal.Role)
	assert.False(t, principal.IsAdmin())
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := IssueToken(testUser(), testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := IssueToken(testUser(), testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Error(t, err)
}

func TestParseTokenRejectsEmpty(t *testing.T) {
	_, err := ParseToken("", testSecret)
	assert.Error(t, err)
}

func TestExtractTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/order/my", nil)
	r.Header.Set("Authorization", "Bearer abc123")

	token, err := ExtractTokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	// EventSource clients pass the token as a query parameter
	r = httptest.NewRequest(http.MethodGet, "/api/order/events?token=qp456", nil)
	token, err = ExtractTokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "qp456", token)

	// Malformed header
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "abc123")
	_, err = ExtractTokenFromRequest(r)
	assert.Error(t, err)

	// Nothing at all
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = ExtractTokenFromRequest(r)
	assert.Error(t, err)
}

func TestMiddlewarePlacesPrincipalInContext(t *testing.T) {
	token, err := IssueToken(testUser(), testSecret, time.Hour)
	require.NoError(t, err)

	var seen Principal
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, ok = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := Middleware(testSecret)(next)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, ok)
	assert.Equal(t, "user-1", seen.UserID)
	assert.Equal(t, models.RoleSeller, seen.Role)
}

func TestMiddlewareRejectsMissingAndInvalidTokens(t *testing.T) {
	handler := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a valid token")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
