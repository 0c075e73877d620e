package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashrajoria/pawmart/backend/services/common/auth"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

func newIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer("test-secret", time.Minute, time.Hour)
	require.NoError(t, err)
	return issuer
}

func whoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": UserID(c), "role": Role(c), "email": Email(c)})
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := newIssuer(t)
	pair, err := issuer.Issue("U1", "ana@example.com", models.RoleCustomer)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", RequireAuth(issuer), whoami)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		body   string
	}{
		{"no token", func(r *http.Request) {}, http.StatusUnauthorized, "Authentication required"},
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+pair.AccessToken) }, http.StatusOK, `"user_id":"U1"`},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: pair.AccessToken}) }, http.StatusOK, `"email":"ana@example.com"`},
		{"refresh token is not an access token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+pair.RefreshToken) }, http.StatusUnauthorized, "Invalid or expired token"},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc.def.ghi") }, http.StatusUnauthorized, "Invalid or expired token"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.body)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := newIssuer(t)
	pair, err := issuer.Issue("U1", "ana@example.com", models.RoleCustomer)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/cart", OptionalAuth(issuer), whoami)

	t.Run("Guest", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"user_id":""`)
	})

	t.Run("Invalid token is ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"user_id":""`)
	})

	t.Run("Signed in", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Contains(t, rec.Body.String(), `"user_id":"U1"`)
	})
}

func TestAdminOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := newIssuer(t)
	router := gin.New()
	router.GET("/admin", RequireAuth(issuer), AdminOnly(), whoami)

	for role, status := range map[string]int{models.RoleCustomer: http.StatusForbidden, models.RoleAdmin: http.StatusOK} {
		t.Run(role, func(t *testing.T) {
			pair, err := issuer.Issue("U1", "ana@example.com", role)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, status, rec.Code)
		})
	}
}
