package controllers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/pawmart/backend/services/storefront/middleware"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// signedIn stands in for RequireAuth.
func signedIn(userID, email, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.EmailKey, email)
		c.Set(middleware.RoleKey, role)
		c.Next()
	}
}

func customer() gin.HandlerFunc {
	return signedIn("U1", "pat@example.com", models.RoleCustomer)
}

func admin() gin.HandlerFunc {
	return signedIn("A1", "admin@example.com", models.RoleAdmin)
}

func perform(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, req)
	return recorder
}
