package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestWrapDoesNotMutateSentinel(t *testing.T) {
	cause := fmt.Errorf("db down")
	wrapped := ErrInternalServer.Wrap(cause)

	assert.Nil(t, ErrInternalServer.Err)
	assert.ErrorIs(t, wrapped, cause)
	assert.ErrorIs(t, wrapped, ErrInternalServer)
}

func TestFrom(t *testing.T) {
	t.Run("app error passes through wrapping", func(t *testing.T) {
		err := fmt.Errorf("signup: %w", ErrEmailInUse)
		assert.Equal(t, http.StatusConflict, From(err).Code)
	})

	t.Run("unknown error becomes generic 500", func(t *testing.T) {
		appErr := From(stderrors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, appErr.Code)
		assert.Equal(t, ErrInternalServer.Message, appErr.Message)
	})
}

func TestErrorMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(ErrorMiddleware())
	r.GET("/missing", func(c *gin.Context) { _ = c.Error(NotFound("Product not found")) })
	r.GET("/written", func(c *gin.Context) {
		_ = c.Error(stderrors.New("ignored"))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Product not found"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
