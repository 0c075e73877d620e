package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/storefront/cart"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/repository"
)

type MockProductLookup struct {
	mock.Mock
}

func (m *MockProductLookup) Get(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

type cartFixture struct {
	products *MockProductLookup
	carts    *repository.CartRepository
	router   *gin.Engine
	guest    *gin.Engine
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &cartFixture{
		products: new(MockProductLookup),
		carts:    repository.NewCartRepository(client, time.Hour),
	}
	cc := NewCartController(cart.NewRegistry(f.carts, zap.NewNop()), f.products)

	routes := func(r *gin.Engine) {
		r.GET("/cart", cc.View)
		r.POST("/cart", cc.Add)
		r.POST("/cart/:productId/increment", cc.Increment)
		r.POST("/cart/:productId/decrement", cc.Decrement)
		r.DELETE("/cart/:productId", cc.Remove)
		r.DELETE("/cart", cc.Clear)
	}
	f.router = gin.New()
	f.router.Use(customer())
	routes(f.router)
	f.guest = gin.New()
	routes(f.guest)
	return f
}

func decodeCart(t *testing.T, body []byte) models.CartView {
	t.Helper()
	var view models.CartView
	require.NoError(t, json.Unmarshal(body, &view))
	return view
}

func kibble() *models.Product {
	return &models.Product{ID: "P1", Title: "Kibble", Price: models.Cents(1250), Category: "dogs", Stock: 10}
}

func TestCartController_Add(t *testing.T) {
	t.Run("Success - uses the catalog price", func(t *testing.T) {
		// Arrange
		f := newCartFixture(t)
		f.products.On("Get", mock.Anything, "P1").Return(kibble(), nil).Once()

		// Act
		rec := perform(t, f.router, http.MethodPost, "/cart", `{"product_id":"P1","quantity":2,"price":0.01}`)

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
		view := decodeCart(t, rec.Body.Bytes())
		require.Len(t, view.Items, 1)
		assert.Equal(t, models.Cents(1250), view.Items[0].Price)
		assert.Equal(t, 2, view.Count)
		assert.Equal(t, models.Cents(2500), view.Total)

		stored, err := f.carts.Load(context.Background(), "U1")
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, 2, stored[0].Quantity)
		f.products.AssertExpectations(t)
	})

	t.Run("Failure - Unknown Product - 404 Not Found", func(t *testing.T) {
		// Arrange
		f := newCartFixture(t)
		f.products.On("Get", mock.Anything, "nope").Return(nil, apperrors.NotFound("Product not found")).Once()

		// Act
		rec := perform(t, f.router, http.MethodPost, "/cart", `{"product_id":"nope"}`)

		// Assert
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Product not found")
	})

	t.Run("Failure - Missing Product Id - 400 Bad Request", func(t *testing.T) {
		// Arrange
		f := newCartFixture(t)

		// Act
		rec := perform(t, f.router, http.MethodPost, "/cart", `{"quantity":1}`)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.products.AssertNotCalled(t, "Get")
	})

	t.Run("Failure - Quantity Out Of Range - 400 Bad Request", func(t *testing.T) {
		for _, body := range []string{
			`{"product_id":"P1","quantity":100}`,
			`{"product_id":"P1","quantity":9223372036854775807}`,
			`{"product_id":"P1","quantity":-1}`,
		} {
			// Arrange
			f := newCartFixture(t)

			// Act
			rec := perform(t, f.router, http.MethodPost, "/cart", body)

			// Assert
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
			f.products.AssertNotCalled(t, "Get")
		}
	})

	t.Run("Guest - ignored", func(t *testing.T) {
		// Arrange
		f := newCartFixture(t)

		// Act
		rec := perform(t, f.guest, http.MethodPost, "/cart", `{"product_id":"P1"}`)

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
		view := decodeCart(t, rec.Body.Bytes())
		assert.Empty(t, view.Items)
		assert.Equal(t, 0, view.Count)
		f.products.AssertNotCalled(t, "Get")
	})
}

func TestCartController_Mutations(t *testing.T) {
	// Arrange
	f := newCartFixture(t)
	f.products.On("Get", mock.Anything, "P1").Return(kibble(), nil)
	require.Equal(t, http.StatusOK, perform(t, f.router, http.MethodPost, "/cart", `{"product_id":"P1"}`).Code)

	// Act & Assert
	view := decodeCart(t, perform(t, f.router, http.MethodPost, "/cart/P1/increment", "").Body.Bytes())
	assert.Equal(t, 2, view.Count)

	view = decodeCart(t, perform(t, f.router, http.MethodPost, "/cart/P1/decrement", "").Body.Bytes())
	assert.Equal(t, 1, view.Count)

	view = decodeCart(t, perform(t, f.router, http.MethodPost, "/cart/P1/decrement", "").Body.Bytes())
	assert.Equal(t, 1, view.Count, "decrement stops at one")

	view = decodeCart(t, perform(t, f.router, http.MethodGet, "/cart", "").Body.Bytes())
	assert.Equal(t, "U1", view.UserID)

	view = decodeCart(t, perform(t, f.router, http.MethodDelete, "/cart/P1", "").Body.Bytes())
	assert.Empty(t, view.Items)

	require.Equal(t, http.StatusOK, perform(t, f.router, http.MethodPost, "/cart", `{"product_id":"P1"}`).Code)
	view = decodeCart(t, perform(t, f.router, http.MethodDelete, "/cart", "").Body.Bytes())
	assert.Empty(t, view.Items)
	stored, err := f.carts.Load(context.Background(), "U1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}
