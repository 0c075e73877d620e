package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/services"
)

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) Users(ctx context.Context, page, limit int) (*models.Page[models.UserProfile], error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Page[models.UserProfile]), args.Error(1)
}

func (m *MockAdminService) ChangeRole(ctx context.Context, userID string, update services.RoleUpdate) error {
	return m.Called(ctx, userID, update).Error(0)
}

func (m *MockAdminService) Stats(ctx context.Context) (*models.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Stats), args.Error(1)
}

type MockAccountRemover struct {
	mock.Mock
}

func (m *MockAccountRemover) DeleteAccount(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func adminRouter(svc AdminAPI, accounts AccountRemover) *gin.Engine {
	ac := NewAdminController(svc, accounts)
	r := gin.New()
	a := r.Group("/admin", admin())
	a.GET("/users", ac.Users)
	a.PATCH("/users/:id/role", ac.ChangeRole)
	a.DELETE("/users/:id", ac.DeleteUser)
	a.GET("/stats", ac.Stats)
	return r
}

func TestAdminController_Users(t *testing.T) {
	// Arrange
	svc := new(MockAdminService)
	svc.On("Users", mock.Anything, 1, 20).Return(&models.Page[models.UserProfile]{
		Items: []models.UserProfile{{ID: "U1", Email: "pat@example.com"}}, Page: 1, PerPage: 20, Total: 1, TotalPages: 1,
	}, nil).Once()

	// Act
	rec := perform(t, adminRouter(svc, nil), http.MethodGet, "/admin/users?page=1&limit=20", "")

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"pat@example.com"`)
	svc.AssertExpectations(t)
}

func TestAdminController_ChangeRole(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		svc := new(MockAdminService)
		svc.On("ChangeRole", mock.Anything, "U1", services.RoleUpdate{Role: models.RoleAdmin}).Return(nil).Once()

		// Act
		rec := perform(t, adminRouter(svc, nil), http.MethodPatch, "/admin/users/U1/role", `{"role":"admin"}`)

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":"U1","role":"admin"}`, rec.Body.String())
	})

	t.Run("Cannot demote self", func(t *testing.T) {
		// Arrange
		svc := new(MockAdminService)

		// Act
		rec := perform(t, adminRouter(svc, nil), http.MethodPatch, "/admin/users/A1/role", `{"role":"customer"}`)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "ChangeRole")
	})

	t.Run("Unknown user", func(t *testing.T) {
		// Arrange
		svc := new(MockAdminService)
		svc.On("ChangeRole", mock.Anything, "U9", mock.Anything).Return(apperrors.NotFound("User not found")).Once()

		// Act
		rec := perform(t, adminRouter(svc, nil), http.MethodPatch, "/admin/users/U9/role", `{"role":"customer"}`)

		// Assert
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAdminController_DeleteUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		accounts := new(MockAccountRemover)
		accounts.On("DeleteAccount", mock.Anything, "U1").Return(nil).Once()

		// Act
		rec := perform(t, adminRouter(nil, accounts), http.MethodDelete, "/admin/users/U1", "")

		// Assert
		assert.Equal(t, http.StatusNoContent, rec.Code)
		accounts.AssertExpectations(t)
	})

	t.Run("Cannot delete self", func(t *testing.T) {
		// Arrange
		accounts := new(MockAccountRemover)

		// Act
		rec := perform(t, adminRouter(nil, accounts), http.MethodDelete, "/admin/users/A1", "")

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		accounts.AssertNotCalled(t, "DeleteAccount")
	})
}

func TestAdminController_Stats(t *testing.T) {
	// Arrange
	svc := new(MockAdminService)
	svc.On("Stats", mock.Anything).Return(&models.Stats{
		Products: 4, Orders: 3, Revenue: models.Cents(5500),
		OrdersByStatus: map[string]int64{models.OrderPending: 2, models.OrderCancelled: 1},
	}, nil).Once()

	// Act
	rec := perform(t, adminRouter(svc, nil), http.MethodGet, "/admin/stats", "")

	// Assert
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"products":4`)
	assert.Contains(t, rec.Body.String(), `"pending":2`)
}
