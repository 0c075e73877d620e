package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/storefront/middleware"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/services"
)

type AdminAPI interface {
	Users(ctx context.Context, page, limit int) (*models.Page[models.UserProfile], error)
	ChangeRole(ctx context.Context, userID string, update services.RoleUpdate) error
	Stats(ctx context.Context) (*models.Stats, error)
}

// AccountRemover deletes a user with everything attached to it.
type AccountRemover interface {
	DeleteAccount(ctx context.Context, userID string) error
}

type AdminController struct {
	service  AdminAPI
	accounts AccountRemover
}

func NewAdminController(service AdminAPI, accounts AccountRemover) *AdminController {
	return &AdminController{service: service, accounts: accounts}
}

func (ac *AdminController) Users(c *gin.Context) {
	page, limit := pageParams(c)
	out, err := ac.service.Users(c.Request.Context(), page, limit)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (ac *AdminController) ChangeRole(c *gin.Context) {
	var update services.RoleUpdate
	if !bindJSON(c, &update) {
		return
	}
	if c.Param("id") == middleware.UserID(c) && update.Role != models.RoleAdmin {
		apperrors.Respond(c, apperrors.BadRequest("You cannot remove your own admin role"))
		return
	}
	if err := ac.service.ChangeRole(c.Request.Context(), c.Param("id"), update); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "role": update.Role})
}

func (ac *AdminController) DeleteUser(c *gin.Context) {
	if c.Param("id") == middleware.UserID(c) {
		apperrors.Respond(c, apperrors.BadRequest("You cannot delete your own account here"))
		return
	}
	if err := ac.accounts.DeleteAccount(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (ac *AdminController) Stats(c *gin.Context) {
	stats, err := ac.service.Stats(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
