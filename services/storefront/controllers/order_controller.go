package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/storefront/middleware"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/services"
)

const maxWebhookBody = 64 << 10

type OrderAPI interface {
	PlaceOrder(ctx context.Context, who services.Customer, req models.PlaceOrderRequest, idemKey string) (*models.Order, error)
	ListForUser(ctx context.Context, userID string, page, limit int) (*models.Page[models.Order], error)
	ListAll(ctx context.Context, status string, page, limit int) (*models.Page[models.Order], error)
	Get(ctx context.Context, userID, id string, admin bool) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, update models.OrderStatusUpdate) (*models.Order, error)
	Delete(ctx context.Context, id string) error
}

type PaymentAPI interface {
	CreateIntent(ctx context.Context, userID string, req services.IntentRequest) (*services.IntentResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type OrderController struct {
	orders   OrderAPI
	payments PaymentAPI
}

func NewOrderController(orders OrderAPI, payments PaymentAPI) *OrderController {
	return &OrderController{orders: orders, payments: payments}
}

// PlaceOrder checks out the caller's cart. An Idempotency-Key header makes
// retries return the first order instead of creating another.
func (oc *OrderController) PlaceOrder(c *gin.Context) {
	var req models.PlaceOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	who := services.Customer{UserID: middleware.UserID(c), Email: middleware.Email(c)}
	order, err := oc.orders.PlaceOrder(c.Request.Context(), who, req, c.GetHeader("Idempotency-Key"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (oc *OrderController) MyOrders(c *gin.Context) {
	page, limit := pageParams(c)
	out, err := oc.orders.ListForUser(c.Request.Context(), middleware.UserID(c), page, limit)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (oc *OrderController) Get(c *gin.Context) {
	order, err := oc.orders.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"), middleware.IsAdmin(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oc *OrderController) AdminList(c *gin.Context) {
	page, limit := pageParams(c)
	out, err := oc.orders.ListAll(c.Request.Context(), c.Query("status"), page, limit)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (oc *OrderController) UpdateStatus(c *gin.Context) {
	var update models.OrderStatusUpdate
	if !bindJSON(c, &update) {
		return
	}
	order, err := oc.orders.UpdateStatus(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (oc *OrderController) Delete(c *gin.Context) {
	if err := oc.orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (oc *OrderController) CreateIntent(c *gin.Context) {
	var req services.IntentRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := oc.payments.CreateIntent(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// StripeWebhook needs the untouched body for signature verification.
func (oc *OrderController) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid webhook"))
		return
	}
	if err := oc.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
