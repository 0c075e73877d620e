package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/storefront/cart"
	"github.com/yashrajoria/pawmart/backend/services/storefront/middleware"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

// ProductLookup resolves the product a cart line refers to.
type ProductLookup interface {
	Get(ctx context.Context, id string) (*models.Product, error)
}

type AddToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"omitempty,min=1,max=99"`
}

// CartController exposes the signed-in user's cart. Guests get an empty cart
// and their mutations are ignored.
type CartController struct {
	carts    *cart.Registry
	products ProductLookup
}

func NewCartController(carts *cart.Registry, products ProductLookup) *CartController {
	return &CartController{carts: carts, products: products}
}

func (cc *CartController) store(c *gin.Context) *cart.Store {
	return cc.carts.Open(c.Request.Context(), middleware.UserID(c))
}

func (cc *CartController) View(c *gin.Context) {
	c.JSON(http.StatusOK, cc.store(c).View())
}

// Add puts a catalog product in the cart at its current catalog price.
func (cc *CartController) Add(c *gin.Context) {
	var req AddToCartRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	s := cc.store(c)
	if s.UserID() == "" {
		c.JSON(http.StatusOK, s.View())
		return
	}

	p, err := cc.products.Get(ctx, req.ProductID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	item := p.AsLineItem()
	if req.Quantity > 0 {
		item.Quantity = req.Quantity
	}
	s.Add(ctx, item)
	c.JSON(http.StatusOK, s.View())
}

func (cc *CartController) Increment(c *gin.Context) {
	s := cc.store(c)
	s.Increment(c.Request.Context(), c.Param("productId"))
	c.JSON(http.StatusOK, s.View())
}

func (cc *CartController) Decrement(c *gin.Context) {
	s := cc.store(c)
	s.Decrement(c.Request.Context(), c.Param("productId"))
	c.JSON(http.StatusOK, s.View())
}

func (cc *CartController) Remove(c *gin.Context) {
	s := cc.store(c)
	s.Delete(c.Request.Context(), c.Param("productId"))
	c.JSON(http.StatusOK, s.View())
}

func (cc *CartController) Clear(c *gin.Context) {
	s := cc.store(c)
	s.Clear(c.Request.Context())
	c.JSON(http.StatusOK, s.View())
}
