package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	awspkg "github.com/yashrajoria/pawmart/backend/pkg/aws"
	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/storefront/middleware"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/services"
)

type CatalogAPI interface {
	List(ctx context.Context, q models.ProductQuery) (*models.Page[models.Product], error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, in models.ProductInput) (*models.Product, error)
	Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id string) error
	PresignImageUpload(ctx context.Context, filename, contentType string) (*awspkg.PresignedUpload, error)
	Comments(ctx context.Context, productID string, page, limit int) (*models.Page[models.Comment], error)
	AddComment(ctx context.Context, userID, author, productID string, in services.CommentInput) (*models.Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

type CatalogController struct {
	service CatalogAPI
}

func NewCatalogController(service CatalogAPI) *CatalogController {
	return &CatalogController{service: service}
}

// parseProductQuery reads the listing query string. Malformed numbers are
// rejected rather than ignored.
func parseProductQuery(c *gin.Context) (models.ProductQuery, error) {
	q := models.ProductQuery{
		Category:    c.Query("category"),
		Subcategory: c.Query("subcategory"),
		Search:      c.Query("search"),
		Sort:        c.Query("sort"),
	}
	q.Page, _ = strconv.Atoi(c.Query("page"))
	q.PerPage, _ = strconv.Atoi(c.Query("perPage"))

	if v := c.Query("minPrice"); v != "" {
		p, err := models.ParsePrice(v)
		if err != nil {
			return q, apperrors.BadRequest("minPrice must be a number")
		}
		q.MinPrice = &p
	}
	if v := c.Query("maxPrice"); v != "" {
		p, err := models.ParsePrice(v)
		if err != nil {
			return q, apperrors.BadRequest("maxPrice must be a number")
		}
		q.MaxPrice = &p
	}
	if v := c.Query("featured"); v != "" {
		f, err := strconv.ParseBool(v)
		if err != nil {
			return q, apperrors.BadRequest("featured must be true or false")
		}
		q.Featured = &f
	}
	return q, nil
}

func (cc *CatalogController) List(c *gin.Context) {
	q, err := parseProductQuery(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	page, err := cc.service.List(c.Request.Context(), q)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (cc *CatalogController) Get(c *gin.Context) {
	p, err := cc.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (cc *CatalogController) Create(c *gin.Context) {
	var in models.ProductInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := cc.service.Create(c.Request.Context(), in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (cc *CatalogController) Update(c *gin.Context) {
	var patch models.ProductPatch
	if !bindJSON(c, &patch) {
		return
	}
	p, err := cc.service.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (cc *CatalogController) Delete(c *gin.Context) {
	if err := cc.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type uploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

func (cc *CatalogController) PresignUpload(c *gin.Context) {
	var req uploadRequest
	if !bindJSON(c, &req) {
		return
	}
	upload, err := cc.service.PresignImageUpload(c.Request.Context(), req.Filename, req.ContentType)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

func (cc *CatalogController) Comments(c *gin.Context) {
	page, limit := pageParams(c)
	out, err := cc.service.Comments(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (cc *CatalogController) AddComment(c *gin.Context) {
	var in services.CommentInput
	if !bindJSON(c, &in) {
		return
	}
	author, _, _ := strings.Cut(middleware.Email(c), "@")
	comment, err := cc.service.AddComment(c.Request.Context(), middleware.UserID(c), author, c.Param("id"), in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (cc *CatalogController) DeleteComment(c *gin.Context) {
	if err := cc.service.DeleteComment(c.Request.Context(), c.Param("commentId")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
