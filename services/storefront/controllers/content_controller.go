package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/services"
)

type ContentAPI interface {
	Testimonials(ctx context.Context, includeUnapproved bool) ([]models.Testimonial, error)
	SubmitTestimonial(ctx context.Context, in services.TestimonialInput) (*models.Testimonial, error)
	SetTestimonialApproval(ctx context.Context, id string, approved bool) error
	DeleteTestimonial(ctx context.Context, id string) error

	FAQs(ctx context.Context) ([]models.FAQRecord, error)
	CreateFAQ(ctx context.Context, in services.FAQInput) (*models.FAQRecord, error)
	UpdateFAQ(ctx context.Context, id string, in services.FAQInput) (*models.FAQRecord, error)
	DeleteFAQ(ctx context.Context, id string) error

	AskQuestion(ctx context.Context, in services.QuestionInput) (*models.Question, error)
	Questions(ctx context.Context, unansweredOnly bool) ([]models.Question, error)
	AnswerQuestion(ctx context.Context, id string, in services.AnswerInput) (*models.Question, error)
	DeleteQuestion(ctx context.Context, id string) error

	Subscribe(ctx context.Context, in services.SubscribeInput) (*models.Subscriber, error)
	Subscribers(ctx context.Context, page, limit int) (*models.Page[models.Subscriber], error)
	Unsubscribe(ctx context.Context, id string) error
}

type ContentController struct {
	service ContentAPI
}

func NewContentController(service ContentAPI) *ContentController {
	return &ContentController{service: service}
}

func (cc *ContentController) Testimonials(c *gin.Context) {
	cc.listTestimonials(c, false)
}

func (cc *ContentController) AllTestimonials(c *gin.Context) {
	cc.listTestimonials(c, true)
}

func (cc *ContentController) listTestimonials(c *gin.Context, all bool) {
	items, err := cc.service.Testimonials(c.Request.Context(), all)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (cc *ContentController) SubmitTestimonial(c *gin.Context) {
	var in services.TestimonialInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := cc.service.SubmitTestimonial(c.Request.Context(), in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (cc *ContentController) ApproveTestimonial(c *gin.Context) {
	var body struct {
		Approved *bool `json:"approved" binding:"required"`
	}
	if !bindJSON(c, &body) {
		return
	}
	if err := cc.service.SetTestimonialApproval(c.Request.Context(), c.Param("id"), *body.Approved); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "approved": *body.Approved})
}

func (cc *ContentController) DeleteTestimonial(c *gin.Context) {
	if err := cc.service.DeleteTestimonial(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (cc *ContentController) FAQs(c *gin.Context) {
	items, err := cc.service.FAQs(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (cc *ContentController) CreateFAQ(c *gin.Context) {
	var in services.FAQInput
	if !bindJSON(c, &in) {
		return
	}
	f, err := cc.service.CreateFAQ(c.Request.Context(), in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (cc *ContentController) UpdateFAQ(c *gin.Context) {
	var in services.FAQInput
	if !bindJSON(c, &in) {
		return
	}
	f, err := cc.service.UpdateFAQ(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (cc *ContentController) DeleteFAQ(c *gin.Context) {
	if err := cc.service.DeleteFAQ(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (cc *ContentController) AskQuestion(c *gin.Context) {
	var in services.QuestionInput
	if !bindJSON(c, &in) {
		return
	}
	q, err := cc.service.AskQuestion(c.Request.Context(), in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (cc *ContentController) Questions(c *gin.Context) {
	items, err := cc.service.Questions(c.Request.Context(), c.Query("unanswered") == "true")
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (cc *ContentController) AnswerQuestion(c *gin.Context) {
	var in services.AnswerInput
	if !bindJSON(c, &in) {
		return
	}
	q, err := cc.service.AnswerQuestion(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (cc *ContentController) DeleteQuestion(c *gin.Context) {
	if err := cc.service.DeleteQuestion(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (cc *ContentController) Subscribe(c *gin.Context) {
	var in services.SubscribeInput
	if !bindJSON(c, &in) {
		return
	}
	sub, err := cc.service.Subscribe(c.Request.Context(), in)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (cc *ContentController) Subscribers(c *gin.Context) {
	page, limit := pageParams(c)
	out, err := cc.service.Subscribers(c.Request.Context(), page, limit)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (cc *ContentController) Unsubscribe(c *gin.Context) {
	if err := cc.service.Unsubscribe(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
