package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yashrajoria/pawmart/backend/services/common/logger"
	"github.com/yashrajoria/pawmart/backend/services/storefront/live"
	"github.com/yashrajoria/pawmart/backend/services/storefront/middleware"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

const heartbeatInterval = 25 * time.Second

// Feed pairs a query with the trigger that re-runs it.
type Feed[T any] struct {
	Fetch   live.FetchFunc[T]
	Trigger live.Trigger
}

// LiveFeeds lists every stream the storefront serves. UserOrders builds the
// feed of one customer's orders.
type LiveFeeds struct {
	Products     Feed[models.Product]
	Testimonials Feed[models.Testimonial]
	FAQs         Feed[models.FAQRecord]
	Questions    Feed[models.Question]
	Orders       Feed[models.Order]
	UserOrders   func(userID string) Feed[models.Order]
}

// LiveController serves live queries as server-sent events. Every message is
// a "snapshot" event carrying the full result set.
type LiveController struct {
	feeds LiveFeeds
	log   *zap.Logger
}

func NewLiveController(feeds LiveFeeds, log *zap.Logger) *LiveController {
	if log == nil {
		log = zap.NewNop()
	}
	return &LiveController{feeds: feeds, log: log}
}

func (lc *LiveController) Products(c *gin.Context) {
	stream(c, lc.feeds.Products, lc.log)
}

func (lc *LiveController) Testimonials(c *gin.Context) {
	stream(c, lc.feeds.Testimonials, lc.log)
}

func (lc *LiveController) FAQs(c *gin.Context) {
	stream(c, lc.feeds.FAQs, lc.log)
}

func (lc *LiveController) Questions(c *gin.Context) {
	stream(c, lc.feeds.Questions, lc.log)
}

func (lc *LiveController) Orders(c *gin.Context) {
	stream(c, lc.feeds.Orders, lc.log)
}

func (lc *LiveController) MyOrders(c *gin.Context) {
	stream(c, lc.feeds.UserOrders(middleware.UserID(c)), lc.log)
}

func stream[T any](c *gin.Context, feed Feed[T], base *zap.Logger) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	log := logger.FromContext(ctx, base).With(zap.String("path", c.FullPath()))

	sub := live.Subscribe(ctx, feed.Fetch, feed.Trigger, log)
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	log.Debug("live stream opened")
	for {
		select {
		case <-ctx.Done():
			log.Debug("live stream closed by client")
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			c.SSEvent("snapshot", snap)
			c.Writer.Flush()
		}
	}
}
