package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	commonmw "github.com/yashrajoria/pawmart/backend/services/common/middleware"
	"github.com/yashrajoria/pawmart/backend/services/storefront/controllers"
	"github.com/yashrajoria/pawmart/backend/services/storefront/middleware"
)

// Controllers bundles every handler set the router serves.
type Controllers struct {
	Auth    *controllers.AuthController
	Cart    *controllers.CartController
	Catalog *controllers.CatalogController
	Orders  *controllers.OrderController
	Content *controllers.ContentController
	Admin   *controllers.AdminController
	Live    *controllers.LiveController
}

// RegisterRoutes mounts the storefront API on r. Live streams are mounted
// outside the request timeout.
func RegisterRoutes(r *gin.Engine, ctl Controllers, tokens middleware.TokenParser, timeout time.Duration) {
	requireAuth := middleware.RequireAuth(tokens)
	optionalAuth := middleware.OptionalAuth(tokens)
	adminOnly := middleware.AdminOnly()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// Server-sent events
	r.GET("/live/products", ctl.Live.Products)
	r.GET("/live/testimonials", ctl.Live.Testimonials)
	r.GET("/live/faqs", ctl.Live.FAQs)
	r.GET("/orders/live", requireAuth, ctl.Live.MyOrders)
	r.GET("/admin/live/orders", requireAuth, adminOnly, ctl.Live.Orders)
	r.GET("/admin/live/questions", requireAuth, adminOnly, ctl.Live.Questions)

	api := r.Group("/", commonmw.Timeout(timeout))

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/signup", ctl.Auth.SignUp)
		authRoutes.POST("/signin", ctl.Auth.SignIn)
		authRoutes.POST("/refresh", ctl.Auth.Refresh)
		authRoutes.POST("/forgot-password", ctl.Auth.ForgotPassword)
		authRoutes.POST("/reset-password", ctl.Auth.ResetPassword)
		authRoutes.POST("/logout", optionalAuth, ctl.Auth.Logout)
	}

	me := api.Group("/me", requireAuth)
	{
		me.GET("", ctl.Auth.Me)
		me.PATCH("", ctl.Auth.UpdateProfile)
		me.DELETE("", ctl.Auth.DeleteAccount)
	}

	cartRoutes := api.Group("/cart", optionalAuth)
	{
		cartRoutes.GET("", ctl.Cart.View)
		cartRoutes.DELETE("", ctl.Cart.Clear)
		cartRoutes.POST("/items", ctl.Cart.Add)
		cartRoutes.POST("/items/:productId/increment", ctl.Cart.Increment)
		cartRoutes.POST("/items/:productId/decrement", ctl.Cart.Decrement)
		cartRoutes.DELETE("/items/:productId", ctl.Cart.Remove)
	}

	products := api.Group("/products")
	{
		products.GET("", ctl.Catalog.List)
		products.GET("/:id", ctl.Catalog.Get)
		products.GET("/:id/comments", ctl.Catalog.Comments)
		products.POST("/:id/comments", requireAuth, ctl.Catalog.AddComment)
	}

	api.GET("/testimonials", ctl.Content.Testimonials)
	api.POST("/testimonials", ctl.Content.SubmitTestimonial)
	api.GET("/faqs", ctl.Content.FAQs)
	api.POST("/questions", ctl.Content.AskQuestion)
	api.POST("/newsletter", ctl.Content.Subscribe)

	orders := api.Group("/orders", requireAuth)
	{
		orders.POST("", ctl.Orders.PlaceOrder)
		orders.GET("", ctl.Orders.MyOrders)
		orders.GET("/:id", ctl.Orders.Get)
	}
	api.POST("/payments/intent", requireAuth, ctl.Orders.CreateIntent)
	api.POST("/stripe/webhook", ctl.Orders.StripeWebhook)

	admin := api.Group("/admin", requireAuth, adminOnly)
	{
		admin.POST("/products", ctl.Catalog.Create)
		admin.PATCH("/products/:id", ctl.Catalog.Update)
		admin.DELETE("/products/:id", ctl.Catalog.Delete)
		admin.POST("/products/upload-url", ctl.Catalog.PresignUpload)
		admin.DELETE("/comments/:commentId", ctl.Catalog.DeleteComment)

		admin.GET("/orders", ctl.Orders.AdminList)
		admin.PATCH("/orders/:id/status", ctl.Orders.UpdateStatus)
		admin.DELETE("/orders/:id", ctl.Orders.Delete)

		admin.GET("/testimonials", ctl.Content.AllTestimonials)
		admin.PATCH("/testimonials/:id", ctl.Content.ApproveTestimonial)
		admin.DELETE("/testimonials/:id", ctl.Content.DeleteTestimonial)

		admin.POST("/faqs", ctl.Content.CreateFAQ)
		admin.PUT("/faqs/:id", ctl.Content.UpdateFAQ)
		admin.DELETE("/faqs/:id", ctl.Content.DeleteFAQ)

		admin.GET("/questions", ctl.Content.Questions)
		admin.POST("/questions/:id/answer", ctl.Content.AnswerQuestion)
		admin.DELETE("/questions/:id", ctl.Content.DeleteQuestion)

		admin.GET("/subscribers", ctl.Content.Subscribers)
		admin.DELETE("/subscribers/:id", ctl.Content.Unsubscribe)

		admin.GET("/users", ctl.Admin.Users)
		admin.PATCH("/users/:id/role", ctl.Admin.ChangeRole)
		admin.DELETE("/users/:id", ctl.Admin.DeleteUser)
		admin.GET("/stats", ctl.Admin.Stats)
	}
}
