package apis

import (
	"mailspot/internal/api/handler"
	"mailspot/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterMailingRoutes 注册期刊浏览路由
func RegisterMailingRoutes(router *gin.RouterGroup, mailingHandler *handler.MailingHandler) {
	router.GET("/mailings", mailingHandler.ListMailings)
	router.GET("/mailings/:id/spots", mailingHandler.ListSpots)
}

// RegisterCheckoutRoutes 注册下单与支付回调路由
func RegisterCheckoutRoutes(router *gin.RouterGroup, userAuth gin.HandlerFunc, limiter *middleware.IPRateLimiter, checkoutHandler *handler.CheckoutHandler) {
	router.POST("/checkout", middleware.RateLimit(limiter), userAuth, checkoutHandler.Checkout)
	router.POST("/webhooks/stripe", checkoutHandler.StripeWebhook)
}

// RegisterBlogRoutes 注册博客路由
func RegisterBlogRoutes(router *gin.RouterGroup, blogHandler *handler.BlogHandler) {
	router.GET("/blog", blogHandler.GetPosts)
	router.GET("/blog/:slug", blogHandler.GetPostBySlug)
}
