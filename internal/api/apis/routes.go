package apis

import (
	"mailspot/internal/api/handler"
	"mailspot/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers 公开与广告主接口处理器
type Handlers struct {
	Auth      *handler.AuthHandler
	Mailing   *handler.MailingHandler
	Checkout  *handler.CheckoutHandler
	Dashboard *handler.DashboardHandler
	Landing   *handler.LandingHandler
	Blog      *handler.BlogHandler
}

// RegisterRoutes 注册所有 /api 路由
func RegisterRoutes(api *gin.RouterGroup, auth middleware.Authenticator, limiter *middleware.IPRateLimiter, h Handlers) {
	userAuth := middleware.UserAuth(auth)

	RegisterAuthRoutes(api, userAuth, h.Auth)
	RegisterMailingRoutes(api, h.Mailing)
	RegisterCheckoutRoutes(api, userAuth, limiter, h.Checkout)
	RegisterDashboardRoutes(api, userAuth, h.Dashboard)
	RegisterBlogRoutes(api, h.Blog)

	api.GET("/landing/:slug", h.Landing.GetLanding)
}

// RegisterTrackingRoutes 注册二维码跳转路由，挂在根路径下
func RegisterTrackingRoutes(router gin.IRoutes, limiter *middleware.IPRateLimiter, landingHandler *handler.LandingHandler) {
	router.GET("/t/:slug", middleware.RateLimit(limiter), landingHandler.TrackScan)
}
