package apis

import (
	"mailspot/internal/api/handler"

	"github.com/gin-gonic/gin"
)

// RegisterDashboardRoutes 注册广告主看板路由
func RegisterDashboardRoutes(router *gin.RouterGroup, userAuth gin.HandlerFunc, dashboardHandler *handler.DashboardHandler) {
	my := router.Group("/my", userAuth)
	{
		my.GET("/spots", dashboardHandler.MySpots)
		my.GET("/payments", dashboardHandler.MyPayments)
	}

	router.POST("/uploads/artwork", userAuth, dashboardHandler.UploadStagedArtwork)

	spots := router.Group("/spots", userAuth)
	{
		spots.POST("/:id/artwork", dashboardHandler.UploadSpotArtwork)
		spots.PUT("/:id/offer", dashboardHandler.UpdateOffer)
	}
}
