package admin

import (
	"mailspot/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAdminRoutes 注册管理员API路由
func RegisterAdminRoutes(router *gin.RouterGroup, auth middleware.Authenticator, spotHandler *SpotAdminHandler,
	mailingHandler *MailingAdminHandler, blogHandler *BlogAdminHandler) {
	router = router.Group("", middleware.AdminAuth(auth))

	// 广告位人工操作
	router.POST("/assign-spot", spotHandler.AssignSpot)
	router.POST("/admin-upload", spotHandler.UploadArtwork)
	router.POST("/custom-checkout", spotHandler.CustomCheckout)

	admin := router.Group("/admin")
	{
		admin.POST("/spots/:id/release", spotHandler.ReleaseSpot)
		admin.GET("/payments", spotHandler.ListPayments)
		admin.GET("/profiles", spotHandler.SearchProfiles)
	}

	// 期刊管理路由
	mailings := admin.Group("/mailings")
	{
		mailings.GET("", mailingHandler.ListMailings)
		mailings.POST("", mailingHandler.CreateMailing)
		mailings.GET("/:id", mailingHandler.GetMailing)
		mailings.PUT("/:id", mailingHandler.UpdateMailing)
		mailings.DELETE("/:id", mailingHandler.DeleteMailing)
	}

	// 博客管理路由
	blog := admin.Group("/blog")
	{
		blog.GET("", blogHandler.ListPosts)
		blog.POST("", blogHandler.CreatePost)
		blog.PUT("/:id", blogHandler.UpdatePost)
		blog.DELETE("/:id", blogHandler.DeletePost)
	}
}
