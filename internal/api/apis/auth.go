package apis

import (
	"mailspot/internal/api/handler"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes 注册账号相关路由
func RegisterAuthRoutes(router *gin.RouterGroup, userAuth gin.HandlerFunc, authHandler *handler.AuthHandler) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/claim", authHandler.Claim)
		auth.GET("/me", userAuth, authHandler.Me)
		auth.POST("/logout", userAuth, authHandler.Logout)
	}
}
