package api

import (
	"net/http"

	"mailspot/config"
	"mailspot/internal/api/admin"
	"mailspot/internal/api/apis"
	"mailspot/internal/api/handler"
	"mailspot/internal/middleware"
	"mailspot/internal/repository"
	"mailspot/internal/scheduler"
	"mailspot/internal/service"
	"mailspot/pkg/async"
	"mailspot/pkg/logger"
	"mailspot/pkg/payment"
	"mailspot/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// 限流参数：每IP每秒请求数与突发数
const (
	rateLimitPerSecond = 5
	rateLimitBurst     = 20
)

// Dependencies 外部资源，由 main 创建并负责关闭
type Dependencies struct {
	Store       repository.Store
	Redis       *redis.Client
	Gateway     payment.Gateway
	Uploader    storage.Uploader
	EmailSender service.EmailSender
	Worker      *async.Worker
}

// SetupRouter 设置API路由，返回的调度器需由调用方启动和停止
func SetupRouter(cfg *config.Config, logger *logger.Logger, deps Dependencies) (*gin.Engine, *scheduler.Scheduler) {
	// 创建Gin引擎
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 使用中间件
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.Site.URL))

	store := deps.Store
	siteURL := cfg.Site.URL
	trackingURL := cfg.Site.TrackingURL

	// 初始化服务
	spotCache := service.NewSpotCache(deps.Redis, logger)
	notifier := service.NewNotifier(store, deps.EmailSender, siteURL, logger)
	authService := service.NewAuthService(store, notifier, cfg.Auth, siteURL, logger)
	mailingService := service.NewMailingService(store, spotCache, logger)
	checkoutService := service.NewCheckoutService(store, deps.Gateway, authService, spotCache, deps.Redis, siteURL, cfg.Checkout, logger)
	fulfillmentService := service.NewFulfillmentService(store, deps.Gateway, notifier, spotCache, trackingURL, logger)
	adminSpotService := service.NewAdminSpotService(store, authService, notifier, spotCache, trackingURL, logger)
	artworkService := service.NewArtworkService(store, deps.Uploader, spotCache, cfg.Storage.MaxUploadMB, logger)
	landingService := service.NewLandingService(store, deps.Worker, siteURL, logger)
	blogService := service.NewBlogService(store, deps.Redis, logger)

	// 初始化调度器
	jobs := scheduler.NewScheduler(checkoutService, notifier, logger)

	// 初始化处理器
	handlers := apis.Handlers{
		Auth:      handler.NewAuthHandler(authService, logger),
		Mailing:   handler.NewMailingHandler(mailingService, logger),
		Checkout:  handler.NewCheckoutHandler(checkoutService, fulfillmentService, logger),
		Dashboard: handler.NewDashboardHandler(landingService, artworkService, logger),
		Landing:   handler.NewLandingHandler(landingService, logger),
		Blog:      handler.NewBlogHandler(blogService, logger),
	}

	// 初始化管理员处理器
	spotAdminHandler := admin.NewSpotAdminHandler(adminSpotService, checkoutService, artworkService, authService, logger)
	mailingAdminHandler := admin.NewMailingAdminHandler(mailingService, logger)
	blogAdminHandler := admin.NewBlogAdminHandler(blogService, logger)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewIPRateLimiter(rateLimitPerSecond, rateLimitBurst)
	apis.RegisterTrackingRoutes(router, limiter, handlers.Landing)

	api := router.Group("/api")
	apis.RegisterRoutes(api, authService, limiter, handlers)

	// 注册管理员API路由
	admin.RegisterAdminRoutes(api, authService, spotAdminHandler, mailingAdminHandler, blogAdminHandler)

	return router, jobs
}
