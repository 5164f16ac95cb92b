package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailspot/config"
	"mailspot/internal/api"
	"mailspot/internal/repository"
	"mailspot/pkg/async"
	"mailspot/pkg/database"
	"mailspot/pkg/email"
	"mailspot/pkg/logger"
	"mailspot/pkg/payment"
	"mailspot/pkg/storage"
)

func main() {
	ctx := context.Background()

	// 加载配置
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	logger := logger.NewLoggerWithConfig(cfg.LogLevel, cfg.LogFile)
	defer logger.Close()

	// 初始化数据库连接
	db, err := database.NewMySQLConnection(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("无法链接到数据库", "error", err)
	}
	defer db.Close()

	// 初始化Redis连接
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("无法链接到Redis", "error", err)
	}
	defer redisClient.Close()

	// 初始化邮件服务
	emailService, err := email.NewService(cfg.Email, logger)
	if err != nil {
		logger.Fatal("初始化邮件服务失败", "error", err)
	}

	// 初始化对象存储
	uploader, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("初始化对象存储失败", "error", err)
	}

	// 创建异步工作器
	worker := async.NewWorker(1000, logger)
	worker.Start(5)
	defer worker.Stop()

	// 初始化API路由
	router, jobs := api.SetupRouter(cfg, logger, api.Dependencies{
		Store:       repository.NewStore(db),
		Redis:       redisClient,
		Gateway:     payment.NewStripeGateway(cfg.Stripe),
		Uploader:    uploader,
		EmailSender: emailService,
		Worker:      worker,
	})
	jobs.Start()
	defer jobs.Stop()

	// 创建HTTP服务器
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.APIPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info("服务器启动", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("启动服务器失败", "error", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器被强制关闭", "error", err)
	}

	logger.Info("服务器已正常退出")
}
