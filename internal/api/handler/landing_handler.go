package handler

import (
	"net/http"

	"mailspot/internal/constants"
	"mailspot/internal/service"
	"mailspot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// LandingHandler 落地页与二维码跳转
type LandingHandler struct {
	landingService *service.LandingService
	logger         *logger.Logger
}

// NewLandingHandler 创建落地页处理器实例
func NewLandingHandler(landingService *service.LandingService, logger *logger.Logger) *LandingHandler {
	return &LandingHandler{
		landingService: landingService,
		logger:         logger,
	}
}

func visitFrom(c *gin.Context) service.Visit {
	return service.Visit{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}

// GetLanding 获取落地页内容
// @Summary 落地页
// @Tags 落地页
// @Produce json
// @Param slug path string true "落地页标识"
// @Router /api/landing/{slug} [get]
func (h *LandingHandler) GetLanding(c *gin.Context) {
	view, err := h.landingService.GetLanding(c.Request.Context(), c.Param("slug"), visitFrom(c))
	if err != nil {
		Error(c, h.logger, "获取落地页失败", err, constants.ErrInternalServer)
		return
	}
	Success(c, constants.SuccessGet, view)
}

// TrackScan 记录二维码扫描并跳转到落地页
// @Summary 二维码跳转
// @Tags 落地页
// @Param slug path string true "落地页标识"
// @Success 302
// @Router /t/{slug} [get]
func (h *LandingHandler) TrackScan(c *gin.Context) {
	target, err := h.landingService.TrackScan(c.Request.Context(), c.Param("slug"), visitFrom(c))
	if err != nil {
		Error(c, h.logger, "二维码跳转失败", err, constants.ErrInternalServer)
		return
	}
	c.Redirect(http.StatusFound, target)
}
