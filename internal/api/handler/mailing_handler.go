package handler

import (
	"mailspot/internal/constants"
	"mailspot/internal/model"
	"mailspot/internal/service"
	"mailspot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// MailingHandler 公开的期刊与广告位浏览
type MailingHandler struct {
	mailingService *service.MailingService
	logger         *logger.Logger
}

// NewMailingHandler 创建期刊处理器实例
func NewMailingHandler(mailingService *service.MailingService, logger *logger.Logger) *MailingHandler {
	return &MailingHandler{
		mailingService: mailingService,
		logger:         logger,
	}
}

// ListMailings 获取开放售卖的期刊
// @Summary 期刊列表
// @Tags 期刊
// @Produce json
// @Router /api/mailings [get]
func (h *MailingHandler) ListMailings(c *gin.Context) {
	mailings, err := h.mailingService.ListMailings(c.Request.Context(), model.MailingStatusOpen)
	if err != nil {
		Error(c, h.logger, "获取期刊列表失败", err, constants.ErrInternalServer)
		return
	}
	Success(c, constants.SuccessGet, mailings)
}

// ListSpots 获取期刊的广告位及售卖状态
// @Summary 广告位列表
// @Tags 期刊
// @Produce json
// @Param id path string true "期刊ID"
// @Router /api/mailings/{id}/spots [get]
func (h *MailingHandler) ListSpots(c *gin.Context) {
	spots, err := h.mailingService.ListPublicSpots(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, h.logger, "获取广告位列表失败", err, constants.ErrInternalServer)
		return
	}
	Success(c, constants.SuccessGet, spots)
}
