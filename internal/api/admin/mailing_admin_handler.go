package admin

import (
	"fmt"
	"net/http"
	"time"

	"mailspot/internal/api/handler"
	"mailspot/internal/constants"
	"mailspot/internal/service"
	"mailspot/internal/types"
	"mailspot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// MailingAdminHandler 管理员期刊管理
type MailingAdminHandler struct {
	mailingService *service.MailingService
	logger         *logger.Logger
}

// NewMailingAdminHandler 创建管理员期刊处理器
func NewMailingAdminHandler(mailingService *service.MailingService, logger *logger.Logger) *MailingAdminHandler {
	return &MailingAdminHandler{
		mailingService: mailingService,
		logger:         logger,
	}
}

func toMailingInput(req types.MailingRequest) (service.MailingInput, error) {
	date, err := time.Parse("2006-01-02", req.ScheduledDate)
	if err != nil {
		return service.MailingInput{}, fmt.Errorf("%w: scheduled_date must be YYYY-MM-DD", service.ErrInvalidInput)
	}
	return service.MailingInput{
		Title:          req.Title,
		ZipCodes:       req.ZipCodes,
		ScheduledDate:  date,
		SpotPriceCents: req.SpotPriceCents,
		Status:         req.Status,
	}, nil
}

// ListMailings 获取期刊列表，可按状态过滤
func (h *MailingAdminHandler) ListMailings(c *gin.Context) {
	mailings, err := h.mailingService.ListMailings(c.Request.Context(), c.Query("status"))
	if err != nil {
		handler.RawError(c, h.logger, "获取期刊列表失败", err)
		return
	}
	handler.Success(c, constants.SuccessGet, mailings)
}

// GetMailing 获取期刊及全部广告位
func (h *MailingAdminHandler) GetMailing(c *gin.Context) {
	detail, err := h.mailingService.GetMailingDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RawError(c, h.logger, "获取期刊详情失败", err)
		return
	}
	handler.Success(c, constants.SuccessGet, detail)
}

// CreateMailing 创建期刊并生成12个广告位
func (h *MailingAdminHandler) CreateMailing(c *gin.Context) {
	var req types.MailingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}
	in, err := toMailingInput(req)
	if err != nil {
		handler.RawError(c, h.logger, "创建期刊失败", err)
		return
	}

	detail, err := h.mailingService.CreateMailing(c.Request.Context(), in)
	if err != nil {
		handler.RawError(c, h.logger, "创建期刊失败", err)
		return
	}
	handler.Success(c, constants.SuccessCreate, detail)
}

// UpdateMailing 修改期刊
func (h *MailingAdminHandler) UpdateMailing(c *gin.Context) {
	var req types.MailingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}
	in, err := toMailingInput(req)
	if err != nil {
		handler.RawError(c, h.logger, "修改期刊失败", err)
		return
	}

	mailing, err := h.mailingService.UpdateMailing(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		handler.RawError(c, h.logger, "修改期刊失败", err)
		return
	}
	handler.Success(c, constants.SuccessUpdate, mailing)
}

// DeleteMailing 删除期刊，已有售出或预留广告位时拒绝
func (h *MailingAdminHandler) DeleteMailing(c *gin.Context) {
	if err := h.mailingService.DeleteMailing(c.Request.Context(), c.Param("id")); err != nil {
		handler.RawError(c, h.logger, "删除期刊失败", err)
		return
	}
	handler.Success(c, constants.SuccessDelete, nil)
}
