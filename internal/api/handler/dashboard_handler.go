package handler

import (
	"net/http"

	"mailspot/internal/constants"
	"mailspot/internal/service"
	"mailspot/internal/types"
	"mailspot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// DashboardHandler 广告主看板：我的广告位、订单、素材与优惠文案
type DashboardHandler struct {
	landingService *service.LandingService
	artworkService *service.ArtworkService
	logger         *logger.Logger
}

// NewDashboardHandler 创建看板处理器实例
func NewDashboardHandler(landingService *service.LandingService, artworkService *service.ArtworkService, logger *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		landingService: landingService,
		artworkService: artworkService,
		logger:         logger,
	}
}

// MySpots 我购买的广告位及扫码次数
// @Summary 我的广告位
// @Tags 看板
// @Produce json
// @Router /api/my/spots [get]
func (h *DashboardHandler) MySpots(c *gin.Context) {
	advertiser, ok := Principal(c)
	if !ok {
		return
	}
	spots, err := h.landingService.MySpots(c.Request.Context(), advertiser)
	if err != nil {
		Error(c, h.logger, "获取我的广告位失败", err, constants.ErrInternalServer)
		return
	}
	Success(c, constants.SuccessGet, spots)
}

// MyPayments 我的支付记录
// @Summary 我的订单
// @Tags 看板
// @Produce json
// @Router /api/my/payments [get]
func (h *DashboardHandler) MyPayments(c *gin.Context) {
	advertiser, ok := Principal(c)
	if !ok {
		return
	}
	payments, err := h.landingService.MyPayments(c.Request.Context(), advertiser)
	if err != nil {
		Error(c, h.logger, "获取我的订单失败", err, constants.ErrInternalServer)
		return
	}
	Success(c, constants.SuccessGet, payments)
}

// UploadStagedArtwork 付款前先上传素材，返回可用于下单的地址
// @Summary 上传素材
// @Tags 看板
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "素材文件"
// @Router /api/uploads/artwork [post]
func (h *DashboardHandler) UploadStagedArtwork(c *gin.Context) {
	advertiser, ok := Principal(c)
	if !ok {
		return
	}
	file, f, err := ArtworkFromForm(c)
	if err != nil {
		Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}
	defer f.Close()

	url, err := h.artworkService.UploadStaged(c.Request.Context(), advertiser, file)
	if err != nil {
		Error(c, h.logger, "上传素材失败", err, constants.ErrUploadFailed)
		return
	}
	Success(c, constants.SuccessCreate, gin.H{"url": url})
}

// UploadSpotArtwork 为自己的广告位上传素材
// @Summary 广告位素材
// @Tags 看板
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "广告位ID"
// @Param file formData file true "素材文件"
// @Router /api/spots/{id}/artwork [post]
func (h *DashboardHandler) UploadSpotArtwork(c *gin.Context) {
	advertiser, ok := Principal(c)
	if !ok {
		return
	}
	file, f, err := ArtworkFromForm(c)
	if err != nil {
		Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}
	defer f.Close()

	spot, err := h.artworkService.UploadForSpot(c.Request.Context(), advertiser, c.Param("id"), file)
	if err != nil {
		Error(c, h.logger, "上传广告位素材失败", err, constants.ErrUploadFailed)
		return
	}
	Success(c, constants.SuccessUpdate, spot)
}

// UpdateOffer 修改落地页优惠文案
// @Summary 修改优惠文案
// @Tags 看板
// @Accept json
// @Produce json
// @Param id path string true "广告位ID"
// @Router /api/spots/{id}/offer [put]
func (h *DashboardHandler) UpdateOffer(c *gin.Context) {
	advertiser, ok := Principal(c)
	if !ok {
		return
	}
	var req types.UpdateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}

	page, err := h.landingService.UpdateOffer(c.Request.Context(), advertiser, c.Param("id"), req.OfferText)
	if err != nil {
		Error(c, h.logger, "修改优惠文案失败", err, constants.ErrInternalServer)
		return
	}
	Success(c, constants.SuccessUpdate, page)
}
