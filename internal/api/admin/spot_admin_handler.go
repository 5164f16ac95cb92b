package admin

import (
	"net/http"
	"strconv"

	"mailspot/internal/api/handler"
	"mailspot/internal/constants"
	"mailspot/internal/model"
	"mailspot/internal/service"
	"mailspot/internal/types"
	"mailspot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SpotAdminHandler 管理员广告位操作：指派、释放、上传素材、议价下单
type SpotAdminHandler struct {
	adminSpotService *service.AdminSpotService
	checkoutService  *service.CheckoutService
	artworkService   *service.ArtworkService
	authService      *service.AuthService
	logger           *logger.Logger
}

// NewSpotAdminHandler 创建管理员广告位处理器
func NewSpotAdminHandler(adminSpotService *service.AdminSpotService, checkoutService *service.CheckoutService,
	artworkService *service.ArtworkService, authService *service.AuthService, logger *logger.Logger) *SpotAdminHandler {
	return &SpotAdminHandler{
		adminSpotService: adminSpotService,
		checkoutService:  checkoutService,
		artworkService:   artworkService,
		authService:      authService,
		logger:           logger,
	}
}

// AssignSpot 不经支付直接将广告位指派给广告主
func (h *SpotAdminHandler) AssignSpot(c *gin.Context) {
	var req types.AssignSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}

	result, err := h.adminSpotService.AssignSpot(c.Request.Context(), service.AssignSpotRequest{
		SpotID:       req.SpotID,
		Email:        req.Email,
		BusinessName: req.BusinessName,
		AdCopyURL:    req.AdCopyURL,
		OfferText:    req.OfferText,
	})
	if err != nil {
		handler.RawError(c, h.logger, "指派广告位失败", err)
		return
	}
	handler.Success(c, constants.SuccessUpdate, result)
}

// ReleaseSpot 将广告位释放回可售状态
func (h *SpotAdminHandler) ReleaseSpot(c *gin.Context) {
	spot, err := h.adminSpotService.ReleaseSpot(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RawError(c, h.logger, "释放广告位失败", err)
		return
	}
	handler.Success(c, constants.SuccessUpdate, spot)
}

// UploadArtwork 为任意广告位上传素材，表单字段 spot_id 与 file
func (h *SpotAdminHandler) UploadArtwork(c *gin.Context) {
	admin, ok := handler.Principal(c)
	if !ok {
		return
	}
	spotID := c.PostForm("spot_id")
	if spotID == "" {
		handler.Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}
	file, f, err := handler.ArtworkFromForm(c)
	if err != nil {
		handler.Fail(c, http.StatusBadRequest, err.Error())
		return
	}
	defer f.Close()

	spot, err := h.artworkService.UploadForSpot(c.Request.Context(), admin, spotID, file)
	if err != nil {
		handler.RawError(c, h.logger, "管理员上传素材失败", err)
		return
	}
	handler.Success(c, constants.SuccessUpdate, spot)
}

// CustomCheckout 按议价总额为广告主创建支付会话
func (h *SpotAdminHandler) CustomCheckout(c *gin.Context) {
	var req types.CustomCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}

	result, err := h.checkoutService.CustomCheckout(c.Request.Context(), service.CustomCheckoutRequest{
		CheckoutRequest: service.CheckoutRequest{
			MailingID: req.MailingID,
			SpotIDs:   req.SpotIDs,
			AdCopyURL: req.AdCopyURL,
			OfferText: req.OfferText,
		},
		Email:        req.Email,
		BusinessName: req.BusinessName,
		AmountCents:  req.AmountCents,
	})
	if err != nil {
		handler.RawError(c, h.logger, "创建议价订单失败", err)
		return
	}
	handler.Success(c, constants.SuccessCreate, result)
}

// ListPayments 按期刊或状态查询支付记录
func (h *SpotAdminHandler) ListPayments(c *gin.Context) {
	filter := model.PaymentFilter{
		MailingID:    c.Query("mailing_id"),
		AdvertiserID: c.Query("advertiser_id"),
		Status:       c.Query("status"),
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil && size > 0 {
		filter.PageSize = size
	}

	payments, total, err := h.adminSpotService.ListPayments(c.Request.Context(), filter)
	if err != nil {
		handler.RawError(c, h.logger, "获取支付记录失败", err)
		return
	}
	handler.Success(c, constants.SuccessGet, gin.H{
		"list":  payments,
		"total": total,
	})
}

// SearchProfiles 按邮箱或商户名搜索账号
func (h *SpotAdminHandler) SearchProfiles(c *gin.Context) {
	profiles, err := h.authService.SearchProfiles(c.Request.Context(), c.Query("keyword"))
	if err != nil {
		handler.RawError(c, h.logger, "搜索账号失败", err)
		return
	}
	handler.Success(c, constants.SuccessGet, profiles)
}
