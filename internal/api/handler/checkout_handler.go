package handler

import (
	"io"
	"net/http"

	"mailspot/internal/constants"
	"mailspot/internal/service"
	"mailspot/internal/types"
	"mailspot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Stripe 回调体上限
const maxWebhookBodyBytes = 1 << 20

// CheckoutHandler 下单与支付回调
type CheckoutHandler struct {
	checkoutService    *service.CheckoutService
	fulfillmentService *service.FulfillmentService
	logger             *logger.Logger
}

// NewCheckoutHandler 创建下单处理器实例
func NewCheckoutHandler(checkoutService *service.CheckoutService, fulfillmentService *service.FulfillmentService, logger *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService:    checkoutService,
		fulfillmentService: fulfillmentService,
		logger:             logger,
	}
}

// Checkout 预留广告位并创建支付会话
// @Summary 下单
// @Tags 下单
// @Accept json
// @Produce json
// @Param request body types.CheckoutRequest true "期刊与广告位"
// @Success 200 {object} service.CheckoutResult
// @Router /api/checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	advertiser, ok := Principal(c)
	if !ok {
		return
	}

	var req types.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}

	result, err := h.checkoutService.Checkout(c.Request.Context(), advertiser, service.CheckoutRequest{
		MailingID: req.MailingID,
		SpotIDs:   req.SpotIDs,
		AdCopyURL: req.AdCopyURL,
		OfferText: req.OfferText,
	})
	if err != nil {
		Error(c, h.logger, "下单失败", err, constants.ErrCheckoutFailed)
		return
	}

	Success(c, constants.SuccessCreate, result)
}

// StripeWebhook 接收 Stripe 支付回调
// @Summary 支付回调
// @Tags 下单
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "签名"
// @Router /api/webhooks/stripe [post]
func (h *CheckoutHandler) StripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		Fail(c, http.StatusBadRequest, constants.ErrInvalidPayload)
		return
	}

	result, err := h.fulfillmentService.HandleWebhook(c.Request.Context(), body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		Error(c, h.logger, "处理支付回调失败", err, constants.ErrInternalServer)
		return
	}

	Success(c, result.Status, result)
}
