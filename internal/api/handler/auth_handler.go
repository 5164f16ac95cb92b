package handler

import (
	"net/http"

	"mailspot/internal/constants"
	"mailspot/internal/service"
	"mailspot/internal/types"
	"mailspot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthHandler 账号注册、登录与认领
type AuthHandler struct {
	authService *service.AuthService
	logger      *logger.Logger
}

// NewAuthHandler 创建账号处理器实例
func NewAuthHandler(authService *service.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register 注册广告主账号
// @Summary 注册
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body types.RegisterRequest true "注册信息"
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}

	profile, token, err := h.authService.Register(c.Request.Context(), req.Email, req.Password, req.BusinessName)
	if err != nil {
		Error(c, h.logger, "注册失败", err, constants.ErrInternalServer)
		return
	}

	Success(c, constants.SuccessRegister, gin.H{
		"token":   token,
		"profile": profile,
	})
}

// Login 登录，返回访问令牌
// @Summary 登录
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body types.LoginRequest true "登录信息"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}

	profile, token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		Error(c, h.logger, "登录失败", err, constants.ErrInternalServer)
		return
	}

	Success(c, constants.SuccessLogin, gin.H{
		"token":   token,
		"profile": profile,
	})
}

// Claim 占位账号通过邮件链接设置密码
// @Summary 认领账号
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body types.ClaimRequest true "认领令牌与新密码"
// @Router /api/auth/claim [post]
func (h *AuthHandler) Claim(c *gin.Context) {
	var req types.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}

	profile, token, err := h.authService.Claim(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		Error(c, h.logger, "认领账号失败", err, constants.ErrInternalServer)
		return
	}

	Success(c, constants.SuccessLogin, gin.H{
		"token":   token,
		"profile": profile,
	})
}

// Me 当前账号信息
func (h *AuthHandler) Me(c *gin.Context) {
	profile, ok := Principal(c)
	if !ok {
		return
	}
	Success(c, constants.SuccessGet, profile)
}

// Logout 注销当前令牌
func (h *AuthHandler) Logout(c *gin.Context) {
	profile, ok := Principal(c)
	if !ok {
		return
	}
	if err := h.authService.Logout(c.Request.Context(), profile); err != nil {
		Error(c, h.logger, "注销失败", err, constants.ErrInternalServer)
		return
	}
	Success(c, constants.SuccessUpdate, nil)
}
