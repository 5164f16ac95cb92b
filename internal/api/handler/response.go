package handler

import (
	"errors"
	"net/http"

	"mailspot/internal/constants"
	"mailspot/internal/middleware"
	"mailspot/internal/model"
	"mailspot/internal/service"
	"mailspot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Success 返回成功响应
func Success(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": http.StatusOK,
		"msg":  msg,
		"data": data,
	})
}

// Fail 返回错误响应，code 与 HTTP 状态码一致
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"code": status,
		"msg":  msg,
	})
}

// StatusFor 将业务错误映射为 HTTP 状态码
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSpotUnavailable), errors.Is(err, service.ErrMailingHasSales),
		errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrCheckoutInProgress):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrPaymentProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage 对外只返回固定文案，参数错误除外
func publicMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, service.ErrInvalidSignature):
		return constants.ErrInvalidSig
	case errors.Is(err, service.ErrUnauthorized):
		return constants.ErrUnauthorized
	case errors.Is(err, service.ErrInvalidCredentials):
		return constants.ErrInvalidCredentials
	case errors.Is(err, service.ErrForbidden):
		return constants.ErrForbidden
	case errors.Is(err, service.ErrNotFound):
		return constants.ErrNotFound
	case errors.Is(err, service.ErrSpotUnavailable):
		return constants.ErrSpotUnavailable
	case errors.Is(err, service.ErrMailingHasSales):
		return constants.ErrMailingHasSales
	case errors.Is(err, service.ErrEmailTaken):
		return constants.ErrEmailExists
	case errors.Is(err, service.ErrCheckoutInProgress):
		return constants.ErrCheckoutInProgress
	default:
		return fallback
	}
}

// Error 记录日志并返回对外文案，5xx 使用 fallback
func Error(c *gin.Context, log *logger.Logger, logMsg string, err error, fallback string) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(logMsg, "error", err, "path", c.Request.URL.Path)
	} else {
		log.Warn(logMsg, "error", err, "path", c.Request.URL.Path)
	}
	Fail(c, status, publicMessage(err, fallback))
}

// RawError 管理端接口直接返回原始错误信息
func RawError(c *gin.Context, log *logger.Logger, logMsg string, err error) {
	status := StatusFor(err)
	log.Error(logMsg, "error", err, "path", c.Request.URL.Path)
	Fail(c, status, err.Error())
}

// Principal 读取当前账号，缺失时直接返回401
func Principal(c *gin.Context) (*model.Profile, bool) {
	profile, err := middleware.CurrentPrincipal(c)
	if err != nil {
		Fail(c, http.StatusUnauthorized, constants.ErrUnauthorized)
		return nil, false
	}
	return profile, true
}
