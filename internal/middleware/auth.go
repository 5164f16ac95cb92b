package middleware

import (
	"context"
	"errors"
	"net/http"

	"mailspot/internal/constants"
	"mailspot/internal/model"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// Authenticator 根据请求令牌解析当前账号
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Profile, error)
}

// ErrNoPrincipal 上下文中没有已认证账号
var ErrNoPrincipal = errors.New("no authenticated principal")

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"code": status, "msg": msg})
}

func authenticate(c *gin.Context, auth Authenticator) (*model.Profile, bool) {
	token := c.GetHeader("Authorization")
	if token == "" {
		abort(c, http.StatusUnauthorized, constants.ErrUnauthorized)
		return nil, false
	}
	profile, err := auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		abort(c, http.StatusUnauthorized, constants.ErrInvalidToken)
		return nil, false
	}
	return profile, true
}

// UserAuth 用户认证中间件，认证通过后将账号写入请求上下文
func UserAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := authenticate(c, auth)
		if !ok {
			return
		}
		c.Set(principalKey, profile)
		c.Next()
	}
}

// AdminAuth 管理员认证中间件
func AdminAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := authenticate(c, auth)
		if !ok {
			return
		}
		if !profile.IsAdmin() {
			abort(c, http.StatusForbidden, constants.ErrInsufficientPermission)
			return
		}
		c.Set(principalKey, profile)
		c.Next()
	}
}

// CurrentPrincipal 获取当前请求的已认证账号
func CurrentPrincipal(c *gin.Context) (*model.Profile, error) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, ErrNoPrincipal
	}
	profile, ok := v.(*model.Profile)
	if !ok || profile == nil {
		return nil, ErrNoPrincipal
	}
	return profile, nil
}
