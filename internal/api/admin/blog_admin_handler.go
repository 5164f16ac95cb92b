package admin

import (
	"net/http"
	"strconv"

	"mailspot/internal/api/handler"
	"mailspot/internal/constants"
	"mailspot/internal/service"
	"mailspot/internal/types"
	"mailspot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// BlogAdminHandler 管理员博客管理
type BlogAdminHandler struct {
	blogService *service.BlogService
	logger      *logger.Logger
}

// NewBlogAdminHandler 创建管理员博客处理器
func NewBlogAdminHandler(blogService *service.BlogService, logger *logger.Logger) *BlogAdminHandler {
	return &BlogAdminHandler{
		blogService: blogService,
		logger:      logger,
	}
}

func toBlogInput(req types.BlogPostRequest) service.BlogPostInput {
	return service.BlogPostInput{
		Slug:        req.Slug,
		Title:       req.Title,
		Content:     req.Content,
		Author:      req.Author,
		IsPublished: req.IsPublished,
	}
}

// ListPosts 获取全部文章，包括草稿
func (h *BlogAdminHandler) ListPosts(c *gin.Context) {
	page, limit := handler.Pagination(c)
	posts, err := h.blogService.GetPostsAdmin(c.Request.Context(), page, limit)
	if err != nil {
		handler.RawError(c, h.logger, "获取文章列表失败", err)
		return
	}
	handler.Success(c, constants.SuccessGet, posts)
}

// CreatePost 创建文章
func (h *BlogAdminHandler) CreatePost(c *gin.Context) {
	var req types.BlogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}
	post, err := h.blogService.CreatePost(c.Request.Context(), toBlogInput(req))
	if err != nil {
		handler.RawError(c, h.logger, "创建文章失败", err)
		return
	}
	handler.Success(c, constants.SuccessCreate, post)
}

// UpdatePost 修改文章
func (h *BlogAdminHandler) UpdatePost(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		handler.Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}
	var req types.BlogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}
	post, err := h.blogService.UpdatePost(c.Request.Context(), id, toBlogInput(req))
	if err != nil {
		handler.RawError(c, h.logger, "修改文章失败", err)
		return
	}
	handler.Success(c, constants.SuccessUpdate, post)
}

// DeletePost 删除文章
func (h *BlogAdminHandler) DeletePost(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		handler.Fail(c, http.StatusBadRequest, constants.ErrInvalidParams)
		return
	}
	if err := h.blogService.DeletePost(c.Request.Context(), id); err != nil {
		handler.RawError(c, h.logger, "删除文章失败", err)
		return
	}
	handler.Success(c, constants.SuccessDelete, nil)
}
