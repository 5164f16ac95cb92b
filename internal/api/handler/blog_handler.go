package handler

import (
	"strconv"

	"mailspot/internal/constants"
	"mailspot/internal/service"
	"mailspot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// BlogHandler 博客文章
type BlogHandler struct {
	blogService *service.BlogService
	logger      *logger.Logger
}

// NewBlogHandler 创建博客处理器实例
func NewBlogHandler(blogService *service.BlogService, logger *logger.Logger) *BlogHandler {
	return &BlogHandler{
		blogService: blogService,
		logger:      logger,
	}
}

// Pagination 解析分页参数
func Pagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 50 {
		limit = 10
	}
	return page, limit
}

// GetPosts 获取已发布文章列表
// @Summary 文章列表
// @Tags 博客
// @Produce json
// @Param page query int false "页码，默认1"
// @Param limit query int false "每页条数，默认10"
// @Router /api/blog [get]
func (h *BlogHandler) GetPosts(c *gin.Context) {
	page, limit := Pagination(c)
	posts, err := h.blogService.GetPosts(c.Request.Context(), page, limit)
	if err != nil {
		Error(c, h.logger, "获取文章列表失败", err, constants.ErrInternalServer)
		return
	}
	Success(c, constants.SuccessGet, posts)
}

// GetPostBySlug 获取文章详情
// @Summary 文章详情
// @Tags 博客
// @Produce json
// @Param slug path string true "文章标识"
// @Router /api/blog/{slug} [get]
func (h *BlogHandler) GetPostBySlug(c *gin.Context) {
	post, err := h.blogService.GetPostBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		Error(c, h.logger, "获取文章详情失败", err, constants.ErrInternalServer)
		return
	}
	Success(c, constants.SuccessGet, post)
}
