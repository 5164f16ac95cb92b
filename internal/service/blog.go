package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"mailspot/internal/model"
	"mailspot/internal/repository"
	"mailspot/pkg/logger"

	"github.com/redis/go-redis/v9"
	"k8s.io/apimachinery/pkg/util/rand"
)

const blogCacheTTL = 5 * time.Minute

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// BlogPostInput 创建或修改文章的参数
type BlogPostInput struct {
	Slug        string
	Title       string
	Content     string
	Author      string
	IsPublished bool
}

// BlogService 博客文章服务
type BlogService struct {
	store       repository.Store
	redisClient *redis.Client
	logger      *logger.Logger
}

// NewBlogService 创建博客服务实例
func NewBlogService(store repository.Store, redisClient *redis.Client, logger *logger.Logger) *BlogService {
	return &BlogService{store: store, redisClient: redisClient, logger: logger}
}

// Slugify 标题转换为URL友好的slug
func Slugify(title string) string {
	slug := slugCleaner.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// GetPosts 获取已发布文章分页列表
func (s *BlogService) GetPosts(ctx context.Context, page, limit int) (*model.PaginatedBlogPosts, error) {
	cacheKey := fmt.Sprintf("blog:list:%d:%d", page, limit)
	if cached, err := s.redisClient.Get(ctx, cacheKey).Bytes(); err == nil {
		var result model.PaginatedBlogPosts
		if err := json.Unmarshal(cached, &result); err == nil {
			return &result, nil
		}
	}

	result, err := s.list(ctx, page, limit, true)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		s.redisClient.Set(ctx, cacheKey, data, blogCacheTTL)
	}
	return result, nil
}

// GetPostsAdmin 管理员获取全部文章（含草稿）
func (s *BlogService) GetPostsAdmin(ctx context.Context, page, limit int) (*model.PaginatedBlogPosts, error) {
	return s.list(ctx, page, limit, false)
}

func (s *BlogService) list(ctx context.Context, page, limit int, publishedOnly bool) (*model.PaginatedBlogPosts, error) {
	total, err := s.store.BlogPosts().Count(ctx, publishedOnly)
	if err != nil {
		s.logger.Error("获取文章总数失败", "error", err)
		return nil, err
	}
	posts, err := s.store.BlogPosts().List(ctx, page, limit, publishedOnly)
	if err != nil {
		s.logger.Error("获取文章列表失败", "error", err)
		return nil, err
	}
	return &model.PaginatedBlogPosts{Total: total, Items: posts}, nil
}

// GetPostBySlug 获取已发布文章详情
func (s *BlogService) GetPostBySlug(ctx context.Context, slug string) (*model.BlogPost, error) {
	cacheKey := "blog:detail:" + slug
	if cached, err := s.redisClient.Get(ctx, cacheKey).Bytes(); err == nil {
		var post model.BlogPost
		if err := json.Unmarshal(cached, &post); err == nil {
			return &post, nil
		}
	}

	post, err := s.store.BlogPosts().GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("获取文章详情失败", "slug", slug, "error", err)
		return nil, err
	}
	if !post.IsPublished {
		return nil, ErrNotFound
	}

	if data, err := json.Marshal(post); err == nil {
		s.redisClient.Set(ctx, cacheKey, data, blogCacheTTL)
	}
	return post, nil
}

// InvalidateCache 使博客缓存失效
func (s *BlogService) InvalidateCache(ctx context.Context) error {
	iter := s.redisClient.Scan(ctx, 0, "blog:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.redisClient.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Error("删除缓存失败", "key", iter.Val(), "error", err)
		}
	}
	return iter.Err()
}

func (in BlogPostInput) toPost() (*model.BlogPost, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalidf("title is required")
	}
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return nil, invalidf("slug is required")
	}
	return &model.BlogPost{
		Slug:        slug,
		Title:       title,
		Content:     in.Content,
		Author:      strings.TrimSpace(in.Author),
		IsPublished: in.IsPublished,
	}, nil
}

// CreatePost 创建文章，slug冲突时追加随机后缀
func (s *BlogService) CreatePost(ctx context.Context, in BlogPostInput) (*model.BlogPost, error) {
	post, err := in.toPost()
	if err != nil {
		return nil, err
	}
	post.PublishedAt = time.Now().UTC()

	err = s.store.BlogPosts().Create(ctx, post)
	if errors.Is(err, repository.ErrDuplicate) {
		post.Slug = post.Slug + "-" + rand.String(5)
		err = s.store.BlogPosts().Create(ctx, post)
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalidf("slug %q already exists", post.Slug)
		}
		return nil, err
	}

	s.InvalidateCache(ctx)
	return post, nil
}

// UpdatePost 更新文章；由草稿转为发布时刷新发布时间
func (s *BlogService) UpdatePost(ctx context.Context, id int64, in BlogPostInput) (*model.BlogPost, error) {
	existing, err := s.store.BlogPosts().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	post, err := in.toPost()
	if err != nil {
		return nil, err
	}
	post.ID = existing.ID
	post.PublishedAt = existing.PublishedAt
	if post.IsPublished && !existing.IsPublished {
		post.PublishedAt = time.Now().UTC()
	}

	if err := s.store.BlogPosts().Update(ctx, post); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalidf("slug %q already exists", post.Slug)
		}
		return nil, err
	}

	s.InvalidateCache(ctx)
	return post, nil
}

// DeletePost 删除文章
func (s *BlogService) DeletePost(ctx context.Context, id int64) error {
	if err := s.store.BlogPosts().Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.InvalidateCache(ctx)
	return nil
}
