package repository

import (
	"context"
	"fmt"

	"mailspot/internal/model"
)

const blogPostColumns = `id, slug, title, content, author, is_published, published_at, created_at, updated_at`

// BlogPostRepository 博客文章存储库
type BlogPostRepository interface {
	List(ctx context.Context, page, limit int, publishedOnly bool) ([]model.BlogPost, error)
	Count(ctx context.Context, publishedOnly bool) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.BlogPost, error)
	GetBySlug(ctx context.Context, slug string) (*model.BlogPost, error)
	Create(ctx context.Context, post *model.BlogPost) error
	Update(ctx context.Context, post *model.BlogPost) error
	Delete(ctx context.Context, id int64) error
}

type blogPostRepository struct {
	db Executor
}

// List 获取文章列表（分页）
func (r *blogPostRepository) List(ctx context.Context, page, limit int, publishedOnly bool) ([]model.BlogPost, error) {
	posts := []model.BlogPost{}
	query := `SELECT ` + blogPostColumns + ` FROM blog_posts`
	if publishedOnly {
		query += ` WHERE is_published = true`
	}
	query += ` ORDER BY published_at DESC LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &posts, query, limit, (page-1)*limit); err != nil {
		return nil, err
	}
	return posts, nil
}

// Count 获取文章总数
func (r *blogPostRepository) Count(ctx context.Context, publishedOnly bool) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM blog_posts`
	if publishedOnly {
		query += ` WHERE is_published = true`
	}
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, err
	}
	return count, nil
}

// GetByID 根据ID获取文章
func (r *blogPostRepository) GetByID(ctx context.Context, id int64) (*model.BlogPost, error) {
	var post model.BlogPost
	if err := r.db.GetContext(ctx, &post, `SELECT `+blogPostColumns+` FROM blog_posts WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// GetBySlug 根据slug获取文章
func (r *blogPostRepository) GetBySlug(ctx context.Context, slug string) (*model.BlogPost, error) {
	var post model.BlogPost
	if err := r.db.GetContext(ctx, &post, `SELECT `+blogPostColumns+` FROM blog_posts WHERE slug = ?`, slug); err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// Create 创建文章
func (r *blogPostRepository) Create(ctx context.Context, p *model.BlogPost) error {
	query := `INSERT INTO blog_posts (slug, title, content, author, is_published, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(), UTC_TIMESTAMP())`
	result, err := r.db.ExecContext(ctx, query, p.Slug, p.Title, p.Content, p.Author, p.IsPublished, p.PublishedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("创建文章失败: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

// Update 更新文章
func (r *blogPostRepository) Update(ctx context.Context, p *model.BlogPost) error {
	query := `UPDATE blog_posts
		SET slug = ?, title = ?, content = ?, author = ?, is_published = ?, published_at = ?, updated_at = UTC_TIMESTAMP()
		WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, p.Slug, p.Title, p.Content, p.Author, p.IsPublished, p.PublishedAt, p.ID); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("更新文章失败: %w", err)
	}
	return nil
}

// Delete 删除文章
func (r *blogPostRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("删除文章失败: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return ErrNotFound
	}
	return nil
}
