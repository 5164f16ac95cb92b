package model

import "time"

// BlogPost 博客文章
type BlogPost struct {
	ID          int64     `db:"id" json:"id"`
	Slug        string    `db:"slug" json:"slug"`
	Title       string    `db:"title" json:"title"`
	Content     string    `db:"content" json:"content"`
	Author      string    `db:"author" json:"author"`
	IsPublished bool      `db:"is_published" json:"is_published"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
	UpdatedAt   time.Time `db:"updated_at" json:"-"`
}

// PaginatedBlogPosts 分页文章结果
type PaginatedBlogPosts struct {
	Total int64      `json:"total"`
	Items []BlogPost `json:"items"`
}
