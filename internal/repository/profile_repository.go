package repository

import (
	"context"
	"fmt"

	"mailspot/internal/model"
)

const profileColumns = `id, email, business_name, password_hash, role, is_placeholder, token, created_at, updated_at`

// ProfileRepository 账号存储库
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	GetByToken(ctx context.Context, token string) (*model.Profile, error)
	UpdateToken(ctx context.Context, id, token string) error
	Claim(ctx context.Context, id, passwordHash string) error
	Search(ctx context.Context, keyword string, limit int) ([]*model.Profile, error)
}

type profileRepository struct {
	db Executor
}

// Create 创建账号，邮箱重复时返回 ErrDuplicate
func (r *profileRepository) Create(ctx context.Context, p *model.Profile) error {
	query := `INSERT INTO profiles (` + profileColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Email, p.BusinessName, p.PasswordHash, p.Role, p.IsPlaceholder, p.Token, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("创建账号失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取账号
func (r *profileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
}

// GetByEmail 根据邮箱获取账号
func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = ?`, email)
}

// GetByToken 根据登录令牌获取账号
func (r *profileRepository) GetByToken(ctx context.Context, token string) (*model.Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE token = ?`, token)
}

func (r *profileRepository) getOne(ctx context.Context, query string, arg interface{}) (*model.Profile, error) {
	var p model.Profile
	if err := r.db.GetContext(ctx, &p, query, arg); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// UpdateToken 更新登录令牌，空字符串表示注销
func (r *profileRepository) UpdateToken(ctx context.Context, id, token string) error {
	query := `UPDATE profiles SET token = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, nullable(token), id); err != nil {
		return fmt.Errorf("更新令牌失败: %w", err)
	}
	return nil
}

// Claim 占位账号设置密码并转为正式账号
func (r *profileRepository) Claim(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE profiles SET password_hash = ?, is_placeholder = false, updated_at = UTC_TIMESTAMP()
		WHERE id = ? AND is_placeholder = true`
	result, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("认领账号失败: %w", err)
	}
	return requireAffected(result)
}

// Search 按邮箱或商家名搜索账号
func (r *profileRepository) Search(ctx context.Context, keyword string, limit int) ([]*model.Profile, error) {
	profiles := []*model.Profile{}
	query := `SELECT ` + profileColumns + ` FROM profiles
		WHERE email LIKE ? OR business_name LIKE ?
		ORDER BY created_at DESC LIMIT ?`
	like := "%" + keyword + "%"
	if err := r.db.SelectContext(ctx, &profiles, query, like, like, limit); err != nil {
		return nil, err
	}
	return profiles, nil
}
