package model

import (
	"database/sql"
	"time"
)

// 角色
const (
	RoleAdvertiser = "advertiser"
	RoleAdmin      = "admin"
)

// Profile 广告主或管理员账号
type Profile struct {
	ID            string         `db:"id" json:"id"`
	Email         string         `db:"email" json:"email"`
	BusinessName  string         `db:"business_name" json:"business_name"`
	PasswordHash  sql.NullString `db:"password_hash" json:"-"`
	Role          string         `db:"role" json:"role"`
	IsPlaceholder bool           `db:"is_placeholder" json:"is_placeholder"`
	Token         sql.NullString `db:"token" json:"-"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// IsAdmin 是否为管理员
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}
