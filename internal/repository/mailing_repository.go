package repository

import (
	"context"
	"fmt"

	"mailspot/internal/model"
)

// MailingRepository 期刊存储库
type MailingRepository interface {
	Create(ctx context.Context, mailing *model.Mailing) error
	GetByID(ctx context.Context, id string) (*model.Mailing, error)
	List(ctx context.Context, status string) ([]model.MailingSummary, error)
	Update(ctx context.Context, mailing *model.Mailing) error
	Delete(ctx context.Context, id string) error
}

type mailingRepository struct {
	db Executor
}

// Create 创建期刊
func (r *mailingRepository) Create(ctx context.Context, mailing *model.Mailing) error {
	query := `INSERT INTO mailings (id, title, zip_codes, scheduled_date, spot_price_cents, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		mailing.ID, mailing.Title, mailing.ZipCodes, mailing.ScheduledDate,
		mailing.SpotPriceCents, mailing.Status, mailing.CreatedAt, mailing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("创建期刊失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取期刊
func (r *mailingRepository) GetByID(ctx context.Context, id string) (*model.Mailing, error) {
	var mailing model.Mailing
	query := `SELECT id, title, zip_codes, scheduled_date, spot_price_cents, status, created_at, updated_at
		FROM mailings WHERE id = ?`
	if err := r.db.GetContext(ctx, &mailing, query, id); err != nil {
		return nil, notFound(err)
	}
	return &mailing, nil
}

// List 获取期刊列表及售卖概况，status为空时返回全部
func (r *mailingRepository) List(ctx context.Context, status string) ([]model.MailingSummary, error) {
	query := `SELECT m.id, m.title, m.zip_codes, m.scheduled_date, m.spot_price_cents, m.status, m.created_at, m.updated_at,
			COALESCE(SUM(s.status = 'available'), 0) AS available_spots,
			COALESCE(SUM(s.status <> 'available'), 0) AS sold_spots
		FROM mailings m
		LEFT JOIN ad_spots s ON s.mailing_id = m.id`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE m.status = ?`
		args = append(args, status)
	}
	query += ` GROUP BY m.id ORDER BY m.scheduled_date ASC`

	mailings := []model.MailingSummary{}
	if err := r.db.SelectContext(ctx, &mailings, query, args...); err != nil {
		return nil, err
	}
	return mailings, nil
}

// Update 更新期刊基本信息
func (r *mailingRepository) Update(ctx context.Context, mailing *model.Mailing) error {
	query := `UPDATE mailings
		SET title = ?, zip_codes = ?, scheduled_date = ?, spot_price_cents = ?, status = ?, updated_at = UTC_TIMESTAMP()
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		mailing.Title, mailing.ZipCodes, mailing.ScheduledDate, mailing.SpotPriceCents, mailing.Status, mailing.ID)
	if err != nil {
		return fmt.Errorf("更新期刊失败: %w", err)
	}
	return nil
}

// Delete 删除期刊
func (r *mailingRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM mailings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("删除期刊失败: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return ErrNotFound
	}
	return nil
}
