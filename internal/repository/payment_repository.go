package repository

import (
	"context"
	"fmt"
	"strings"

	"mailspot/internal/model"
)

const paymentColumns = `id, ad_spot_id, advertiser_id, mailing_id, amount_cents, status, source,
	stripe_session_id, stripe_payment_intent_id, created_at, updated_at`

// PaymentRepository 支付记录存储库
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	Complete(ctx context.Context, sessionID, spotID, paymentIntentID string) (bool, error)
	Fail(ctx context.Context, sessionID, spotID string) error
	FailPendingBySession(ctx context.Context, sessionID string) error
	ListBySession(ctx context.Context, sessionID string) ([]model.Payment, error)
	ListByAdvertiser(ctx context.Context, advertiserID string) ([]model.Payment, error)
	List(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, int, error)
}

type paymentRepository struct {
	db Executor
}

// Create 创建支付记录
func (r *paymentRepository) Create(ctx context.Context, p *model.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.AdSpotID, p.AdvertiserID, p.MailingID, p.AmountCents, p.Status, p.Source,
		p.StripeSessionID, p.StripePaymentIntentID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("创建支付记录失败: %w", err)
	}
	return nil
}

// Complete pending/failed -> completed，已完成的记录不会重复计入，返回 false
func (r *paymentRepository) Complete(ctx context.Context, sessionID, spotID, paymentIntentID string) (bool, error) {
	query := `UPDATE payments
		SET status = 'completed', stripe_payment_intent_id = ?, updated_at = UTC_TIMESTAMP()
		WHERE stripe_session_id = ? AND ad_spot_id = ? AND status IN ('pending', 'failed')`
	result, err := r.db.ExecContext(ctx, query, nullable(paymentIntentID), sessionID, spotID)
	if err != nil {
		return false, fmt.Errorf("更新支付状态失败: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Fail 将单个广告位的待支付记录标记为失败
func (r *paymentRepository) Fail(ctx context.Context, sessionID, spotID string) error {
	query := `UPDATE payments SET status = 'failed', updated_at = UTC_TIMESTAMP()
		WHERE stripe_session_id = ? AND ad_spot_id = ? AND status = 'pending'`
	if _, err := r.db.ExecContext(ctx, query, sessionID, spotID); err != nil {
		return fmt.Errorf("更新支付状态失败: %w", err)
	}
	return nil
}

// FailPendingBySession 会话过期时关闭其全部待支付记录
func (r *paymentRepository) FailPendingBySession(ctx context.Context, sessionID string) error {
	query := `UPDATE payments SET status = 'failed', updated_at = UTC_TIMESTAMP()
		WHERE stripe_session_id = ? AND status = 'pending'`
	if _, err := r.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("更新支付状态失败: %w", err)
	}
	return nil
}

// ListBySession 获取会话下的支付记录
func (r *paymentRepository) ListBySession(ctx context.Context, sessionID string) ([]model.Payment, error) {
	payments := []model.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE stripe_session_id = ?`
	if err := r.db.SelectContext(ctx, &payments, query, sessionID); err != nil {
		return nil, err
	}
	return payments, nil
}

// ListByAdvertiser 获取广告主的支付记录
func (r *paymentRepository) ListByAdvertiser(ctx context.Context, advertiserID string) ([]model.Payment, error) {
	payments := []model.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE advertiser_id = ? ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &payments, query, advertiserID); err != nil {
		return nil, err
	}
	return payments, nil
}

// List 管理端分页查询
func (r *paymentRepository) List(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, int, error) {
	var conditions []string
	var args []interface{}
	if filter.MailingID != "" {
		conditions = append(conditions, "mailing_id = ?")
		args = append(args, filter.MailingID)
	}
	if filter.AdvertiserID != "" {
		conditions = append(conditions, "advertiser_id = ?")
		args = append(args, filter.AdvertiserID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM payments`+where, args...); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.Payment{}, 0, nil
	}

	offset := (filter.Page - 1) * filter.PageSize
	payments := []model.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &payments, query, append(args, filter.PageSize, offset)...); err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
