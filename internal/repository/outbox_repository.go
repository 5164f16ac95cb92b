package repository

import (
	"context"
	"fmt"
	"time"

	"mailspot/internal/model"
)

// OutboxRepository 邮件发件箱存储库
type OutboxRepository interface {
	Enqueue(ctx context.Context, email *model.OutboxEmail) error
	ListPending(ctx context.Context, limit int) ([]model.OutboxEmail, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkAttemptFailed(ctx context.Context, id int64, errMsg string, final bool) error
}

type outboxRepository struct {
	db Executor
}

// Enqueue 写入待发送邮件
func (r *outboxRepository) Enqueue(ctx context.Context, e *model.OutboxEmail) error {
	query := `INSERT INTO email_outbox (email_type, recipient, payload, status, attempts, created_at)
		VALUES (?, ?, ?, 'pending', 0, ?)`
	result, err := r.db.ExecContext(ctx, query, e.EmailType, e.Recipient, []byte(e.Payload), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("写入邮件发件箱失败: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		e.ID = id
	}
	e.Status = model.OutboxStatusPending
	return nil
}

// ListPending 获取待发送邮件
func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]model.OutboxEmail, error) {
	emails := []model.OutboxEmail{}
	query := `SELECT id, email_type, recipient, payload, status, attempts, last_error, created_at, sent_at
		FROM email_outbox WHERE status = 'pending' ORDER BY id ASC LIMIT ?`
	if err := r.db.SelectContext(ctx, &emails, query, limit); err != nil {
		return nil, err
	}
	return emails, nil
}

// MarkSent 标记已发送
func (r *outboxRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE email_outbox SET status = 'sent', sent_at = ?, attempts = attempts + 1 WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("更新邮件状态失败: %w", err)
	}
	return nil
}

// MarkAttemptFailed 记录一次发送失败，final 为 true 时不再重试
func (r *outboxRepository) MarkAttemptFailed(ctx context.Context, id int64, errMsg string, final bool) error {
	status := model.OutboxStatusPending
	if final {
		status = model.OutboxStatusFailed
	}
	query := `UPDATE email_outbox SET status = ?, attempts = attempts + 1, last_error = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, status, errMsg, id); err != nil {
		return fmt.Errorf("更新邮件状态失败: %w", err)
	}
	return nil
}
