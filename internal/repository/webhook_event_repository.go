package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mailspot/internal/model"
)

// WebhookEventRepository 支付回调事件去重
type WebhookEventRepository interface {
	// Record 记录事件，返回该事件此前是否已处理完成
	Record(ctx context.Context, eventID, eventType string) (alreadyProcessed bool, err error)
	MarkProcessed(ctx context.Context, eventID string, at time.Time) error
	MarkError(ctx context.Context, eventID, errMsg string) error
}

type webhookEventRepository struct {
	db Executor
}

// Record 记录事件
func (r *webhookEventRepository) Record(ctx context.Context, eventID, eventType string) (bool, error) {
	query := `INSERT IGNORE INTO webhook_events (provider_event_id, event_type, created_at) VALUES (?, ?, UTC_TIMESTAMP())`
	if _, err := r.db.ExecContext(ctx, query, eventID, eventType); err != nil {
		return false, fmt.Errorf("记录回调事件失败: %w", err)
	}

	var event model.WebhookEvent
	err := r.db.GetContext(ctx, &event, `SELECT provider_event_id, event_type, processed_at, processing_error, created_at
		FROM webhook_events WHERE provider_event_id = ?`, eventID)
	if err != nil {
		return false, fmt.Errorf("查询回调事件失败: %w", err)
	}
	return event.ProcessedAt.Valid, nil
}

// MarkProcessed 标记事件已处理
func (r *webhookEventRepository) MarkProcessed(ctx context.Context, eventID string, at time.Time) error {
	query := `UPDATE webhook_events SET processed_at = ?, processing_error = NULL WHERE provider_event_id = ?`
	if _, err := r.db.ExecContext(ctx, query, at, eventID); err != nil {
		return fmt.Errorf("更新回调事件失败: %w", err)
	}
	return nil
}

// MarkError 记录事件处理失败原因
func (r *webhookEventRepository) MarkError(ctx context.Context, eventID, errMsg string) error {
	query := `UPDATE webhook_events SET processing_error = ? WHERE provider_event_id = ?`
	if _, err := r.db.ExecContext(ctx, query, sql.NullString{String: errMsg, Valid: errMsg != ""}, eventID); err != nil {
		return fmt.Errorf("更新回调事件失败: %w", err)
	}
	return nil
}
