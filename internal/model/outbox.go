package model

import (
	"database/sql"
	"encoding/json"
	"time"
)

// 邮件发件箱状态
const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

// OutboxEmail 待发送的事务邮件，与业务写入同一事务落库
type OutboxEmail struct {
	ID        int64           `db:"id"`
	EmailType string          `db:"email_type"`
	Recipient string          `db:"recipient"`
	Payload   json.RawMessage `db:"payload"`
	Status    string          `db:"status"`
	Attempts  int             `db:"attempts"`
	LastError sql.NullString  `db:"last_error"`
	CreatedAt time.Time       `db:"created_at"`
	SentAt    sql.NullTime    `db:"sent_at"`
}

// WebhookEvent 已接收的支付回调事件，用于去重
type WebhookEvent struct {
	ProviderEventID string         `db:"provider_event_id"`
	EventType       string         `db:"event_type"`
	ProcessedAt     sql.NullTime   `db:"processed_at"`
	ProcessingError sql.NullString `db:"processing_error"`
	CreatedAt       time.Time      `db:"created_at"`
}
