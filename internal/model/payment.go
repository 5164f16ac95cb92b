package model

import (
	"database/sql"
	"time"
)

// 支付状态
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// 支付来源
const (
	PaymentSourceCheckout = "checkout"
	PaymentSourceCustom   = "custom"
	PaymentSourceAdmin    = "admin"
)

// Payment 一个广告位对应的一笔支付记录
type Payment struct {
	ID                    string         `db:"id" json:"id"`
	AdSpotID              string         `db:"ad_spot_id" json:"ad_spot_id"`
	AdvertiserID          string         `db:"advertiser_id" json:"advertiser_id"`
	MailingID             string         `db:"mailing_id" json:"mailing_id"`
	AmountCents           int64          `db:"amount_cents" json:"amount_cents"`
	Status                string         `db:"status" json:"status"`
	Source                string         `db:"source" json:"source"`
	StripeSessionID       sql.NullString `db:"stripe_session_id" json:"stripe_session_id"`
	StripePaymentIntentID sql.NullString `db:"stripe_payment_intent_id" json:"stripe_payment_intent_id"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updated_at"`
}

// PaymentFilter 管理端查询条件
type PaymentFilter struct {
	MailingID    string
	AdvertiserID string
	Status       string
	Page         int
	PageSize     int
}
