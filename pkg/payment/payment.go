package payment

import (
	"context"
	"errors"
	"time"
)

// 支付回调事件类型
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	// 延迟到账的支付方式在会话完成后才会发出结果
	EventCheckoutAsyncSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncFailed    = "checkout.session.async_payment_failed"
)

// ErrInvalidSignature 回调签名校验失败
var ErrInvalidSignature = errors.New("invalid webhook signature")

// LineItem 支付页面上的一行商品
type LineItem struct {
	Name        string
	Description string
	AmountCents int64
}

// SessionRequest 创建支付会话的参数
type SessionRequest struct {
	CustomerEmail     string
	ClientReferenceID string
	LineItems         []LineItem
	Metadata          map[string]string
	SuccessURL        string
	CancelURL         string
	ExpiresAt         time.Time
}

// Session 支付会话
type Session struct {
	ID              string
	URL             string
	AmountTotal     int64
	PaymentStatus   string
	PaymentIntentID string
	Metadata        map[string]string
}

// Event 已验签的支付回调事件
type Event struct {
	ID      string
	Type    string
	Session *Session
}

// Gateway 支付服务商
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
	ExpireCheckoutSession(ctx context.Context, sessionID string) error
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
