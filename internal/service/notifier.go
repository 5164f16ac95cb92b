package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mailspot/internal/metrics"
	"mailspot/internal/model"
	"mailspot/internal/repository"
	"mailspot/pkg/email"
	"mailspot/pkg/logger"
)

const (
	outboxBatchSize   = 20
	outboxMaxAttempts = 5
)

// EmailSender 由 *email.Service 实现
type EmailSender interface {
	Send(ctx context.Context, emailType email.EmailType, to string, data map[string]interface{}) error
}

// Notifier 事务邮件发件箱：业务事务内写入，定时任务异步发送
type Notifier struct {
	store   repository.Store
	sender  EmailSender
	siteURL string
	logger  *logger.Logger
}

// NewNotifier 创建邮件通知服务
func NewNotifier(store repository.Store, sender EmailSender, siteURL string, logger *logger.Logger) *Notifier {
	return &Notifier{
		store:   store,
		sender:  sender,
		siteURL: strings.TrimRight(siteURL, "/"),
		logger:  logger,
	}
}

func (n *Notifier) dashboardURL() string {
	return n.siteURL + "/dashboard"
}

// enqueue 在调用方的事务中写入一封待发送邮件
func (n *Notifier) enqueue(ctx context.Context, tx repository.Store, emailType email.EmailType, to string, data map[string]interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化邮件内容失败: %w", err)
	}
	return tx.Outbox().Enqueue(ctx, &model.OutboxEmail{
		EmailType: string(emailType),
		Recipient: to,
		Payload:   payload,
		Status:    model.OutboxStatusPending,
		CreatedAt: time.Now().UTC(),
	})
}

// EnqueuePurchaseConfirmation 购买成功通知
func (n *Notifier) EnqueuePurchaseConfirmation(ctx context.Context, tx repository.Store, advertiser *model.Profile, mailing *model.Mailing, spots []model.AdSpot, amountCents int64) error {
	trackingURLs := make([]string, 0, len(spots))
	for _, spot := range spots {
		if spot.TrackingURL.Valid {
			trackingURLs = append(trackingURLs, spot.TrackingURL.String)
		}
	}
	return n.enqueue(ctx, tx, email.TypePurchaseConfirmation, advertiser.Email, map[string]interface{}{
		"BusinessName":  advertiser.BusinessName,
		"MailingTitle":  mailing.Title,
		"SpotCount":     len(spots),
		"ScheduledDate": mailing.ScheduledDate.Format("January 2, 2006"),
		"AmountPaid":    FormatCents(amountCents),
		"TrackingURLs":  trackingURLs,
		"DashboardURL":  n.dashboardURL(),
	})
}

// EnqueueWelcome 欢迎邮件，claimURL 非空时提示认领占位账号
func (n *Notifier) EnqueueWelcome(ctx context.Context, tx repository.Store, profile *model.Profile, claimURL string) error {
	return n.enqueue(ctx, tx, email.TypeWelcome, profile.Email, map[string]interface{}{
		"BusinessName": profile.BusinessName,
		"ClaimURL":     claimURL,
		"DashboardURL": n.dashboardURL(),
	})
}

// DispatchPending 发送一批待发邮件，返回成功和失败数量
func (n *Notifier) DispatchPending(ctx context.Context) (int, int, error) {
	pending, err := n.store.Outbox().ListPending(ctx, outboxBatchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("获取待发送邮件失败: %w", err)
	}

	sent, failed := 0, 0
	for _, msg := range pending {
		if ctx.Err() != nil {
			break
		}

		var data map[string]interface{}
		if err := json.Unmarshal(msg.Payload, &data); err != nil {
			n.logger.Error("邮件内容损坏，放弃发送", "outbox_id", msg.ID, "error", err)
			if markErr := n.store.Outbox().MarkAttemptFailed(ctx, msg.ID, err.Error(), true); markErr != nil {
				n.logger.Error("更新邮件状态失败", "outbox_id", msg.ID, "error", markErr)
			}
			failed++
			continue
		}

		if err := n.sender.Send(ctx, email.EmailType(msg.EmailType), msg.Recipient, data); err != nil {
			final := msg.Attempts+1 >= outboxMaxAttempts
			n.logger.Warn("发送邮件失败",
				"outbox_id", msg.ID,
				"type", msg.EmailType,
				"attempts", msg.Attempts+1,
				"final", final,
				"error", err)
			if markErr := n.store.Outbox().MarkAttemptFailed(ctx, msg.ID, err.Error(), final); markErr != nil {
				n.logger.Error("更新邮件状态失败", "outbox_id", msg.ID, "error", markErr)
			}
			metrics.EmailsSent.WithLabelValues(msg.EmailType, "failed").Inc()
			failed++
			continue
		}

		if err := n.store.Outbox().MarkSent(ctx, msg.ID, time.Now().UTC()); err != nil {
			n.logger.Error("更新邮件状态失败", "outbox_id", msg.ID, "error", err)
		}
		metrics.EmailsSent.WithLabelValues(msg.EmailType, "sent").Inc()
		sent++
	}
	return sent, failed, nil
}

// FormatCents 美分金额格式化为 $1,234.50
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	dollars := fmt.Sprintf("%d", cents/100)
	var b strings.Builder
	for i, r := range dollars {
		if i > 0 && (len(dollars)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents%100)
}
