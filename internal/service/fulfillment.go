package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mailspot/internal/metrics"
	"mailspot/internal/model"
	"mailspot/internal/repository"
	"mailspot/pkg/logger"
	"mailspot/pkg/payment"
)

// 回调处理结果
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
)

// WebhookResult 回调处理结果
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Status    string `json:"status"`
	Fulfilled int    `json:"fulfilled,omitempty"`
}

// checkoutMetadata 支付会话上携带的下单信息
type checkoutMetadata struct {
	spotIDs      []string
	mailingID    string
	advertiserID string
	adCopyURL    string
	offerText    string
}

func parseCheckoutMetadata(meta map[string]string) (*checkoutMetadata, error) {
	m := &checkoutMetadata{
		mailingID:    meta[metaMailingID],
		advertiserID: meta[metaAdvertiserID],
		adCopyURL:    meta[metaAdCopyURL],
		offerText:    meta[metaOfferText],
	}
	for _, id := range strings.Split(meta[metaSpotIDs], ",") {
		if id = strings.TrimSpace(id); id != "" {
			m.spotIDs = append(m.spotIDs, id)
		}
	}
	if len(m.spotIDs) == 0 || m.mailingID == "" || m.advertiserID == "" {
		return nil, invalidf("checkout session metadata is incomplete")
	}
	return m, nil
}

// FulfillmentService 处理支付回调：确认售出、生成落地页、发送通知
type FulfillmentService struct {
	store        repository.Store
	gateway      payment.Gateway
	notifier     *Notifier
	cache        *SpotCache
	trackingBase string
	logger       *logger.Logger
}

// NewFulfillmentService 创建履约服务
func NewFulfillmentService(store repository.Store, gateway payment.Gateway, notifier *Notifier, cache *SpotCache,
	trackingBase string, logger *logger.Logger) *FulfillmentService {
	return &FulfillmentService{
		store:        store,
		gateway:      gateway,
		notifier:     notifier,
		cache:        cache,
		trackingBase: trackingBase,
		logger:       logger,
	}
}

// HandleWebhook 验签并处理一次支付回调，同一事件重复投递不会重复履约
func (s *FulfillmentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	event, err := s.gateway.ParseWebhook(body, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	result := &WebhookResult{EventID: event.ID, EventType: event.Type, Status: WebhookProcessed}
	defer func() {
		metrics.WebhookEvents.WithLabelValues(event.Type, result.Status).Inc()
	}()

	processed, err := s.store.WebhookEvents().Record(ctx, event.ID, event.Type)
	if err != nil {
		result.Status = "error"
		return nil, err
	}
	if processed {
		s.logger.Info("重复的支付回调，已忽略", "event_id", event.ID, "type", event.Type)
		result.Status = WebhookDuplicate
		return result, nil
	}

	switch event.Type {
	case payment.EventCheckoutCompleted, payment.EventCheckoutAsyncSucceeded:
		result.Fulfilled, err = s.completeCheckout(ctx, event.Session)
	case payment.EventCheckoutExpired, payment.EventCheckoutAsyncFailed:
		err = s.expireCheckout(ctx, event.Session)
	default:
		result.Status = WebhookIgnored
	}
	if err != nil {
		result.Status = "error"
		if markErr := s.store.WebhookEvents().MarkError(ctx, event.ID, err.Error()); markErr != nil {
			s.logger.Error("记录回调处理失败原因失败", "event_id", event.ID, "error", markErr)
		}
		s.logger.Error("处理支付回调失败", "event_id", event.ID, "type", event.Type, "error", err)
		return nil, err
	}

	if err := s.store.WebhookEvents().MarkProcessed(ctx, event.ID, time.Now().UTC()); err != nil {
		s.logger.Error("标记回调已处理失败", "event_id", event.ID, "error", err)
	}
	return result, nil
}

// completeCheckout 支付成功：reserved -> purchased，完成支付记录并生成落地页
func (s *FulfillmentService) completeCheckout(ctx context.Context, session *payment.Session) (int, error) {
	if session == nil {
		return 0, invalidf("event has no checkout session")
	}
	if session.PaymentStatus != "" && session.PaymentStatus != "paid" && session.PaymentStatus != "no_payment_required" {
		s.logger.Info("支付尚未完成，跳过履约", "session_id", session.ID, "payment_status", session.PaymentStatus)
		return 0, nil
	}
	meta, err := parseCheckoutMetadata(session.Metadata)
	if err != nil {
		return 0, err
	}

	advertiser, err := s.store.Profiles().GetByID(ctx, meta.advertiserID)
	if err != nil {
		return 0, fmt.Errorf("获取广告主失败: %w", err)
	}
	mailing, err := s.store.Mailings().GetByID(ctx, meta.mailingID)
	if err != nil {
		return 0, fmt.Errorf("获取期刊失败: %w", err)
	}

	now := time.Now().UTC()
	var fulfilled []model.AdSpot
	var paidCents int64
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		fulfilled, paidCents = nil, 0
		found, err := tx.Spots().GetByIDs(ctx, meta.spotIDs)
		if err != nil {
			return err
		}
		byID := make(map[string]model.AdSpot, len(found))
		for _, spot := range found {
			byID[spot.ID] = spot
		}
		payments, err := tx.Payments().ListBySession(ctx, session.ID)
		if err != nil {
			return err
		}
		amountBySpot := make(map[string]int64, len(payments))
		for _, p := range payments {
			amountBySpot[p.AdSpotID] = p.AmountCents
		}

		for _, id := range meta.spotIDs {
			spot, ok := byID[id]
			if !ok {
				s.logger.Error("已支付的广告位不存在，需要人工退款", "session_id", session.ID, "spot_id", id)
				if err := tx.Payments().Fail(ctx, session.ID, id); err != nil {
					return err
				}
				continue
			}

			newlySold, err := s.claimSpot(ctx, tx, &spot, advertiser.ID, meta.adCopyURL, session.ID, now)
			if err != nil {
				return err
			}
			if !newlySold {
				continue
			}
			if _, err := tx.Payments().Complete(ctx, session.ID, id, session.PaymentIntentID); err != nil {
				return err
			}
			if _, err := provisionLandingPage(ctx, tx, &spot, advertiser, meta.offerText, s.trackingBase, now); err != nil {
				return err
			}
			fulfilled = append(fulfilled, spot)
			paidCents += amountBySpot[id]
		}

		if len(fulfilled) == 0 {
			return nil
		}
		return s.notifier.EnqueuePurchaseConfirmation(ctx, tx, advertiser, mailing, fulfilled, paidCents)
	})
	if err != nil {
		return 0, err
	}

	if len(fulfilled) > 0 {
		s.cache.Invalidate(ctx, mailing.ID)
		metrics.RecordSpotTransition(model.SpotStatusPurchased, len(fulfilled))
		s.logger.Info("广告位履约完成",
			"session_id", session.ID,
			"advertiser_id", advertiser.ID,
			"spots", len(fulfilled),
			"amount_cents", paidCents)
	}
	return len(fulfilled), nil
}

// claimSpot 将广告位标记为已售。返回 false 表示此前已履约或已被他人占用
func (s *FulfillmentService) claimSpot(ctx context.Context, tx repository.Store, spot *model.AdSpot,
	advertiserID, adCopyURL, sessionID string, now time.Time) (bool, error) {
	err := tx.Spots().MarkPurchased(ctx, spot.ID, advertiserID, adCopyURL, now)
	if err == nil {
		spot.Status = model.SpotStatusPurchased
		return true, nil
	}
	if !errors.Is(err, repository.ErrConflict) {
		return false, err
	}

	switch {
	case (spot.Status == model.SpotStatusPurchased || spot.Status == model.SpotStatusUploaded) && spot.OwnedBy(advertiserID):
		return false, nil
	case spot.Status == model.SpotStatusAvailable:
		// 预留已被超时回收，但款项已到账且无人占用
		err := tx.Spots().AssignPurchased(ctx, spot.ID, advertiserID, adCopyURL, now)
		if err == nil {
			spot.Status = model.SpotStatusPurchased
			spot.AdvertiserID.String, spot.AdvertiserID.Valid = advertiserID, true
			return true, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return false, err
		}
	}

	s.logger.Error("支付成功但广告位已被他人占用，需要人工退款",
		"session_id", sessionID,
		"spot_id", spot.ID,
		"advertiser_id", advertiserID,
		"current_status", spot.Status)
	return false, tx.Payments().Fail(ctx, sessionID, spot.ID)
}

// expireCheckout 会话过期：释放仍属于该会话的预留并关闭待支付记录
func (s *FulfillmentService) expireCheckout(ctx context.Context, session *payment.Session) error {
	if session == nil {
		return invalidf("event has no checkout session")
	}
	spots, err := s.store.Spots().ListBySession(ctx, session.ID)
	if err != nil {
		return err
	}

	released := 0
	mailingIDs := make([]string, 0, 1)
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		for i := range spots {
			if spots[i].Status != model.SpotStatusReserved {
				continue
			}
			err := tx.Spots().ReleaseStale(ctx, spots[i].ID, session.ID)
			if errors.Is(err, repository.ErrConflict) {
				continue
			}
			if err != nil {
				return err
			}
			released++
			mailingIDs = append(mailingIDs, spots[i].MailingID)
		}
		return tx.Payments().FailPendingBySession(ctx, session.ID)
	})
	if err != nil {
		return err
	}

	if released > 0 {
		s.cache.Invalidate(ctx, mailingIDs...)
		metrics.RecordSpotTransition(model.SpotStatusAvailable, released)
	}
	s.logger.Info("支付会话已过期", "session_id", session.ID, "released", released)
	return nil
}
