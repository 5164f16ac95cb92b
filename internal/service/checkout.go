package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mailspot/config"
	"mailspot/internal/metrics"
	"mailspot/internal/model"
	"mailspot/internal/repository"
	"mailspot/pkg/logger"
	"mailspot/pkg/payment"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	checkoutLockTTL   = 10 * time.Second
	maxOfferTextLen   = 450
	staleSweepBatch   = 100
	metaSpotIDs       = "spot_ids"
	metaMailingID     = "mailing_id"
	metaAdvertiserID  = "advertiser_id"
	metaAdCopyURL     = "ad_copy_url"
	metaOfferText     = "offer_text"
	metaPaymentSource = "source"
)

// CheckoutRequest 广告主下单参数
type CheckoutRequest struct {
	MailingID string
	SpotIDs   []string
	AdCopyURL string
	OfferText string
}

// CustomCheckoutRequest 管理员为广告主发起议价订单
type CustomCheckoutRequest struct {
	CheckoutRequest
	Email        string
	BusinessName string
	AmountCents  int64
}

// CheckoutResult 支付会话信息
type CheckoutResult struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
	AmountCents int64  `json:"amount_cents"`
	SpotCount   int    `json:"spot_count"`
}

// CheckoutService 预留广告位并创建支付会话
type CheckoutService struct {
	store       repository.Store
	gateway     payment.Gateway
	auth        *AuthService
	cache       *SpotCache
	redisClient *redis.Client
	siteURL     string
	sessionTTL  time.Duration
	sweepGrace  time.Duration
	logger      *logger.Logger
}

// NewCheckoutService 创建下单服务
func NewCheckoutService(store repository.Store, gateway payment.Gateway, auth *AuthService, cache *SpotCache,
	redisClient *redis.Client, siteURL string, cfg config.CheckoutConfig, logger *logger.Logger) *CheckoutService {
	return &CheckoutService{
		store:       store,
		gateway:     gateway,
		auth:        auth,
		cache:       cache,
		redisClient: redisClient,
		siteURL:     strings.TrimRight(siteURL, "/"),
		sessionTTL:  cfg.SessionTTL,
		sweepGrace:  cfg.SweepGrace,
		logger:      logger,
	}
}

// checkoutPlan 一次下单的完整参数
type checkoutPlan struct {
	advertiser  *model.Profile
	mailingID   string
	spotIDs     []string
	adCopyURL   string
	offerText   string
	totalCents  int64 // 大于0时覆盖标价
	source      string
	successPath string
}

// normalizeSpotIDs 去空、校验重复并排序，固定的加锁顺序避免事务间死锁
func normalizeSpotIDs(ids []string) ([]string, error) {
	set := sets.New[string]()
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, invalidf("spot id must not be empty")
		}
		if set.Has(id) {
			return nil, invalidf("duplicate spot id %q", id)
		}
		set.Insert(id)
	}
	if set.Len() == 0 {
		return nil, invalidf("at least one spot is required")
	}
	if set.Len() > model.SpotsPerMailing {
		return nil, invalidf("at most %d spots per checkout", model.SpotsPerMailing)
	}
	return sets.List(set), nil
}

func (r CheckoutRequest) validate() error {
	if strings.TrimSpace(r.MailingID) == "" {
		return invalidf("mailing id is required")
	}
	if len(r.OfferText) > maxOfferTextLen {
		return invalidf("offer text must be at most %d characters", maxOfferTextLen)
	}
	return nil
}

// Checkout 广告主为自己购买一个或多个广告位
func (s *CheckoutService) Checkout(ctx context.Context, advertiser *model.Profile, req CheckoutRequest) (*CheckoutResult, error) {
	if advertiser == nil {
		return nil, ErrUnauthorized
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	spotIDs, err := normalizeSpotIDs(req.SpotIDs)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, checkoutPlan{
		advertiser:  advertiser,
		mailingID:   req.MailingID,
		spotIDs:     spotIDs,
		adCopyURL:   strings.TrimSpace(req.AdCopyURL),
		offerText:   strings.TrimSpace(req.OfferText),
		source:      model.PaymentSourceCheckout,
		successPath: "/dashboard?checkout=success",
	})
}

// CustomCheckout 管理员按议价金额为指定邮箱创建支付链接，账号不存在时创建占位账号
func (s *CheckoutService) CustomCheckout(ctx context.Context, req CustomCheckoutRequest) (*CheckoutResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.AmountCents <= 0 {
		return nil, invalidf("amount must be positive")
	}
	emailAddr := NormalizeEmail(req.Email)
	if err := validateEmail(emailAddr); err != nil {
		return nil, err
	}
	spotIDs, err := normalizeSpotIDs(req.SpotIDs)
	if err != nil {
		return nil, err
	}

	var advertiser *model.Profile
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		profile, _, err := s.auth.getOrCreatePlaceholder(ctx, tx, emailAddr, req.BusinessName)
		advertiser = profile
		return err
	})
	if err != nil {
		return nil, err
	}

	result, err := s.start(ctx, checkoutPlan{
		advertiser:  advertiser,
		mailingID:   req.MailingID,
		spotIDs:     spotIDs,
		adCopyURL:   strings.TrimSpace(req.AdCopyURL),
		offerText:   strings.TrimSpace(req.OfferText),
		totalCents:  req.AmountCents,
		source:      model.PaymentSourceCustom,
		successPath: "/checkout/success",
	})
	if err != nil {
		return nil, err
	}

	// 预留成功后才发送认领邮件，未认领的占位账号每次议价下单都会收到新的认领链接
	if advertiser.IsPlaceholder {
		if err := s.enqueueClaimWelcome(ctx, advertiser); err != nil {
			s.logger.Error("写入欢迎邮件失败", "profile_id", advertiser.ID, "error", err)
		}
	}
	return result, nil
}

func (s *CheckoutService) enqueueClaimWelcome(ctx context.Context, profile *model.Profile) error {
	claimURL, err := s.auth.ClaimURL(profile.ID)
	if err != nil {
		return err
	}
	return s.auth.notifier.EnqueueWelcome(ctx, s.store, profile, claimURL)
}

// start 先在事务中预留全部广告位，再创建支付会话；任一步失败都会释放本次预留
func (s *CheckoutService) start(ctx context.Context, plan checkoutPlan) (result *CheckoutResult, err error) {
	startedAt := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failed"
		}
		metrics.RecordCheckoutDuration(outcome, time.Since(startedAt).Seconds())
	}()

	lockKey := "checkout:lock:" + plan.advertiser.ID
	locked, lockErr := s.redisClient.SetNX(ctx, lockKey, "1", checkoutLockTTL).Result()
	if lockErr != nil {
		s.logger.Warn("获取下单锁失败，继续依赖数据库条件更新", "advertiser_id", plan.advertiser.ID, "error", lockErr)
	} else if !locked {
		return nil, ErrCheckoutInProgress
	} else {
		defer s.redisClient.Del(context.WithoutCancel(ctx), lockKey)
	}

	mailing, err := s.store.Mailings().GetByID(ctx, plan.mailingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if mailing.Status != model.MailingStatusOpen {
		return nil, invalidf("mailing is not open for sale")
	}

	now := time.Now().UTC()
	var spots []model.AdSpot
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		found, err := tx.Spots().GetByIDs(ctx, plan.spotIDs)
		if err != nil {
			return err
		}
		if len(found) != len(plan.spotIDs) {
			return ErrNotFound
		}
		for i := range found {
			if found[i].MailingID != mailing.ID {
				return fmt.Errorf("%w: spot %s is not part of this mailing", ErrNotFound, found[i].ID)
			}
			if found[i].Status != model.SpotStatusAvailable {
				return ErrSpotUnavailable
			}
		}
		for _, id := range plan.spotIDs {
			if err := tx.Spots().Reserve(ctx, id, plan.advertiser.ID, now); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return ErrSpotUnavailable
				}
				return err
			}
		}
		spots = orderSpots(found, plan.spotIDs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordSpotTransition(model.SpotStatusReserved, len(spots))

	amounts := splitAmount(spots, plan.totalCents)
	var total int64
	items := make([]payment.LineItem, 0, len(spots))
	for i := range spots {
		total += amounts[i]
		items = append(items, payment.LineItem{
			Name:        fmt.Sprintf("%s: %s spot #%d", mailing.Title, spots[i].Side, spots[i].GridIndex+1),
			Description: "Postcard ad spot, mailing " + mailing.ScheduledDate.Format("Jan 2, 2006"),
			AmountCents: amounts[i],
		})
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.SessionRequest{
		CustomerEmail:     plan.advertiser.Email,
		ClientReferenceID: plan.advertiser.ID,
		LineItems:         items,
		Metadata: map[string]string{
			metaSpotIDs:       strings.Join(plan.spotIDs, ","),
			metaMailingID:     mailing.ID,
			metaAdvertiserID:  plan.advertiser.ID,
			metaAdCopyURL:     plan.adCopyURL,
			metaOfferText:     plan.offerText,
			metaPaymentSource: plan.source,
		},
		SuccessURL: s.siteURL + plan.successPath,
		CancelURL:  s.siteURL + "/mailings/" + mailing.ID + "?checkout=cancelled",
		ExpiresAt:  now.Add(s.sessionTTL),
	})
	if err != nil {
		s.logger.Error("创建支付会话失败，释放预留", "mailing_id", mailing.ID, "advertiser_id", plan.advertiser.ID, "error", err)
		s.releaseReserved(ctx, spots, plan.advertiser.ID)
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		for i := range spots {
			if err := tx.Spots().SetCheckoutSession(ctx, spots[i].ID, plan.advertiser.ID, session.ID); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return ErrSpotUnavailable
				}
				return err
			}
			if err := tx.Payments().Create(ctx, &model.Payment{
				ID:              uuid.NewString(),
				AdSpotID:        spots[i].ID,
				AdvertiserID:    plan.advertiser.ID,
				MailingID:       mailing.ID,
				AmountCents:     amounts[i],
				Status:          model.PaymentStatusPending,
				Source:          plan.source,
				StripeSessionID: sql.NullString{String: session.ID, Valid: true},
				CreatedAt:       now,
				UpdatedAt:       now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("记录支付会话失败，释放预留并作废会话", "session_id", session.ID, "error", err)
		s.releaseReserved(ctx, spots, plan.advertiser.ID)
		if expireErr := s.gateway.ExpireCheckoutSession(context.WithoutCancel(ctx), session.ID); expireErr != nil {
			s.logger.Warn("作废支付会话失败", "session_id", session.ID, "error", expireErr)
		}
		return nil, err
	}

	s.cache.Invalidate(ctx, mailing.ID)
	s.logger.Info("支付会话已创建",
		"session_id", session.ID,
		"mailing_id", mailing.ID,
		"advertiser_id", plan.advertiser.ID,
		"spots", len(spots),
		"amount_cents", total,
		"source", plan.source)

	return &CheckoutResult{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
		AmountCents: total,
		SpotCount:   len(spots),
	}, nil
}

// releaseReserved 补偿：释放本次下单预留的广告位
func (s *CheckoutService) releaseReserved(ctx context.Context, spots []model.AdSpot, advertiserID string) {
	ctx = context.WithoutCancel(ctx)
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		for i := range spots {
			if err := tx.Spots().ReleaseReservation(ctx, spots[i].ID, advertiserID); err != nil && !errors.Is(err, repository.ErrConflict) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("释放预留失败，等待超时回收", "advertiser_id", advertiserID, "error", err)
		return
	}
	metrics.RecordSpotTransition(model.SpotStatusAvailable, len(spots))
}

// orderSpots 按请求顺序排列查询结果
func orderSpots(spots []model.AdSpot, ids []string) []model.AdSpot {
	byID := make(map[string]model.AdSpot, len(spots))
	for _, spot := range spots {
		byID[spot.ID] = spot
	}
	ordered := make([]model.AdSpot, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, byID[id])
	}
	return ordered
}

// splitAmount 计算每个广告位的金额；总价覆盖时平均分摊，余数计入第一个
func splitAmount(spots []model.AdSpot, totalCents int64) []int64 {
	amounts := make([]int64, len(spots))
	if totalCents <= 0 {
		for i := range spots {
			amounts[i] = spots[i].PriceCents
		}
		return amounts
	}
	n := int64(len(spots))
	for i := range amounts {
		amounts[i] = totalCents / n
	}
	amounts[0] += totalCents % n
	return amounts
}

// SweepStaleReservations 回收超过会话有效期仍未完成支付的预留
func (s *CheckoutService) SweepStaleReservations(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-(s.sessionTTL + s.sweepGrace))
	stale, err := s.store.Spots().ListStaleReserved(ctx, cutoff, staleSweepBatch)
	if err != nil {
		return 0, fmt.Errorf("查询超时预留失败: %w", err)
	}

	released := 0
	mailings := sets.New[string]()
	for i := range stale {
		spot := stale[i]
		err := s.store.InTx(ctx, func(tx repository.Store) error {
			if err := tx.Spots().ReleaseStale(ctx, spot.ID, spot.CheckoutSessionID.String); err != nil {
				return err
			}
			if spot.CheckoutSessionID.Valid {
				return tx.Payments().Fail(ctx, spot.CheckoutSessionID.String, spot.ID)
			}
			return nil
		})
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		if err != nil {
			s.logger.Error("回收超时预留失败", "spot_id", spot.ID, "error", err)
			continue
		}
		released++
		mailings.Insert(spot.MailingID)
	}

	if released > 0 {
		s.cache.Invalidate(ctx, sets.List(mailings)...)
		metrics.RecordSpotTransition(model.SpotStatusAvailable, released)
		s.logger.Info("已回收超时预留", "count", released)
	}
	return released, nil
}
