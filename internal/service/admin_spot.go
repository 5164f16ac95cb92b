package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"mailspot/internal/metrics"
	"mailspot/internal/model"
	"mailspot/internal/repository"
	"mailspot/pkg/logger"

	"github.com/google/uuid"
)

// AssignSpotRequest 管理员直接指派广告位
type AssignSpotRequest struct {
	SpotID       string
	Email        string
	BusinessName string
	AdCopyURL    string
	OfferText    string
}

// AssignResult 指派结果
type AssignResult struct {
	Spot           model.SpotView `json:"spot"`
	AdvertiserID   string         `json:"advertiser_id"`
	ProfileCreated bool           `json:"profile_created"`
	LandingSlug    string         `json:"landing_slug"`
}

// AdminSpotService 管理员对广告位的人工操作
type AdminSpotService struct {
	store        repository.Store
	auth         *AuthService
	notifier     *Notifier
	cache        *SpotCache
	trackingBase string
	logger       *logger.Logger
}

// NewAdminSpotService 创建管理员广告位服务
func NewAdminSpotService(store repository.Store, auth *AuthService, notifier *Notifier, cache *SpotCache,
	trackingBase string, logger *logger.Logger) *AdminSpotService {
	return &AdminSpotService{
		store:        store,
		auth:         auth,
		notifier:     notifier,
		cache:        cache,
		trackingBase: trackingBase,
		logger:       logger,
	}
}

// AssignSpot 不经支付直接将空闲广告位指派给邮箱对应的广告主
func (s *AdminSpotService) AssignSpot(ctx context.Context, req AssignSpotRequest) (*AssignResult, error) {
	emailAddr := NormalizeEmail(req.Email)
	if err := validateEmail(emailAddr); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.SpotID) == "" {
		return nil, invalidf("spot id is required")
	}
	if len(req.OfferText) > maxOfferTextLen {
		return nil, invalidf("offer text must be at most %d characters", maxOfferTextLen)
	}

	spot, err := s.store.Spots().GetByID(ctx, req.SpotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if spot.Status != model.SpotStatusAvailable {
		return nil, ErrSpotUnavailable
	}
	mailing, err := s.store.Mailings().GetByID(ctx, spot.MailingID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	adCopyURL := strings.TrimSpace(req.AdCopyURL)
	result := &AssignResult{}
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		advertiser, created, err := s.auth.getOrCreatePlaceholder(ctx, tx, emailAddr, req.BusinessName)
		if err != nil {
			return err
		}

		if err := tx.Spots().AssignPurchased(ctx, spot.ID, advertiser.ID, adCopyURL, now); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrSpotUnavailable
			}
			return err
		}
		spot.Status = model.SpotStatusPurchased
		spot.AdvertiserID = sql.NullString{String: advertiser.ID, Valid: true}
		spot.AdCopyURL = sql.NullString{String: adCopyURL, Valid: adCopyURL != ""}
		spot.PurchasedAt = sql.NullTime{Time: now, Valid: true}

		if err := tx.Payments().Create(ctx, &model.Payment{
			ID:           uuid.NewString(),
			AdSpotID:     spot.ID,
			AdvertiserID: advertiser.ID,
			MailingID:    spot.MailingID,
			AmountCents:  0,
			Status:       model.PaymentStatusCompleted,
			Source:       model.PaymentSourceAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return err
		}

		page, err := provisionLandingPage(ctx, tx, spot, advertiser, strings.TrimSpace(req.OfferText), s.trackingBase, now)
		if err != nil {
			return err
		}

		if created {
			claimURL, err := s.auth.ClaimURL(advertiser.ID)
			if err != nil {
				return err
			}
			if err := s.notifier.EnqueueWelcome(ctx, tx, advertiser, claimURL); err != nil {
				return err
			}
		}
		if err := s.notifier.EnqueuePurchaseConfirmation(ctx, tx, advertiser, mailing, []model.AdSpot{*spot}, 0); err != nil {
			return err
		}

		result.AdvertiserID = advertiser.ID
		result.ProfileCreated = created
		result.LandingSlug = page.Slug
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Spot = spot.View()
	s.cache.Invalidate(ctx, spot.MailingID)
	metrics.RecordSpotTransition(model.SpotStatusPurchased, 1)
	s.logger.Info("管理员指派广告位",
		"spot_id", spot.ID,
		"advertiser_id", result.AdvertiserID,
		"profile_created", result.ProfileCreated)
	return result, nil
}

// ReleaseSpot 将任意状态的广告位恢复为空闲，删除其落地页；支付记录保留用于对账
func (s *AdminSpotService) ReleaseSpot(ctx context.Context, spotID string) (*model.SpotView, error) {
	spot, err := s.store.Spots().GetByID(ctx, spotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Spots().Release(ctx, spot.ID); err != nil {
			return err
		}
		if err := tx.LandingPages().DeleteByAdSpot(ctx, spot.ID); err != nil {
			return err
		}
		if spot.Status == model.SpotStatusReserved && spot.CheckoutSessionID.Valid {
			return tx.Payments().Fail(ctx, spot.CheckoutSessionID.String, spot.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	released, err := s.store.Spots().GetByID(ctx, spot.ID)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, spot.MailingID)
	metrics.RecordSpotTransition(model.SpotStatusAvailable, 1)
	s.logger.Info("管理员释放广告位", "spot_id", spot.ID, "previous_status", spot.Status)

	view := released.View()
	return &view, nil
}

// ListPayments 管理端支付记录查询
func (s *AdminSpotService) ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	return s.store.Payments().List(ctx, filter)
}
