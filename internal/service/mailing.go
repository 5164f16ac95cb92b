package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"mailspot/internal/model"
	"mailspot/internal/repository"
	"mailspot/pkg/logger"

	"github.com/google/uuid"
)

var zipPattern = regexp.MustCompile(`^\d{5}$`)

// MailingInput 创建或修改期刊的参数
type MailingInput struct {
	Title          string
	ZipCodes       []string
	ScheduledDate  time.Time
	SpotPriceCents int64
	Status         string
}

// MailingDetail 期刊及其全部广告位
type MailingDetail struct {
	Mailing *model.Mailing   `json:"mailing"`
	Spots   []model.SpotView `json:"spots"`
}

// MailingService 期刊管理与广告位列表
type MailingService struct {
	store  repository.Store
	cache  *SpotCache
	logger *logger.Logger
}

// NewMailingService 创建期刊服务
func NewMailingService(store repository.Store, cache *SpotCache, logger *logger.Logger) *MailingService {
	return &MailingService{store: store, cache: cache, logger: logger}
}

func normalizeZipCodes(zips []string) (string, error) {
	seen := make(map[string]bool, len(zips))
	out := make([]string, 0, len(zips))
	for _, zip := range zips {
		zip = strings.TrimSpace(zip)
		if zip == "" || seen[zip] {
			continue
		}
		if !zipPattern.MatchString(zip) {
			return "", invalidf("invalid zip code %q", zip)
		}
		seen[zip] = true
		out = append(out, zip)
	}
	if len(out) == 0 {
		return "", invalidf("at least one zip code is required")
	}
	return strings.Join(out, ","), nil
}

func validMailingStatus(status string) bool {
	switch status {
	case model.MailingStatusDraft, model.MailingStatusOpen, model.MailingStatusClosed, model.MailingStatusMailed:
		return true
	}
	return false
}

func (in MailingInput) validate() (string, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", invalidf("title is required")
	}
	if in.SpotPriceCents <= 0 {
		return "", invalidf("spot price must be positive")
	}
	if in.ScheduledDate.IsZero() {
		return "", invalidf("scheduled date is required")
	}
	if in.Status != "" && !validMailingStatus(in.Status) {
		return "", invalidf("unknown mailing status %q", in.Status)
	}
	return normalizeZipCodes(in.ZipCodes)
}

// newSpots 一期的12个广告位：正反面各6个
func newSpots(mailingID string, priceCents int64, now time.Time) []model.AdSpot {
	spots := make([]model.AdSpot, 0, model.SpotsPerMailing)
	perSide := model.SpotsPerMailing / 2
	for _, side := range []string{model.SpotSideFront, model.SpotSideBack} {
		for i := 0; i < perSide; i++ {
			spots = append(spots, model.AdSpot{
				ID:         uuid.NewString(),
				MailingID:  mailingID,
				Side:       side,
				GridIndex:  i,
				Status:     model.SpotStatusAvailable,
				PriceCents: priceCents,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}
	}
	return spots
}

// CreateMailing 创建期刊并同时生成12个空闲广告位
func (s *MailingService) CreateMailing(ctx context.Context, in MailingInput) (*MailingDetail, error) {
	zips, err := in.validate()
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = model.MailingStatusOpen
	}

	now := time.Now().UTC()
	mailing := &model.Mailing{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(in.Title),
		ZipCodes:       zips,
		ScheduledDate:  in.ScheduledDate.UTC(),
		SpotPriceCents: in.SpotPriceCents,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	spots := newSpots(mailing.ID, mailing.SpotPriceCents, now)

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Mailings().Create(ctx, mailing); err != nil {
			return err
		}
		return tx.Spots().CreateBatch(ctx, spots)
	})
	if err != nil {
		return nil, fmt.Errorf("创建期刊失败: %w", err)
	}

	s.logger.Info("期刊创建成功", "mailing_id", mailing.ID, "title", mailing.Title)
	views := make([]model.SpotView, 0, len(spots))
	for i := range spots {
		views = append(views, spots[i].View())
	}
	return &MailingDetail{Mailing: mailing, Spots: views}, nil
}

// UpdateMailing 修改期刊；调价只作用于空闲广告位
func (s *MailingService) UpdateMailing(ctx context.Context, id string, in MailingInput) (*model.Mailing, error) {
	zips, err := in.validate()
	if err != nil {
		return nil, err
	}

	var mailing *model.Mailing
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		current, err := tx.Mailings().GetByID(ctx, id)
		if err != nil {
			return err
		}
		priceChanged := current.SpotPriceCents != in.SpotPriceCents

		current.Title = strings.TrimSpace(in.Title)
		current.ZipCodes = zips
		current.ScheduledDate = in.ScheduledDate.UTC()
		current.SpotPriceCents = in.SpotPriceCents
		if in.Status != "" {
			current.Status = in.Status
		}
		current.UpdatedAt = time.Now().UTC()
		if err := tx.Mailings().Update(ctx, current); err != nil {
			return err
		}
		if priceChanged {
			if err := tx.Spots().UpdatePriceForAvailable(ctx, id, in.SpotPriceCents); err != nil {
				return err
			}
		}
		mailing = current
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.cache.Invalidate(ctx, id)
	return mailing, nil
}

// DeleteMailing 删除期刊；存在预留或已售广告位时拒绝
func (s *MailingService) DeleteMailing(ctx context.Context, id string) error {
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Mailings().GetByID(ctx, id); err != nil {
			return err
		}
		sold, err := tx.Spots().CountSold(ctx, id)
		if err != nil {
			return err
		}
		if sold > 0 {
			return ErrMailingHasSales
		}
		// 并发下单可能在计数之后预留广告位，删除条件再次限定 available
		deleted, err := tx.Spots().DeleteAvailableByMailing(ctx, id)
		if err != nil {
			return err
		}
		if deleted != model.SpotsPerMailing {
			return ErrMailingHasSales
		}
		return tx.Mailings().Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.cache.Invalidate(ctx, id)
	s.logger.Info("期刊已删除", "mailing_id", id)
	return nil
}

// ListMailings 期刊列表，status 为空时返回全部
func (s *MailingService) ListMailings(ctx context.Context, status string) ([]model.MailingSummary, error) {
	if status != "" && !validMailingStatus(status) {
		return nil, invalidf("unknown mailing status %q", status)
	}
	return s.store.Mailings().List(ctx, status)
}

// GetMailing 获取期刊
func (s *MailingService) GetMailing(ctx context.Context, id string) (*model.Mailing, error) {
	mailing, err := s.store.Mailings().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return mailing, nil
}

// ListPublicSpots 公开的广告位网格，不含购买者信息
func (s *MailingService) ListPublicSpots(ctx context.Context, mailingID string) ([]model.SpotView, error) {
	if views, ok := s.cache.Get(ctx, mailingID); ok {
		return views, nil
	}

	if _, err := s.GetMailing(ctx, mailingID); err != nil {
		return nil, err
	}
	spots, err := s.store.Spots().ListByMailing(ctx, mailingID)
	if err != nil {
		return nil, err
	}
	views := make([]model.SpotView, 0, len(spots))
	for i := range spots {
		views = append(views, spots[i].PublicView())
	}
	s.cache.Set(ctx, mailingID, views)
	return views, nil
}

// GetMailingDetail 管理端查看期刊及全部广告位明细
func (s *MailingService) GetMailingDetail(ctx context.Context, mailingID string) (*MailingDetail, error) {
	mailing, err := s.GetMailing(ctx, mailingID)
	if err != nil {
		return nil, err
	}
	spots, err := s.store.Spots().ListByMailing(ctx, mailingID)
	if err != nil {
		return nil, err
	}
	views := make([]model.SpotView, 0, len(spots))
	for i := range spots {
		views = append(views, spots[i].View())
	}
	return &MailingDetail{Mailing: mailing, Spots: views}, nil
}
