package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"mailspot/internal/metrics"
	"mailspot/internal/model"
	"mailspot/internal/repository"
	"mailspot/pkg/async"
	"mailspot/pkg/logger"
)

const recordEventTimeout = 5 * time.Second

// LandingView 落地页公开内容
type LandingView struct {
	Slug         string `json:"slug"`
	BusinessName string `json:"business_name"`
	OfferText    string `json:"offer_text"`
	AdCopyURL    string `json:"ad_copy_url,omitempty"`
	MailingID    string `json:"mailing_id"`
}

// Visit 一次访问的来源信息
type Visit struct {
	UserAgent string
	IP        string
}

// LandingService 落地页、二维码跳转与广告主看板
type LandingService struct {
	store   repository.Store
	worker  *async.Worker
	siteURL string
	logger  *logger.Logger
}

// NewLandingService 创建落地页服务
func NewLandingService(store repository.Store, worker *async.Worker, siteURL string, logger *logger.Logger) *LandingService {
	return &LandingService{
		store:   store,
		worker:  worker,
		siteURL: strings.TrimRight(siteURL, "/"),
		logger:  logger,
	}
}

func hashIP(ip string) string {
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}

func (s *LandingService) getPage(ctx context.Context, slug string) (*model.LandingPage, error) {
	page, err := s.store.LandingPages().GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return page, nil
}

// recordEvent 异步写入访问记录，队列满时丢弃
func (s *LandingService) recordEvent(page *model.LandingPage, eventType string, visit Visit) {
	event := &model.AnalyticsEvent{
		LandingPageID: page.ID,
		AdSpotID:      page.AdSpotID,
		EventType:     eventType,
		UserAgent:     truncate(visit.UserAgent, 255),
		IPHash:        hashIP(visit.IP),
		CreatedAt:     time.Now().UTC(),
	}
	err := s.worker.Submit(async.Task{
		Name:    "record_" + eventType,
		Timeout: recordEventTimeout,
		Handler: func(ctx context.Context) error {
			return s.store.Analytics().Insert(ctx, event)
		},
	})
	if err != nil {
		s.logger.Warn("访问记录入队失败", "slug", page.Slug, "event", eventType, "error", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// TrackScan 记录二维码扫描并返回落地页地址
func (s *LandingService) TrackScan(ctx context.Context, slug string, visit Visit) (string, error) {
	page, err := s.getPage(ctx, slug)
	if err != nil {
		return "", err
	}
	s.recordEvent(page, model.EventQRScan, visit)
	metrics.QRScans.Inc()
	return s.siteURL + "/offers/" + page.Slug, nil
}

// GetLanding 获取落地页内容并记录浏览
func (s *LandingService) GetLanding(ctx context.Context, slug string, visit Visit) (*LandingView, error) {
	page, err := s.getPage(ctx, slug)
	if err != nil {
		return nil, err
	}
	spot, err := s.store.Spots().GetByID(ctx, page.AdSpotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.recordEvent(page, model.EventPageView, visit)

	return &LandingView{
		Slug:         page.Slug,
		BusinessName: page.BusinessName,
		OfferText:    page.OfferText,
		AdCopyURL:    spot.AdCopyURL.String,
		MailingID:    spot.MailingID,
	}, nil
}

// MySpots 广告主看板：自己的广告位及扫描次数
func (s *LandingService) MySpots(ctx context.Context, advertiser *model.Profile) ([]model.SpotView, error) {
	spots, err := s.store.Spots().ListByAdvertiser(ctx, advertiser.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(spots))
	for i := range spots {
		ids = append(ids, spots[i].ID)
	}
	counts, err := s.store.Analytics().CountScansBySpots(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]model.SpotView, 0, len(spots))
	for i := range spots {
		view := spots[i].View()
		view.ScanCount = counts[spots[i].ID]
		views = append(views, view)
	}
	return views, nil
}

// MyPayments 广告主的支付记录
func (s *LandingService) MyPayments(ctx context.Context, advertiser *model.Profile) ([]model.Payment, error) {
	return s.store.Payments().ListByAdvertiser(ctx, advertiser.ID)
}

// UpdateOffer 修改落地页优惠文案
func (s *LandingService) UpdateOffer(ctx context.Context, editor *model.Profile, spotID, offerText string) (*model.LandingPage, error) {
	offerText = strings.TrimSpace(offerText)
	if len(offerText) > maxOfferTextLen {
		return nil, invalidf("offer text must be at most %d characters", maxOfferTextLen)
	}
	spot, err := s.store.Spots().GetByID(ctx, spotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !editor.IsAdmin() && !spot.OwnedBy(editor.ID) {
		return nil, ErrForbidden
	}

	page, err := s.store.LandingPages().GetByAdSpot(ctx, spotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.store.LandingPages().UpdateOffer(ctx, spotID, offerText); err != nil {
		return nil, err
	}
	page.OfferText = offerText
	return page, nil
}
