package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mailspot/internal/model"
	"mailspot/internal/repository"

	"github.com/google/uuid"
)

// LandingSlug 落地页slug：期刊ID前8位-广告位ID前8位
func LandingSlug(mailingID, spotID string) string {
	return prefix(mailingID, 8) + "-" + prefix(spotID, 8)
}

// TrackingURL 二维码指向的跟踪链接
func TrackingURL(base, slug string) string {
	return strings.TrimRight(base, "/") + "/t/" + slug
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// provisionLandingPage 为已售广告位写入落地页并回写slug和跟踪链接，重复调用结果不变
func provisionLandingPage(ctx context.Context, tx repository.Store, spot *model.AdSpot, advertiser *model.Profile,
	offerText, trackingBase string, now time.Time) (*model.LandingPage, error) {
	slug := LandingSlug(spot.MailingID, spot.ID)
	page := &model.LandingPage{
		ID:           uuid.NewString(),
		AdSpotID:     spot.ID,
		AdvertiserID: advertiser.ID,
		Slug:         slug,
		OfferText:    offerText,
		BusinessName: advertiser.BusinessName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.LandingPages().Upsert(ctx, page); err != nil {
		return nil, fmt.Errorf("写入落地页失败: %w", err)
	}

	trackingURL := TrackingURL(trackingBase, slug)
	if err := tx.Spots().AttachLandingPage(ctx, spot.ID, slug, trackingURL); err != nil {
		return nil, err
	}
	spot.LandingPageSlug.String, spot.LandingPageSlug.Valid = slug, true
	spot.TrackingURL.String, spot.TrackingURL.Valid = trackingURL, true
	return page, nil
}
