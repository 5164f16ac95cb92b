package repository

import (
	"context"
	"fmt"

	"mailspot/internal/model"
)

const landingPageColumns = `id, ad_spot_id, advertiser_id, slug, offer_text, business_name, created_at, updated_at`

// LandingPageRepository 落地页存储库
type LandingPageRepository interface {
	Upsert(ctx context.Context, page *model.LandingPage) error
	GetBySlug(ctx context.Context, slug string) (*model.LandingPage, error)
	GetByAdSpot(ctx context.Context, adSpotID string) (*model.LandingPage, error)
	UpdateOffer(ctx context.Context, adSpotID, offerText string) error
	DeleteByAdSpot(ctx context.Context, adSpotID string) error
}

type landingPageRepository struct {
	db Executor
}

// Upsert 以 ad_spot_id 为键写入落地页，重复写入不会产生新行
func (r *landingPageRepository) Upsert(ctx context.Context, p *model.LandingPage) error {
	query := `INSERT INTO landing_pages (` + landingPageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			advertiser_id = VALUES(advertiser_id),
			slug = VALUES(slug),
			offer_text = VALUES(offer_text),
			business_name = VALUES(business_name),
			updated_at = VALUES(updated_at)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.AdSpotID, p.AdvertiserID, p.Slug, p.OfferText, p.BusinessName, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("写入落地页失败: %w", err)
	}
	return nil
}

// GetBySlug 根据slug获取落地页
func (r *landingPageRepository) GetBySlug(ctx context.Context, slug string) (*model.LandingPage, error) {
	var page model.LandingPage
	query := `SELECT ` + landingPageColumns + ` FROM landing_pages WHERE slug = ?`
	if err := r.db.GetContext(ctx, &page, query, slug); err != nil {
		return nil, notFound(err)
	}
	return &page, nil
}

// GetByAdSpot 根据广告位获取落地页
func (r *landingPageRepository) GetByAdSpot(ctx context.Context, adSpotID string) (*model.LandingPage, error) {
	var page model.LandingPage
	query := `SELECT ` + landingPageColumns + ` FROM landing_pages WHERE ad_spot_id = ?`
	if err := r.db.GetContext(ctx, &page, query, adSpotID); err != nil {
		return nil, notFound(err)
	}
	return &page, nil
}

// UpdateOffer 广告主修改优惠文案
func (r *landingPageRepository) UpdateOffer(ctx context.Context, adSpotID, offerText string) error {
	query := `UPDATE landing_pages SET offer_text = ?, updated_at = UTC_TIMESTAMP() WHERE ad_spot_id = ?`
	if _, err := r.db.ExecContext(ctx, query, offerText, adSpotID); err != nil {
		return fmt.Errorf("更新优惠文案失败: %w", err)
	}
	return nil
}

// DeleteByAdSpot 删除广告位的落地页
func (r *landingPageRepository) DeleteByAdSpot(ctx context.Context, adSpotID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM landing_pages WHERE ad_spot_id = ?`, adSpotID); err != nil {
		return fmt.Errorf("删除落地页失败: %w", err)
	}
	return nil
}
