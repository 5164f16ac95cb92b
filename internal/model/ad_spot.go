package model

import (
	"database/sql"
	"time"
)

// 广告位状态
const (
	SpotStatusAvailable = "available"
	SpotStatusReserved  = "reserved"
	SpotStatusPurchased = "purchased"
	SpotStatusUploaded  = "uploaded"
)

// 广告位所在面
const (
	SpotSideFront = "front"
	SpotSideBack  = "back"
)

// AdSpot 明信片上的一个可售广告位
type AdSpot struct {
	ID                string         `db:"id" json:"id"`
	MailingID         string         `db:"mailing_id" json:"mailing_id"`
	Side              string         `db:"side" json:"side"`
	GridIndex         int            `db:"grid_index" json:"grid_index"`
	Status            string         `db:"status" json:"status"`
	PriceCents        int64          `db:"price_cents" json:"price_cents"`
	AdvertiserID      sql.NullString `db:"advertiser_id" json:"-"`
	AdCopyURL         sql.NullString `db:"ad_copy_url" json:"-"`
	LandingPageSlug   sql.NullString `db:"landing_page_slug" json:"-"`
	TrackingURL       sql.NullString `db:"tracking_url" json:"-"`
	CheckoutSessionID sql.NullString `db:"checkout_session_id" json:"-"`
	ReservedAt        sql.NullTime   `db:"reserved_at" json:"-"`
	PurchasedAt       sql.NullTime   `db:"purchased_at" json:"-"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// IsSold 广告位是否已被占用（预留中或已售出）
func (s *AdSpot) IsSold() bool {
	return s.Status != SpotStatusAvailable
}

// OwnedBy 广告位是否属于指定广告主
func (s *AdSpot) OwnedBy(advertiserID string) bool {
	return s.AdvertiserID.Valid && s.AdvertiserID.String == advertiserID
}

// SpotView 对外输出的广告位
type SpotView struct {
	ID              string     `json:"id"`
	MailingID       string     `json:"mailing_id"`
	Side            string     `json:"side"`
	GridIndex       int        `json:"grid_index"`
	Status          string     `json:"status"`
	PriceCents      int64      `json:"price_cents"`
	AdvertiserID    string     `json:"advertiser_id,omitempty"`
	AdCopyURL       string     `json:"ad_copy_url,omitempty"`
	LandingPageSlug string     `json:"landing_page_slug,omitempty"`
	TrackingURL     string     `json:"tracking_url,omitempty"`
	PurchasedAt     *time.Time `json:"purchased_at,omitempty"`
	ScanCount       int64      `json:"scan_count,omitempty"`
}

// View 转换为对外输出结构
func (s *AdSpot) View() SpotView {
	v := SpotView{
		ID:              s.ID,
		MailingID:       s.MailingID,
		Side:            s.Side,
		GridIndex:       s.GridIndex,
		Status:          s.Status,
		PriceCents:      s.PriceCents,
		AdvertiserID:    s.AdvertiserID.String,
		AdCopyURL:       s.AdCopyURL.String,
		LandingPageSlug: s.LandingPageSlug.String,
		TrackingURL:     s.TrackingURL.String,
	}
	if s.PurchasedAt.Valid {
		t := s.PurchasedAt.Time
		v.PurchasedAt = &t
	}
	return v
}

// PublicView 公开列表只暴露位置、价格和状态
func (s *AdSpot) PublicView() SpotView {
	return SpotView{
		ID:         s.ID,
		MailingID:  s.MailingID,
		Side:       s.Side,
		GridIndex:  s.GridIndex,
		Status:     s.Status,
		PriceCents: s.PriceCents,
	}
}
