package model

import "time"

// LandingPage 广告位售出后生成的二维码落地页
type LandingPage struct {
	ID           string    `db:"id" json:"id"`
	AdSpotID     string    `db:"ad_spot_id" json:"ad_spot_id"`
	AdvertiserID string    `db:"advertiser_id" json:"advertiser_id"`
	Slug         string    `db:"slug" json:"slug"`
	OfferText    string    `db:"offer_text" json:"offer_text"`
	BusinessName string    `db:"business_name" json:"business_name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
