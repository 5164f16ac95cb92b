package model

import "time"

// SpotsPerMailing 每期明信片固定的广告位数量（正反面各6个）
const SpotsPerMailing = 12

// 期刊状态
const (
	MailingStatusDraft  = "draft"
	MailingStatusOpen   = "open"
	MailingStatusClosed = "closed"
	MailingStatusMailed = "mailed"
)

// Mailing 一期实体明信片投递活动
type Mailing struct {
	ID             string    `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	ZipCodes       string    `db:"zip_codes" json:"zip_codes"` // 逗号分隔
	ScheduledDate  time.Time `db:"scheduled_date" json:"scheduled_date"`
	SpotPriceCents int64     `db:"spot_price_cents" json:"spot_price_cents"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// MailingSummary 期刊及其广告位售卖概况
type MailingSummary struct {
	Mailing
	AvailableSpots int `db:"available_spots" json:"available_spots"`
	SoldSpots      int `db:"sold_spots" json:"sold_spots"`
}
