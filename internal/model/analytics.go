package model

import "time"

// 统计事件类型
const (
	EventQRScan   = "qr_scan"
	EventPageView = "page_view"
)

// AnalyticsEvent 落地页访问或二维码扫描记录
type AnalyticsEvent struct {
	ID            int64     `db:"id" json:"id"`
	LandingPageID string    `db:"landing_page_id" json:"landing_page_id"`
	AdSpotID      string    `db:"ad_spot_id" json:"ad_spot_id"`
	EventType     string    `db:"event_type" json:"event_type"`
	UserAgent     string    `db:"user_agent" json:"user_agent"`
	IPHash        string    `db:"ip_hash" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// SpotScanCount 单个广告位的扫描次数
type SpotScanCount struct {
	AdSpotID string `db:"ad_spot_id"`
	Scans    int64  `db:"scans"`
}
