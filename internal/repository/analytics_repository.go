package repository

import (
	"context"
	"fmt"

	"mailspot/internal/model"

	"github.com/jmoiron/sqlx"
)

// AnalyticsRepository 扫码统计存储库
type AnalyticsRepository interface {
	Insert(ctx context.Context, event *model.AnalyticsEvent) error
	CountScansBySpots(ctx context.Context, spotIDs []string) (map[string]int64, error)
}

type analyticsRepository struct {
	db Executor
}

// Insert 写入一条统计事件
func (r *analyticsRepository) Insert(ctx context.Context, e *model.AnalyticsEvent) error {
	query := `INSERT INTO analytics (landing_page_id, ad_spot_id, event_type, user_agent, ip_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, e.LandingPageID, e.AdSpotID, e.EventType, e.UserAgent, e.IPHash, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("写入统计事件失败: %w", err)
	}
	return nil
}

// CountScansBySpots 统计各广告位的二维码扫描次数
func (r *analyticsRepository) CountScansBySpots(ctx context.Context, spotIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(spotIDs))
	if len(spotIDs) == 0 {
		return counts, nil
	}

	query, args, err := sqlx.In(`SELECT ad_spot_id, COUNT(*) AS scans FROM analytics
		WHERE event_type = 'qr_scan' AND ad_spot_id IN (?)
		GROUP BY ad_spot_id`, spotIDs)
	if err != nil {
		return nil, err
	}

	var rows []model.SpotScanCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.AdSpotID] = row.Scans
	}
	return counts, nil
}
