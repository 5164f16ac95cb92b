package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mailspot/internal/model"

	"github.com/jmoiron/sqlx"
)

const spotColumns = `id, mailing_id, side, grid_index, status, price_cents, advertiser_id, ad_copy_url,
	landing_page_slug, tracking_url, checkout_session_id, reserved_at, purchased_at, created_at, updated_at`

// SpotRepository 广告位存储库。所有状态迁移都是条件更新，未命中时返回 ErrConflict
type SpotRepository interface {
	CreateBatch(ctx context.Context, spots []model.AdSpot) error
	GetByID(ctx context.Context, id string) (*model.AdSpot, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.AdSpot, error)
	ListByMailing(ctx context.Context, mailingID string) ([]model.AdSpot, error)
	ListByAdvertiser(ctx context.Context, advertiserID string) ([]model.AdSpot, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.AdSpot, error)
	ListStaleReserved(ctx context.Context, reservedBefore time.Time, limit int) ([]model.AdSpot, error)
	CountSold(ctx context.Context, mailingID string) (int, error)
	UpdatePriceForAvailable(ctx context.Context, mailingID string, priceCents int64) error

	Reserve(ctx context.Context, id, advertiserID string, at time.Time) error
	SetCheckoutSession(ctx context.Context, id, advertiserID, sessionID string) error
	ReleaseReservation(ctx context.Context, id, advertiserID string) error
	ReleaseStale(ctx context.Context, id, sessionID string) error
	MarkPurchased(ctx context.Context, id, advertiserID, adCopyURL string, at time.Time) error
	AssignPurchased(ctx context.Context, id, advertiserID, adCopyURL string, at time.Time) error
	AttachLandingPage(ctx context.Context, id, slug, trackingURL string) error
	AttachArtwork(ctx context.Context, id, url string) error
	Release(ctx context.Context, id string) error
	DeleteAvailableByMailing(ctx context.Context, mailingID string) (int64, error)
}

type spotRepository struct {
	db Executor
}

// CreateBatch 批量插入广告位
func (r *spotRepository) CreateBatch(ctx context.Context, spots []model.AdSpot) error {
	if len(spots) == 0 {
		return nil
	}

	values := make([]string, len(spots))
	args := make([]interface{}, 0, len(spots)*6)
	for i, s := range spots {
		values[i] = "(?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(), UTC_TIMESTAMP())"
		args = append(args, s.ID, s.MailingID, s.Side, s.GridIndex, s.Status, s.PriceCents)
	}

	query := fmt.Sprintf(`INSERT INTO ad_spots (id, mailing_id, side, grid_index, status, price_cents, created_at, updated_at)
		VALUES %s`, strings.Join(values, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("批量创建广告位失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取广告位
func (r *spotRepository) GetByID(ctx context.Context, id string) (*model.AdSpot, error) {
	var spot model.AdSpot
	query := `SELECT ` + spotColumns + ` FROM ad_spots WHERE id = ?`
	if err := r.db.GetContext(ctx, &spot, query, id); err != nil {
		return nil, notFound(err)
	}
	return &spot, nil
}

// GetByIDs 批量获取广告位，不存在的ID不会出现在结果中
func (r *spotRepository) GetByIDs(ctx context.Context, ids []string) ([]model.AdSpot, error) {
	if len(ids) == 0 {
		return []model.AdSpot{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+spotColumns+` FROM ad_spots WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var spots []model.AdSpot
	if err := r.db.SelectContext(ctx, &spots, query, args...); err != nil {
		return nil, err
	}
	return spots, nil
}

// ListByMailing 获取一期明信片的全部广告位
func (r *spotRepository) ListByMailing(ctx context.Context, mailingID string) ([]model.AdSpot, error) {
	spots := []model.AdSpot{}
	query := `SELECT ` + spotColumns + ` FROM ad_spots WHERE mailing_id = ? ORDER BY side DESC, grid_index ASC`
	if err := r.db.SelectContext(ctx, &spots, query, mailingID); err != nil {
		return nil, err
	}
	return spots, nil
}

// ListByAdvertiser 获取广告主名下的广告位
func (r *spotRepository) ListByAdvertiser(ctx context.Context, advertiserID string) ([]model.AdSpot, error) {
	spots := []model.AdSpot{}
	query := `SELECT ` + spotColumns + ` FROM ad_spots WHERE advertiser_id = ? ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &spots, query, advertiserID); err != nil {
		return nil, err
	}
	return spots, nil
}

// ListBySession 获取某个支付会话预留的广告位
func (r *spotRepository) ListBySession(ctx context.Context, sessionID string) ([]model.AdSpot, error) {
	spots := []model.AdSpot{}
	query := `SELECT ` + spotColumns + ` FROM ad_spots WHERE checkout_session_id = ?`
	if err := r.db.SelectContext(ctx, &spots, query, sessionID); err != nil {
		return nil, err
	}
	return spots, nil
}

// ListStaleReserved 获取预留时间早于指定时刻的广告位
func (r *spotRepository) ListStaleReserved(ctx context.Context, reservedBefore time.Time, limit int) ([]model.AdSpot, error) {
	spots := []model.AdSpot{}
	query := `SELECT ` + spotColumns + ` FROM ad_spots
		WHERE status = 'reserved' AND reserved_at < ?
		ORDER BY reserved_at ASC LIMIT ?`
	if err := r.db.SelectContext(ctx, &spots, query, reservedBefore, limit); err != nil {
		return nil, err
	}
	return spots, nil
}

// CountSold 统计一期中非空闲的广告位数量
func (r *spotRepository) CountSold(ctx context.Context, mailingID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM ad_spots WHERE mailing_id = ? AND status <> 'available'`
	if err := r.db.GetContext(ctx, &count, query, mailingID); err != nil {
		return 0, err
	}
	return count, nil
}

// UpdatePriceForAvailable 调价只影响尚未售出的广告位
func (r *spotRepository) UpdatePriceForAvailable(ctx context.Context, mailingID string, priceCents int64) error {
	query := `UPDATE ad_spots SET price_cents = ?, updated_at = UTC_TIMESTAMP() WHERE mailing_id = ? AND status = 'available'`
	if _, err := r.db.ExecContext(ctx, query, priceCents, mailingID); err != nil {
		return fmt.Errorf("更新广告位价格失败: %w", err)
	}
	return nil
}

// Reserve available -> reserved
func (r *spotRepository) Reserve(ctx context.Context, id, advertiserID string, at time.Time) error {
	query := `UPDATE ad_spots
		SET status = 'reserved', advertiser_id = ?, reserved_at = ?, updated_at = UTC_TIMESTAMP()
		WHERE id = ? AND status = 'available'`
	result, err := r.db.ExecContext(ctx, query, advertiserID, at, id)
	if err != nil {
		return fmt.Errorf("预留广告位失败: %w", err)
	}
	return requireAffected(result)
}

// SetCheckoutSession 记录预留对应的支付会话
func (r *spotRepository) SetCheckoutSession(ctx context.Context, id, advertiserID, sessionID string) error {
	query := `UPDATE ad_spots
		SET checkout_session_id = ?, updated_at = UTC_TIMESTAMP()
		WHERE id = ? AND status = 'reserved' AND advertiser_id = ?`
	result, err := r.db.ExecContext(ctx, query, sessionID, id, advertiserID)
	if err != nil {
		return fmt.Errorf("记录支付会话失败: %w", err)
	}
	return requireAffected(result)
}

// ReleaseReservation reserved -> available，仅释放指定广告主自己的预留
func (r *spotRepository) ReleaseReservation(ctx context.Context, id, advertiserID string) error {
	query := `UPDATE ad_spots
		SET status = 'available', advertiser_id = NULL, checkout_session_id = NULL, reserved_at = NULL,
			updated_at = UTC_TIMESTAMP()
		WHERE id = ? AND status = 'reserved' AND advertiser_id = ?`
	result, err := r.db.ExecContext(ctx, query, id, advertiserID)
	if err != nil {
		return fmt.Errorf("释放预留失败: %w", err)
	}
	return requireAffected(result)
}

// ReleaseStale 释放超时的预留，会话必须仍然一致
func (r *spotRepository) ReleaseStale(ctx context.Context, id, sessionID string) error {
	query := `UPDATE ad_spots
		SET status = 'available', advertiser_id = NULL, checkout_session_id = NULL, reserved_at = NULL,
			updated_at = UTC_TIMESTAMP()
		WHERE id = ? AND status = 'reserved' AND checkout_session_id <=> ?`
	var session interface{}
	if sessionID != "" {
		session = sessionID
	}
	result, err := r.db.ExecContext(ctx, query, id, session)
	if err != nil {
		return fmt.Errorf("释放超时预留失败: %w", err)
	}
	return requireAffected(result)
}

// MarkPurchased reserved -> purchased，预留人必须一致
func (r *spotRepository) MarkPurchased(ctx context.Context, id, advertiserID, adCopyURL string, at time.Time) error {
	query := `UPDATE ad_spots
		SET status = 'purchased', purchased_at = ?, ad_copy_url = COALESCE(?, ad_copy_url), updated_at = UTC_TIMESTAMP()
		WHERE id = ? AND status = 'reserved' AND advertiser_id = ?`
	result, err := r.db.ExecContext(ctx, query, at, nullable(adCopyURL), id, advertiserID)
	if err != nil {
		return fmt.Errorf("标记广告位已售失败: %w", err)
	}
	return requireAffected(result)
}

// AssignPurchased available -> purchased，跳过预留（管理员指派或预留已被回收）
func (r *spotRepository) AssignPurchased(ctx context.Context, id, advertiserID, adCopyURL string, at time.Time) error {
	query := `UPDATE ad_spots
		SET status = 'purchased', advertiser_id = ?, purchased_at = ?, ad_copy_url = ?, reserved_at = NULL,
			updated_at = UTC_TIMESTAMP()
		WHERE id = ? AND status = 'available'`
	result, err := r.db.ExecContext(ctx, query, advertiserID, at, nullable(adCopyURL), id)
	if err != nil {
		return fmt.Errorf("指派广告位失败: %w", err)
	}
	return requireAffected(result)
}

// AttachLandingPage 回写落地页slug和跟踪链接
func (r *spotRepository) AttachLandingPage(ctx context.Context, id, slug, trackingURL string) error {
	query := `UPDATE ad_spots SET landing_page_slug = ?, tracking_url = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, slug, trackingURL, id); err != nil {
		return fmt.Errorf("回写落地页失败: %w", err)
	}
	return nil
}

// AttachArtwork 设置广告素材，已售广告位同时进入 uploaded 状态
func (r *spotRepository) AttachArtwork(ctx context.Context, id, url string) error {
	query := `UPDATE ad_spots
		SET ad_copy_url = ?,
			status = CASE WHEN status = 'purchased' THEN 'uploaded' ELSE status END,
			updated_at = UTC_TIMESTAMP()
		WHERE id = ? AND status IN ('reserved', 'purchased', 'uploaded')`
	result, err := r.db.ExecContext(ctx, query, url, id)
	if err != nil {
		return fmt.Errorf("更新广告素材失败: %w", err)
	}
	return requireAffected(result)
}

// Release 任意状态 -> available，清空归属、素材、落地页和时间戳
func (r *spotRepository) Release(ctx context.Context, id string) error {
	query := `UPDATE ad_spots
		SET status = 'available', advertiser_id = NULL, ad_copy_url = NULL, landing_page_slug = NULL,
			tracking_url = NULL, checkout_session_id = NULL, reserved_at = NULL, purchased_at = NULL,
			updated_at = UTC_TIMESTAMP()
		WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("释放广告位失败: %w", err)
	}
	return nil
}

// DeleteAvailableByMailing 只删除仍可售的广告位，返回删除数量，调用方据此判断是否有广告位已被占用
func (r *spotRepository) DeleteAvailableByMailing(ctx context.Context, mailingID string) (int64, error) {
	query := `DELETE FROM ad_spots WHERE mailing_id = ? AND status = 'available'`
	result, err := r.db.ExecContext(ctx, query, mailingID)
	if err != nil {
		return 0, fmt.Errorf("删除广告位失败: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("获取影响行数失败: %w", err)
	}
	return n, nil
}

// nullable 空字符串写入为NULL
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
