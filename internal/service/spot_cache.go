package service

import (
	"context"
	"encoding/json"
	"time"

	"mailspot/internal/model"
	"mailspot/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const spotCacheTTL = time.Minute

// SpotCache 公开广告位列表缓存，任何广告位变更后按期失效
type SpotCache struct {
	redisClient *redis.Client
	logger      *logger.Logger
}

// NewSpotCache 创建广告位缓存
func NewSpotCache(redisClient *redis.Client, logger *logger.Logger) *SpotCache {
	return &SpotCache{redisClient: redisClient, logger: logger}
}

func spotCacheKey(mailingID string) string {
	return "mailings:spots:" + mailingID
}

// Get 读取缓存，未命中返回 false
func (c *SpotCache) Get(ctx context.Context, mailingID string) ([]model.SpotView, bool) {
	data, err := c.redisClient.Get(ctx, spotCacheKey(mailingID)).Bytes()
	if err != nil {
		return nil, false
	}
	var spots []model.SpotView
	if err := json.Unmarshal(data, &spots); err != nil {
		return nil, false
	}
	return spots, true
}

// Set 写入缓存
func (c *SpotCache) Set(ctx context.Context, mailingID string, spots []model.SpotView) {
	data, err := json.Marshal(spots)
	if err != nil {
		return
	}
	if err := c.redisClient.Set(ctx, spotCacheKey(mailingID), data, spotCacheTTL).Err(); err != nil {
		c.logger.Warn("写入广告位缓存失败", "mailing_id", mailingID, "error", err)
	}
}

// Invalidate 删除一期或多期的缓存
func (c *SpotCache) Invalidate(ctx context.Context, mailingIDs ...string) {
	if len(mailingIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(mailingIDs))
	for _, id := range mailingIDs {
		keys = append(keys, spotCacheKey(id))
	}
	if err := c.redisClient.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("删除广告位缓存失败", "mailing_ids", mailingIDs, "error", err)
	}
}
