package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"mailspot/internal/metrics"
	"mailspot/internal/model"
	"mailspot/internal/repository"
	"mailspot/pkg/logger"
	"mailspot/pkg/storage"

	"github.com/google/uuid"
)

var artworkTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// ArtworkFile 上传的素材文件
type ArtworkFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// ArtworkService 广告素材上传
type ArtworkService struct {
	store    repository.Store
	uploader storage.Uploader
	cache    *SpotCache
	maxBytes int64
	logger   *logger.Logger
}

// NewArtworkService 创建素材服务
func NewArtworkService(store repository.Store, uploader storage.Uploader, cache *SpotCache, maxUploadMB int64, logger *logger.Logger) *ArtworkService {
	return &ArtworkService{
		store:    store,
		uploader: uploader,
		cache:    cache,
		maxBytes: maxUploadMB << 20,
		logger:   logger,
	}
}

func (s *ArtworkService) validate(file ArtworkFile) (string, error) {
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(file.ContentType, ";")[0]))
	ext, ok := artworkTypes[contentType]
	if !ok {
		return "", invalidf("unsupported file type %q", file.ContentType)
	}
	if file.Size <= 0 {
		return "", invalidf("file is empty")
	}
	if file.Size > s.maxBytes {
		return "", invalidf("file exceeds %d MB", s.maxBytes>>20)
	}
	return ext, nil
}

func (s *ArtworkService) upload(ctx context.Context, ownerID string, file ArtworkFile) (string, error) {
	ext, err := s.validate(file)
	if err != nil {
		return "", err
	}
	key := path.Join("artwork", ownerID, uuid.NewString()+ext)
	url, err := s.uploader.Upload(ctx, key, file.Body, file.Size, strings.Split(file.ContentType, ";")[0])
	if err != nil {
		return "", fmt.Errorf("上传素材失败: %w", err)
	}
	return url, nil
}

// UploadStaged 下单前上传素材，返回的链接随下单请求提交
func (s *ArtworkService) UploadStaged(ctx context.Context, uploader *model.Profile, file ArtworkFile) (string, error) {
	if uploader == nil {
		return "", ErrUnauthorized
	}
	return s.upload(ctx, uploader.ID, file)
}

// UploadForSpot 为已购买的广告位上传或替换素材；广告主只能操作自己的广告位，管理员不受限
func (s *ArtworkService) UploadForSpot(ctx context.Context, uploader *model.Profile, spotID string, file ArtworkFile) (*model.SpotView, error) {
	if uploader == nil {
		return nil, ErrUnauthorized
	}
	spot, err := s.store.Spots().GetByID(ctx, spotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !uploader.IsAdmin() && !spot.OwnedBy(uploader.ID) {
		return nil, ErrForbidden
	}
	if spot.Status == model.SpotStatusAvailable {
		return nil, invalidf("spot has not been purchased")
	}

	ownerID := spot.AdvertiserID.String
	url, err := s.upload(ctx, ownerID, file)
	if err != nil {
		return nil, err
	}
	if err := s.store.Spots().AttachArtwork(ctx, spot.ID, url); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrSpotUnavailable
		}
		return nil, err
	}

	updated, err := s.store.Spots().GetByID(ctx, spot.ID)
	if err != nil {
		return nil, err
	}
	if spot.Status != updated.Status {
		metrics.RecordSpotTransition(updated.Status, 1)
	}
	s.cache.Invalidate(ctx, spot.MailingID)
	s.logger.Info("广告素材已更新", "spot_id", spot.ID, "uploader_id", uploader.ID, "url", url)

	view := updated.View()
	return &view, nil
}
