package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"mailspot/config"
	"mailspot/internal/model"
	"mailspot/internal/repository"
	"mailspot/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	claimAudience     = "profile-claim"
	minPasswordLength = 8
	sessionTokenBytes = 32
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AuthService 账号注册、登录、令牌校验与占位账号认领
type AuthService struct {
	store       repository.Store
	notifier    *Notifier
	claimSecret []byte
	claimTTL    time.Duration
	siteURL     string
	logger      *logger.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(store repository.Store, notifier *Notifier, authCfg config.AuthConfig, siteURL string, logger *logger.Logger) *AuthService {
	return &AuthService{
		store:       store,
		notifier:    notifier,
		claimSecret: []byte(authCfg.ClaimSecret),
		claimTTL:    authCfg.ClaimTTL,
		siteURL:     strings.TrimRight(siteURL, "/"),
		logger:      logger,
	}
}

// NormalizeEmail 统一邮箱格式
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return invalidf("invalid email address")
	}
	return nil
}

// generateToken 生成登录令牌
func generateToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("生成令牌失败: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Register 注册广告主账号，返回账号和登录令牌
func (s *AuthService) Register(ctx context.Context, emailAddr, password, businessName string) (*model.Profile, string, error) {
	emailAddr = NormalizeEmail(emailAddr)
	if err := validateEmail(emailAddr); err != nil {
		return nil, "", err
	}
	if len(password) < minPasswordLength {
		return nil, "", invalidf("password must be at least %d characters", minPasswordLength)
	}

	existing, err := s.store.Profiles().GetByEmail(ctx, emailAddr)
	if err == nil {
		if existing.IsPlaceholder {
			return nil, "", fmt.Errorf("%w: use the claim link sent to this address", ErrEmailTaken)
		}
		return nil, "", ErrEmailTaken
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("密码加密失败: %w", err)
	}
	token, err := generateToken()
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	profile := &model.Profile{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		BusinessName: strings.TrimSpace(businessName),
		PasswordHash: sql.NullString{String: string(hash), Valid: true},
		Role:         model.RoleAdvertiser,
		Token:        sql.NullString{String: token, Valid: true},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Profiles().Create(ctx, profile); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrEmailTaken
			}
			return err
		}
		return s.notifier.EnqueueWelcome(ctx, tx, profile, "")
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("广告主注册成功", "profile_id", profile.ID)
	return profile, token, nil
}

// Login 邮箱密码登录，每次登录签发新令牌
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (*model.Profile, string, error) {
	profile, err := s.store.Profiles().GetByEmail(ctx, NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !profile.PasswordHash.Valid {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash.String), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return nil, "", err
	}
	if err := s.store.Profiles().UpdateToken(ctx, profile.ID, token); err != nil {
		return nil, "", err
	}
	profile.Token = sql.NullString{String: token, Valid: true}
	return profile, token, nil
}

// Authenticate 根据令牌解析当前用户
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Profile, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, ErrUnauthorized
	}
	profile, err := s.store.Profiles().GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return profile, nil
}

// Logout 作废当前令牌
func (s *AuthService) Logout(ctx context.Context, profile *model.Profile) error {
	return s.store.Profiles().UpdateToken(ctx, profile.ID, "")
}

// IssueClaimToken 为占位账号签发认领令牌
func (s *AuthService) IssueClaimToken(profileID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   profileID,
		Audience:  jwt.ClaimStrings{claimAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.claimTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.claimSecret)
	if err != nil {
		return "", fmt.Errorf("签发认领令牌失败: %w", err)
	}
	return signed, nil
}

// ClaimURL 认领链接
func (s *AuthService) ClaimURL(profileID string) (string, error) {
	token, err := s.IssueClaimToken(profileID)
	if err != nil {
		return "", err
	}
	return s.siteURL + "/claim?token=" + url.QueryEscape(token), nil
}

func (s *AuthService) parseClaimToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.claimSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithAudience(claimAudience))
	if err != nil || claims.Subject == "" {
		return "", invalidf("invalid or expired claim link")
	}
	return claims.Subject, nil
}

// Claim 占位账号设置密码后转为正式账号
func (s *AuthService) Claim(ctx context.Context, claimToken, password string) (*model.Profile, string, error) {
	profileID, err := s.parseClaimToken(claimToken)
	if err != nil {
		return nil, "", err
	}
	if len(password) < minPasswordLength {
		return nil, "", invalidf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("密码加密失败: %w", err)
	}
	if err := s.store.Profiles().Claim(ctx, profileID, string(hash)); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, "", invalidf("account already claimed")
		}
		return nil, "", err
	}

	token, err := generateToken()
	if err != nil {
		return nil, "", err
	}
	if err := s.store.Profiles().UpdateToken(ctx, profileID, token); err != nil {
		return nil, "", err
	}

	profile, err := s.store.Profiles().GetByID(ctx, profileID)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("占位账号已认领", "profile_id", profileID)
	return profile, token, nil
}

// SearchProfiles 管理员按邮箱或商户名搜索账号
func (s *AuthService) SearchProfiles(ctx context.Context, keyword string) ([]*model.Profile, error) {
	return s.store.Profiles().Search(ctx, strings.TrimSpace(keyword), 20)
}

// getOrCreatePlaceholder 按邮箱查找账号，不存在时创建占位账号；created 表示本次新建
func (s *AuthService) getOrCreatePlaceholder(ctx context.Context, tx repository.Store, emailAddr, businessName string) (*model.Profile, bool, error) {
	profile, err := tx.Profiles().GetByEmail(ctx, emailAddr)
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	profile = &model.Profile{
		ID:            uuid.NewString(),
		Email:         emailAddr,
		BusinessName:  strings.TrimSpace(businessName),
		Role:          model.RoleAdvertiser,
		IsPlaceholder: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.Profiles().Create(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			existing, getErr := tx.Profiles().GetByEmail(ctx, emailAddr)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return profile, true, nil
}
