package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"mailspot/config"
	"mailspot/internal/model"
	"mailspot/pkg/async"
	"mailspot/pkg/email"
	"mailspot/pkg/logger"
	"mailspot/pkg/payment"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testSiteURL     = "https://mailspot.test"
	testTrackingURL = "https://go.mailspot.test"
	validSignature  = "t=1,v1=valid"
)

// fakeGateway 记录请求的支付网关，回调载荷直接是 payment.Event 的JSON
type fakeGateway struct {
	mu        sync.Mutex
	createErr error
	requests  []payment.SessionRequest
	expired   []string
	seq       int
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.seq++
	g.requests = append(g.requests, req)
	var total int64
	for _, item := range req.LineItems {
		total += item.AmountCents
	}
	id := fmt.Sprintf("cs_test_%d", g.seq)
	return &payment.Session{
		ID:          id,
		URL:         "https://checkout.stripe.test/" + id,
		AmountTotal: total,
		Metadata:    req.Metadata,
	}, nil
}

func (g *fakeGateway) ExpireCheckoutSession(_ context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expired = append(g.expired, sessionID)
	return nil
}

func (g *fakeGateway) ParseWebhook(body []byte, signature string) (*payment.Event, error) {
	if signature != validSignature {
		return nil, payment.ErrInvalidSignature
	}
	var event payment.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (g *fakeGateway) lastRequest() payment.SessionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

// fakeUploader 内存对象存储
type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, key string, body io.ReadSeeker, _ int64, _ string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[key] = data
	return "https://cdn.mailspot.test/" + key, nil
}

// fakeSender 记录发送的邮件
type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *fakeSender) Send(_ context.Context, emailType email.EmailType, to string, _ map[string]interface{}) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, string(emailType)+":"+to)
	return nil
}

type testEnv struct {
	store    *fakeStore
	gateway  *fakeGateway
	uploader *fakeUploader
	sender   *fakeSender
	redis    *miniredis.Miniredis
	worker   *async.Worker

	notifier    *Notifier
	auth        *AuthService
	mailings    *MailingService
	checkout    *CheckoutService
	fulfillment *FulfillmentService
	admin       *AdminSpotService
	artwork     *ArtworkService
	landing     *LandingService
	blog        *BlogService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.NewNop()
	store := newFakeStore()
	gateway := &fakeGateway{}
	uploader := &fakeUploader{}
	sender := &fakeSender{}
	worker := async.NewWorker(64, log)
	worker.Start(2)
	t.Cleanup(worker.Stop)

	cache := NewSpotCache(rdb, log)
	notifier := NewNotifier(store, sender, testSiteURL, log)
	auth := NewAuthService(store, notifier, config.AuthConfig{ClaimSecret: "test-secret", ClaimTTL: time.Hour}, testSiteURL, log)
	checkoutCfg := config.CheckoutConfig{SessionTTL: 30 * time.Minute, SweepGrace: 5 * time.Minute}

	return &testEnv{
		store:       store,
		gateway:     gateway,
		uploader:    uploader,
		sender:      sender,
		redis:       mr,
		worker:      worker,
		notifier:    notifier,
		auth:        auth,
		mailings:    NewMailingService(store, cache, log),
		checkout:    NewCheckoutService(store, gateway, auth, cache, rdb, testSiteURL, checkoutCfg, log),
		fulfillment: NewFulfillmentService(store, gateway, notifier, cache, testTrackingURL, log),
		admin:       NewAdminSpotService(store, auth, notifier, cache, testTrackingURL, log),
		artwork:     NewArtworkService(store, uploader, cache, 1, log),
		landing:     NewLandingService(store, worker, testSiteURL, log),
		blog:        NewBlogService(store, rdb, log),
	}
}

// createMailing 创建一期开放售卖的期刊
func (e *testEnv) createMailing(t *testing.T, priceCents int64) *MailingDetail {
	t.Helper()
	detail, err := e.mailings.CreateMailing(context.Background(), MailingInput{
		Title:          "Oak Park Spring Mailer",
		ZipCodes:       []string{"60302", "60304"},
		ScheduledDate:  time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC),
		SpotPriceCents: priceCents,
	})
	require.NoError(t, err)
	return detail
}

// createAdvertiser 直接写入一个已注册的广告主
func (e *testEnv) createAdvertiser(t *testing.T, emailAddr string) *model.Profile {
	t.Helper()
	now := time.Now().UTC()
	profile := &model.Profile{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		BusinessName: "Biz " + emailAddr,
		Role:         model.RoleAdvertiser,
		PasswordHash: sql.NullString{String: "x", Valid: true},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.store.Profiles().Create(context.Background(), profile))
	return profile
}

func (e *testEnv) createAdmin(t *testing.T) *model.Profile {
	t.Helper()
	admin := e.createAdvertiser(t, "admin@mailspot.test")
	admin.Role = model.RoleAdmin
	e.store.db.mu.Lock()
	e.store.db.profiles[admin.ID] = *admin
	e.store.db.mu.Unlock()
	return admin
}

// webhookBody 构造回调载荷
func webhookBody(t *testing.T, eventID, eventType string, session *payment.Session) []byte {
	t.Helper()
	body, err := json.Marshal(payment.Event{ID: eventID, Type: eventType, Session: session})
	require.NoError(t, err)
	return body
}

// completedSession 根据最近一次下单构造支付成功的会话
func (e *testEnv) completedSession(result *CheckoutResult) *payment.Session {
	req := e.gateway.lastRequest()
	return &payment.Session{
		ID:              result.SessionID,
		AmountTotal:     result.AmountCents,
		PaymentStatus:   "paid",
		PaymentIntentID: "pi_" + result.SessionID,
		Metadata:        req.Metadata,
	}
}

func spotIDs(detail *MailingDetail, n int) []string {
	ids := make([]string, 0, n)
	for _, s := range detail.Spots[:n] {
		ids = append(ids, s.ID)
	}
	return ids
}
