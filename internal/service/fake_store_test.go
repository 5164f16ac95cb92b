package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"mailspot/internal/model"
	"mailspot/internal/repository"
)

// fakeDB 内存版数据库，事务串行执行，出错时整体回滚
type fakeDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	mailings map[string]model.Mailing
	spots    map[string]model.AdSpot
	payments map[string]model.Payment
	pages    map[string]model.LandingPage // 按 ad_spot_id
	profiles map[string]model.Profile
	events   []model.AnalyticsEvent
	posts    map[int64]model.BlogPost
	outbox   []model.OutboxEmail
	webhooks map[string]model.WebhookEvent

	nextID   int64
	failures map[string]error

	// afterCountSold 在统计之后、删除之前执行，模拟并发预留
	afterCountSold func()
}

type fakeSnapshot struct {
	mailings map[string]model.Mailing
	spots    map[string]model.AdSpot
	payments map[string]model.Payment
	pages    map[string]model.LandingPage
	profiles map[string]model.Profile
	events   []model.AnalyticsEvent
	posts    map[int64]model.BlogPost
	outbox   []model.OutboxEmail
	webhooks map[string]model.WebhookEvent
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		mailings: map[string]model.Mailing{},
		spots:    map[string]model.AdSpot{},
		payments: map[string]model.Payment{},
		pages:    map[string]model.LandingPage{},
		profiles: map[string]model.Profile{},
		posts:    map[int64]model.BlogPost{},
		webhooks: map[string]model.WebhookEvent{},
		failures: map[string]error{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *fakeDB) snapshot() fakeSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fakeSnapshot{
		mailings: copyMap(db.mailings),
		spots:    copyMap(db.spots),
		payments: copyMap(db.payments),
		pages:    copyMap(db.pages),
		profiles: copyMap(db.profiles),
		events:   append([]model.AnalyticsEvent(nil), db.events...),
		posts:    copyMap(db.posts),
		outbox:   append([]model.OutboxEmail(nil), db.outbox...),
		webhooks: copyMap(db.webhooks),
	}
}

func (db *fakeDB) restore(s fakeSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.mailings, db.spots, db.payments, db.pages = s.mailings, s.spots, s.payments, s.pages
	db.profiles, db.events, db.posts, db.outbox, db.webhooks = s.profiles, s.events, s.posts, s.outbox, s.webhooks
}

// failOn 让指定操作返回错误
func (db *fakeDB) failOn(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.failures[op] = err
}

func (db *fakeDB) fail(op string) error {
	return db.failures[op]
}

func (db *fakeDB) spot(id string) model.AdSpot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.spots[id]
}

func (db *fakeDB) paymentsFor(spotID string) []model.Payment {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []model.Payment
	for _, p := range db.payments {
		if p.AdSpotID == spotID {
			out = append(out, p)
		}
	}
	return out
}

func (db *fakeDB) outboxOf(emailType string) []model.OutboxEmail {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []model.OutboxEmail
	for _, e := range db.outbox {
		if e.EmailType == emailType {
			out = append(out, e)
		}
	}
	return out
}

type fakeStore struct {
	db   *fakeDB
	inTx bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{db: newFakeDB()}
}

func (s *fakeStore) Mailings() repository.MailingRepository         { return fakeMailings{s.db} }
func (s *fakeStore) Spots() repository.SpotRepository               { return fakeSpots{s.db} }
func (s *fakeStore) Payments() repository.PaymentRepository         { return fakePayments{s.db} }
func (s *fakeStore) LandingPages() repository.LandingPageRepository { return fakePages{s.db} }
func (s *fakeStore) Profiles() repository.ProfileRepository         { return fakeProfiles{s.db} }
func (s *fakeStore) Analytics() repository.AnalyticsRepository      { return fakeAnalytics{s.db} }
func (s *fakeStore) BlogPosts() repository.BlogPostRepository       { return fakePosts{s.db} }
func (s *fakeStore) Outbox() repository.OutboxRepository            { return fakeOutbox{s.db} }
func (s *fakeStore) WebhookEvents() repository.WebhookEventRepository {
	return fakeWebhooks{s.db}
}

func (s *fakeStore) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	snap := s.db.snapshot()
	if err := fn(&fakeStore{db: s.db, inTx: true}); err != nil {
		s.db.restore(snap)
		return err
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ---- mailings ----

type fakeMailings struct{ db *fakeDB }

func (r fakeMailings) Create(_ context.Context, m *model.Mailing) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.mailings[m.ID] = *m
	return nil
}

func (r fakeMailings) GetByID(_ context.Context, id string) (*model.Mailing, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.mailings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r fakeMailings) List(_ context.Context, status string) ([]model.MailingSummary, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []model.MailingSummary{}
	for _, m := range r.db.mailings {
		if status != "" && m.Status != status {
			continue
		}
		summary := model.MailingSummary{Mailing: m}
		for _, spot := range r.db.spots {
			if spot.MailingID != m.ID {
				continue
			}
			if spot.Status == model.SpotStatusAvailable {
				summary.AvailableSpots++
			} else {
				summary.SoldSpots++
			}
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

func (r fakeMailings) Update(_ context.Context, m *model.Mailing) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.mailings[m.ID]; !ok {
		return repository.ErrNotFound
	}
	r.db.mailings[m.ID] = *m
	return nil
}

func (r fakeMailings) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.mailings, id)
	return nil
}

// ---- spots ----

type fakeSpots struct{ db *fakeDB }

func (r fakeSpots) CreateBatch(_ context.Context, spots []model.AdSpot) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, spot := range spots {
		r.db.spots[spot.ID] = spot
	}
	return nil
}

func (r fakeSpots) GetByID(_ context.Context, id string) (*model.AdSpot, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	spot, ok := r.db.spots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &spot, nil
}

func (r fakeSpots) GetByIDs(_ context.Context, ids []string) ([]model.AdSpot, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []model.AdSpot{}
	for _, id := range ids {
		if spot, ok := r.db.spots[id]; ok {
			out = append(out, spot)
		}
	}
	return out, nil
}

func (r fakeSpots) filter(match func(model.AdSpot) bool) []model.AdSpot {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []model.AdSpot{}
	for _, spot := range r.db.spots {
		if match(spot) {
			out = append(out, spot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Side != out[j].Side {
			return out[i].Side > out[j].Side
		}
		return out[i].GridIndex < out[j].GridIndex
	})
	return out
}

func (r fakeSpots) ListByMailing(_ context.Context, mailingID string) ([]model.AdSpot, error) {
	return r.filter(func(s model.AdSpot) bool { return s.MailingID == mailingID }), nil
}

func (r fakeSpots) ListByAdvertiser(_ context.Context, advertiserID string) ([]model.AdSpot, error) {
	return r.filter(func(s model.AdSpot) bool { return s.OwnedBy(advertiserID) }), nil
}

func (r fakeSpots) ListBySession(_ context.Context, sessionID string) ([]model.AdSpot, error) {
	return r.filter(func(s model.AdSpot) bool {
		return s.CheckoutSessionID.Valid && s.CheckoutSessionID.String == sessionID
	}), nil
}

func (r fakeSpots) ListStaleReserved(_ context.Context, before time.Time, limit int) ([]model.AdSpot, error) {
	out := r.filter(func(s model.AdSpot) bool {
		return s.Status == model.SpotStatusReserved && s.ReservedAt.Valid && s.ReservedAt.Time.Before(before)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeSpots) CountSold(_ context.Context, mailingID string) (int, error) {
	n := len(r.filter(func(s model.AdSpot) bool {
		return s.MailingID == mailingID && s.Status != model.SpotStatusAvailable
	}))
	if r.db.afterCountSold != nil {
		r.db.afterCountSold()
	}
	return n, nil
}

func (r fakeSpots) UpdatePriceForAvailable(_ context.Context, mailingID string, price int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, spot := range r.db.spots {
		if spot.MailingID == mailingID && spot.Status == model.SpotStatusAvailable {
			spot.PriceCents = price
			r.db.spots[id] = spot
		}
	}
	return nil
}

// update 条件更新，cond 不满足时返回 ErrConflict
func (r fakeSpots) update(op, id string, cond func(model.AdSpot) bool, apply func(*model.AdSpot)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("spots." + op); err != nil {
		return err
	}
	spot, ok := r.db.spots[id]
	if !ok || !cond(spot) {
		return repository.ErrConflict
	}
	apply(&spot)
	spot.UpdatedAt = time.Now().UTC()
	r.db.spots[id] = spot
	return nil
}

func isStatus(statuses ...string) func(model.AdSpot) bool {
	return func(s model.AdSpot) bool {
		for _, status := range statuses {
			if s.Status == status {
				return true
			}
		}
		return false
	}
}

func clearReservation(s *model.AdSpot) {
	s.Status = model.SpotStatusAvailable
	s.AdvertiserID = sql.NullString{}
	s.CheckoutSessionID = sql.NullString{}
	s.ReservedAt = sql.NullTime{}
}

func (r fakeSpots) Reserve(_ context.Context, id, advertiserID string, at time.Time) error {
	return r.update("reserve", id, isStatus(model.SpotStatusAvailable), func(s *model.AdSpot) {
		s.Status = model.SpotStatusReserved
		s.AdvertiserID = nullString(advertiserID)
		s.ReservedAt = sql.NullTime{Time: at, Valid: true}
	})
}

func (r fakeSpots) SetCheckoutSession(_ context.Context, id, advertiserID, sessionID string) error {
	return r.update("set_session", id, func(s model.AdSpot) bool {
		return s.Status == model.SpotStatusReserved && s.OwnedBy(advertiserID)
	}, func(s *model.AdSpot) {
		s.CheckoutSessionID = nullString(sessionID)
	})
}

func (r fakeSpots) ReleaseReservation(_ context.Context, id, advertiserID string) error {
	return r.update("release_reservation", id, func(s model.AdSpot) bool {
		return s.Status == model.SpotStatusReserved && s.OwnedBy(advertiserID)
	}, clearReservation)
}

func (r fakeSpots) ReleaseStale(_ context.Context, id, sessionID string) error {
	return r.update("release_stale", id, func(s model.AdSpot) bool {
		return s.Status == model.SpotStatusReserved && s.CheckoutSessionID.String == sessionID
	}, clearReservation)
}

func (r fakeSpots) MarkPurchased(_ context.Context, id, advertiserID, adCopyURL string, at time.Time) error {
	return r.update("mark_purchased", id, func(s model.AdSpot) bool {
		return s.Status == model.SpotStatusReserved && s.OwnedBy(advertiserID)
	}, func(s *model.AdSpot) {
		s.Status = model.SpotStatusPurchased
		s.PurchasedAt = sql.NullTime{Time: at, Valid: true}
		if adCopyURL != "" {
			s.AdCopyURL = nullString(adCopyURL)
		}
	})
}

func (r fakeSpots) AssignPurchased(_ context.Context, id, advertiserID, adCopyURL string, at time.Time) error {
	return r.update("assign_purchased", id, isStatus(model.SpotStatusAvailable), func(s *model.AdSpot) {
		s.Status = model.SpotStatusPurchased
		s.AdvertiserID = nullString(advertiserID)
		s.PurchasedAt = sql.NullTime{Time: at, Valid: true}
		s.AdCopyURL = nullString(adCopyURL)
		s.ReservedAt = sql.NullTime{}
	})
}

func (r fakeSpots) AttachLandingPage(_ context.Context, id, slug, trackingURL string) error {
	err := r.update("attach_landing", id, func(model.AdSpot) bool { return true }, func(s *model.AdSpot) {
		s.LandingPageSlug = nullString(slug)
		s.TrackingURL = nullString(trackingURL)
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil
	}
	return err
}

func (r fakeSpots) AttachArtwork(_ context.Context, id, url string) error {
	return r.update("attach_artwork", id,
		isStatus(model.SpotStatusReserved, model.SpotStatusPurchased, model.SpotStatusUploaded),
		func(s *model.AdSpot) {
			s.AdCopyURL = nullString(url)
			if s.Status == model.SpotStatusPurchased {
				s.Status = model.SpotStatusUploaded
			}
		})
}

func (r fakeSpots) Release(_ context.Context, id string) error {
	err := r.update("release", id, func(model.AdSpot) bool { return true }, func(s *model.AdSpot) {
		clearReservation(s)
		s.AdCopyURL = sql.NullString{}
		s.LandingPageSlug = sql.NullString{}
		s.TrackingURL = sql.NullString{}
		s.PurchasedAt = sql.NullTime{}
	})
	if errors.Is(err, repository.ErrConflict) {
		return nil
	}
	return err
}

func (r fakeSpots) DeleteAvailableByMailing(_ context.Context, mailingID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, spot := range r.db.spots {
		if spot.MailingID == mailingID && spot.Status == model.SpotStatusAvailable {
			delete(r.db.spots, id)
			n++
		}
	}
	return n, nil
}

// ---- payments ----

type fakePayments struct{ db *fakeDB }

func (r fakePayments) Create(_ context.Context, p *model.Payment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.fail("payments.create"); err != nil {
		return err
	}
	r.db.payments[p.ID] = *p
	return nil
}

func (r fakePayments) set(match func(model.Payment) bool, apply func(*model.Payment)) int {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for id, p := range r.db.payments {
		if match(p) {
			apply(&p)
			r.db.payments[id] = p
			n++
		}
	}
	return n
}

func (r fakePayments) Complete(_ context.Context, sessionID, spotID, intentID string) (bool, error) {
	n := r.set(func(p model.Payment) bool {
		return p.StripeSessionID.String == sessionID && p.AdSpotID == spotID &&
			(p.Status == model.PaymentStatusPending || p.Status == model.PaymentStatusFailed)
	}, func(p *model.Payment) {
		p.Status = model.PaymentStatusCompleted
		p.StripePaymentIntentID = nullString(intentID)
	})
	return n > 0, nil
}

func (r fakePayments) Fail(_ context.Context, sessionID, spotID string) error {
	r.set(func(p model.Payment) bool {
		return p.StripeSessionID.String == sessionID && p.AdSpotID == spotID && p.Status == model.PaymentStatusPending
	}, func(p *model.Payment) { p.Status = model.PaymentStatusFailed })
	return nil
}

func (r fakePayments) FailPendingBySession(_ context.Context, sessionID string) error {
	r.set(func(p model.Payment) bool {
		return p.StripeSessionID.String == sessionID && p.Status == model.PaymentStatusPending
	}, func(p *model.Payment) { p.Status = model.PaymentStatusFailed })
	return nil
}

func (r fakePayments) list(match func(model.Payment) bool) []model.Payment {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []model.Payment{}
	for _, p := range r.db.payments {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r fakePayments) ListBySession(_ context.Context, sessionID string) ([]model.Payment, error) {
	return r.list(func(p model.Payment) bool { return p.StripeSessionID.String == sessionID }), nil
}

func (r fakePayments) ListByAdvertiser(_ context.Context, advertiserID string) ([]model.Payment, error) {
	return r.list(func(p model.Payment) bool { return p.AdvertiserID == advertiserID }), nil
}

func (r fakePayments) List(_ context.Context, f model.PaymentFilter) ([]model.Payment, int, error) {
	out := r.list(func(p model.Payment) bool {
		return (f.MailingID == "" || p.MailingID == f.MailingID) &&
			(f.AdvertiserID == "" || p.AdvertiserID == f.AdvertiserID) &&
			(f.Status == "" || p.Status == f.Status)
	})
	total := len(out)
	start := (f.Page - 1) * f.PageSize
	if start >= total {
		return []model.Payment{}, total, nil
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

// ---- landing pages ----

type fakePages struct{ db *fakeDB }

func (r fakePages) Upsert(_ context.Context, p *model.LandingPage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for spotID, existing := range r.db.pages {
		if existing.Slug == p.Slug && spotID != p.AdSpotID {
			return repository.ErrDuplicate
		}
	}
	page := *p
	if existing, ok := r.db.pages[p.AdSpotID]; ok {
		page.ID = existing.ID
		page.CreatedAt = existing.CreatedAt
	}
	r.db.pages[p.AdSpotID] = page
	return nil
}

func (r fakePages) GetBySlug(_ context.Context, slug string) (*model.LandingPage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.pages {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r fakePages) GetByAdSpot(_ context.Context, adSpotID string) (*model.LandingPage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.pages[adSpotID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r fakePages) UpdateOffer(_ context.Context, adSpotID, offerText string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.pages[adSpotID]; ok {
		p.OfferText = offerText
		r.db.pages[adSpotID] = p
	}
	return nil
}

func (r fakePages) DeleteByAdSpot(_ context.Context, adSpotID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.pages, adSpotID)
	return nil
}

// ---- profiles ----

type fakeProfiles struct{ db *fakeDB }

func (r fakeProfiles) Create(_ context.Context, p *model.Profile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.profiles {
		if existing.Email == p.Email || (p.Token.Valid && existing.Token.String == p.Token.String) {
			return repository.ErrDuplicate
		}
	}
	r.db.profiles[p.ID] = *p
	return nil
}

func (r fakeProfiles) find(match func(model.Profile) bool) (*model.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.profiles {
		if match(p) {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r fakeProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	return r.find(func(p model.Profile) bool { return p.ID == id })
}

func (r fakeProfiles) GetByEmail(_ context.Context, email string) (*model.Profile, error) {
	return r.find(func(p model.Profile) bool { return p.Email == email })
}

func (r fakeProfiles) GetByToken(_ context.Context, token string) (*model.Profile, error) {
	return r.find(func(p model.Profile) bool { return p.Token.Valid && p.Token.String == token })
}

func (r fakeProfiles) UpdateToken(_ context.Context, id, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.profiles[id]; ok {
		p.Token = nullString(token)
		r.db.profiles[id] = p
	}
	return nil
}

func (r fakeProfiles) Claim(_ context.Context, id, passwordHash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.profiles[id]
	if !ok || !p.IsPlaceholder {
		return repository.ErrConflict
	}
	p.PasswordHash = nullString(passwordHash)
	p.IsPlaceholder = false
	r.db.profiles[id] = p
	return nil
}

func (r fakeProfiles) Search(_ context.Context, keyword string, limit int) ([]*model.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []*model.Profile{}
	for _, p := range r.db.profiles {
		if strings.Contains(p.Email, keyword) || strings.Contains(p.BusinessName, keyword) {
			p := p
			out = append(out, &p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ---- analytics ----

type fakeAnalytics struct{ db *fakeDB }

func (r fakeAnalytics) Insert(_ context.Context, e *model.AnalyticsEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.nextID++
	e.ID = r.db.nextID
	r.db.events = append(r.db.events, *e)
	return nil
}

func (r fakeAnalytics) CountScansBySpots(_ context.Context, spotIDs []string) (map[string]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	counts := map[string]int64{}
	for _, e := range r.db.events {
		if e.EventType != model.EventQRScan {
			continue
		}
		for _, id := range spotIDs {
			if e.AdSpotID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

// ---- blog posts ----

type fakePosts struct{ db *fakeDB }

func (r fakePosts) filtered(publishedOnly bool) []model.BlogPost {
	out := []model.BlogPost{}
	for _, p := range r.db.posts {
		if !publishedOnly || p.IsPublished {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out
}

func (r fakePosts) List(_ context.Context, page, limit int, publishedOnly bool) ([]model.BlogPost, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	all := r.filtered(publishedOnly)
	start := (page - 1) * limit
	if start >= len(all) {
		return []model.BlogPost{}, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r fakePosts) Count(_ context.Context, publishedOnly bool) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.filtered(publishedOnly))), nil
}

func (r fakePosts) GetByID(_ context.Context, id int64) (*model.BlogPost, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r fakePosts) GetBySlug(_ context.Context, slug string) (*model.BlogPost, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.posts {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r fakePosts) slugTaken(slug string, exceptID int64) bool {
	for _, p := range r.db.posts {
		if p.Slug == slug && p.ID != exceptID {
			return true
		}
	}
	return false
}

func (r fakePosts) Create(_ context.Context, p *model.BlogPost) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.slugTaken(p.Slug, 0) {
		return repository.ErrDuplicate
	}
	r.db.nextID++
	p.ID = r.db.nextID
	r.db.posts[p.ID] = *p
	return nil
}

func (r fakePosts) Update(_ context.Context, p *model.BlogPost) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.slugTaken(p.Slug, p.ID) {
		return repository.ErrDuplicate
	}
	r.db.posts[p.ID] = *p
	return nil
}

func (r fakePosts) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.posts, id)
	return nil
}

// ---- outbox ----

type fakeOutbox struct{ db *fakeDB }

func (r fakeOutbox) Enqueue(_ context.Context, e *model.OutboxEmail) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.nextID++
	e.ID = r.db.nextID
	r.db.outbox = append(r.db.outbox, *e)
	return nil
}

func (r fakeOutbox) ListPending(_ context.Context, limit int) ([]model.OutboxEmail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []model.OutboxEmail{}
	for _, e := range r.db.outbox {
		if e.Status == model.OutboxStatusPending && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r fakeOutbox) update(id int64, apply func(*model.OutboxEmail)) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.outbox {
		if r.db.outbox[i].ID == id {
			apply(&r.db.outbox[i])
		}
	}
}

func (r fakeOutbox) MarkSent(_ context.Context, id int64, at time.Time) error {
	r.update(id, func(e *model.OutboxEmail) {
		e.Status = model.OutboxStatusSent
		e.SentAt = sql.NullTime{Time: at, Valid: true}
		e.Attempts++
	})
	return nil
}

func (r fakeOutbox) MarkAttemptFailed(_ context.Context, id int64, errMsg string, final bool) error {
	r.db.mu.Lock()
	failErr := r.db.fail("outbox.markAttemptFailed")
	r.db.mu.Unlock()
	if failErr != nil {
		return failErr
	}
	r.update(id, func(e *model.OutboxEmail) {
		e.Attempts++
		e.LastError = nullString(errMsg)
		if final {
			e.Status = model.OutboxStatusFailed
		}
	})
	return nil
}

// ---- webhook events ----

type fakeWebhooks struct{ db *fakeDB }

func (r fakeWebhooks) Record(_ context.Context, eventID, eventType string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if e, ok := r.db.webhooks[eventID]; ok {
		return e.ProcessedAt.Valid, nil
	}
	r.db.webhooks[eventID] = model.WebhookEvent{ProviderEventID: eventID, EventType: eventType, CreatedAt: time.Now().UTC()}
	return false, nil
}

func (r fakeWebhooks) MarkProcessed(_ context.Context, eventID string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e := r.db.webhooks[eventID]
	e.ProcessedAt = sql.NullTime{Time: at, Valid: true}
	e.ProcessingError = sql.NullString{}
	r.db.webhooks[eventID] = e
	return nil
}

func (r fakeWebhooks) MarkError(_ context.Context, eventID, errMsg string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e := r.db.webhooks[eventID]
	e.ProcessingError = nullString(errMsg)
	r.db.webhooks[eventID] = e
	return nil
}
