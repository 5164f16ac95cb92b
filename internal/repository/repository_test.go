package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"mailspot/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(sqlx.NewDb(db, "mysql")), mock
}

func TestSpotReserveIsConditional(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	at := time.Now().UTC()

	reserve := regexp.QuoteMeta(`WHERE id = ? AND status = 'available'`)
	mock.ExpectExec(reserve).WithArgs("adv-1", at, "spot-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(reserve).WithArgs("adv-2", at, "spot-1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Spots().Reserve(ctx, "spot-1", "adv-1", at))
	err := store.Spots().Reserve(ctx, "spot-1", "adv-2", at)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpotMarkPurchasedRequiresSameAdvertiser(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = ? AND status = 'reserved' AND advertiser_id = ?`)).
		WithArgs(at, nil, "spot-1", "adv-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Spots().MarkPurchased(context.Background(), "spot-1", "adv-1", "", at)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpotReleaseStaleMatchesNullSession(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`checkout_session_id <=> ?`)).
		WithArgs("spot-1", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Spots().ReleaseStale(context.Background(), "spot-1", ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpotDeleteOnlyTouchesAvailableSpots(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	del := regexp.QuoteMeta(`DELETE FROM ad_spots WHERE mailing_id = ? AND status = 'available'`)
	mock.ExpectExec(del).WithArgs("mailing-1").WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectExec(del).WithArgs("mailing-2").WillReturnResult(sqlmock.NewResult(0, 11))

	n, err := store.Spots().DeleteAvailableByMailing(ctx, "mailing-1")
	require.NoError(t, err)
	assert.Equal(t, int64(model.SpotsPerMailing), n)

	n, err = store.Spots().DeleteAvailableByMailing(ctx, "mailing-2")
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSpotGetByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM ad_spots WHERE id = ?`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Spots().GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE ad_spots`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(tx Store) error {
		if err := tx.Spots().Reserve(context.Background(), "spot-1", "adv-1", time.Now()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxCommitsAndReusesNestedTx(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM ad_spots`)).WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(tx Store) error {
		return tx.InTx(context.Background(), func(inner Store) error {
			_, err := inner.Spots().DeleteAvailableByMailing(context.Background(), "mailing-1")
			return err
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentCompleteReportsWhetherRowChanged(t *testing.T) {
	store, mock := newMockStore(t)
	complete := regexp.QuoteMeta(`status IN ('pending', 'failed')`)

	mock.ExpectExec(complete).WithArgs("pi_1", "cs_1", "spot-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(complete).WithArgs("pi_1", "cs_1", "spot-1").WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := store.Payments().Complete(context.Background(), "cs_1", "spot-1", "pi_1")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = store.Payments().Complete(context.Background(), "cs_1", "spot-1", "pi_1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookRecordReportsProcessedEvents(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	columns := []string{"provider_event_id", "event_type", "processed_at", "processing_error", "created_at"}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT IGNORE INTO webhook_events`)).
		WithArgs("evt_1", "checkout.session.completed").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM webhook_events WHERE provider_event_id = ?`)).
		WithArgs("evt_1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("evt_1", "checkout.session.completed", now, nil, now))

	processed, err := store.WebhookEvents().Record(context.Background(), "evt_1", "checkout.session.completed")
	require.NoError(t, err)
	assert.True(t, processed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileCreateDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO profiles`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := store.Profiles().Create(context.Background(), &model.Profile{
		ID:    "p-1",
		Email: "owner@example.com",
		Role:  model.RoleAdvertiser,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestProfileLogoutWritesNullToken(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE profiles`)).
		WithArgs(nil, "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Profiles().UpdateToken(context.Background(), "p-1", ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}
