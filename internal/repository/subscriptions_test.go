package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"fastpayment/internal/database"
	apperr "fastpayment/internal/errors"
	"fastpayment/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return database.Wrap(sqlDB), mock
}

var registrationCols = []string{"id", "person_id", "schedule_id", "payment_id", "transaction_id", "status", "created_at"}

const (
	selectRegistrationSQL = "SELECT id, person_id, schedule_id, payment_id, transaction_id, status, created_at FROM registrations WHERE person_id = $1 AND schedule_id = $2"
	decrementSQL          = "UPDATE schedules SET vacancies = vacancies - 1"
)

func TestCompleteSubscription_Success(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewSubscriptionRepository(db)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectRegistrationSQL)).
		WithArgs(7, 3).
		WillReturnRows(sqlmock.NewRows(registrationCols))
	mock.ExpectQuery(regexp.QuoteMeta(decrementSQL)).
		WithArgs(3, now).
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT price_cents FROM events WHERE id = $1")).
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"price_cents"}).AddRow(5000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM persons WHERE id = $1")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("ana@example.com"))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO transactions")).
		WithArgs("mp-1", 7, 3, "ana@example.com", 5000, "approved", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO registrations")).
		WithArgs(7, 3, "mp-1", 21, "confirmed", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(31))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO history_logs")).
		WithArgs(21, "mp-1", models.ActionSubscriptionCompleted, sqlmock.AnyArg(), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(41))
	mock.ExpectCommit()

	res, err := repo.Complete(context.Background(), CommitInput{PersonID: 7, ScheduleID: 3, PaymentID: "mp-1", Now: now})
	require.NoError(t, err)
	require.NotNil(t, res.Registration)
	assert.Equal(t, int64(31), res.Registration.ID)
	assert.Equal(t, models.RegistrationConfirmed, res.Registration.Status)
	assert.Equal(t, int64(5000), res.Transaction.AmountCents)
	assert.Equal(t, int64(41), res.History.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteSubscription_AlreadyRegistered(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewSubscriptionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectRegistrationSQL)).
		WithArgs(7, 3).
		WillReturnRows(sqlmock.NewRows(registrationCols).AddRow(31, 7, 3, "mp-1", 21, "confirmed", now))
	mock.ExpectRollback()

	res, err := repo.Complete(context.Background(), CommitInput{PersonID: 7, ScheduleID: 3, PaymentID: "mp-2", Now: now})
	require.ErrorIs(t, err, apperr.ErrAlreadyRegistered)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	require.NotNil(t, res.Registration)
	assert.Equal(t, int64(31), res.Registration.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteSubscription_NoVacancy(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewSubscriptionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectRegistrationSQL)).
		WithArgs(8, 3).
		WillReturnRows(sqlmock.NewRows(registrationCols))
	mock.ExpectQuery(regexp.QuoteMeta(decrementSQL)).
		WithArgs(3, now).
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM schedules WHERE id = $1)")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := repo.Complete(context.Background(), CommitInput{PersonID: 8, ScheduleID: 3, PaymentID: "mp-9", Now: now})
	assert.ErrorIs(t, err, apperr.ErrNoVacancy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteSubscription_UnknownSchedule(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewSubscriptionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectRegistrationSQL)).
		WithArgs(8, 99).
		WillReturnRows(sqlmock.NewRows(registrationCols))
	mock.ExpectQuery(regexp.QuoteMeta(decrementSQL)).
		WithArgs(99, now).
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM schedules WHERE id = $1)")).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := repo.Complete(context.Background(), CommitInput{PersonID: 8, ScheduleID: 99, PaymentID: "mp-9", Now: now})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NotErrorIs(t, err, apperr.ErrNoVacancy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteSubscription_MissingPersonRollsBack(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewSubscriptionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectRegistrationSQL)).
		WithArgs(404, 3).
		WillReturnRows(sqlmock.NewRows(registrationCols))
	mock.ExpectQuery(regexp.QuoteMeta(decrementSQL)).
		WithArgs(3, now).
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT price_cents FROM events WHERE id = $1")).
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"price_cents"}).AddRow(5000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM persons WHERE id = $1")).
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"email"}))
	mock.ExpectRollback()

	_, err := repo.Complete(context.Background(), CommitInput{PersonID: 404, ScheduleID: 3, PaymentID: "mp-3", Now: now})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteSubscription_ConcurrentDuplicateMapsToAlreadyRegistered(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewSubscriptionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(selectRegistrationSQL)).
		WithArgs(7, 3).
		WillReturnRows(sqlmock.NewRows(registrationCols))
	mock.ExpectQuery(regexp.QuoteMeta(decrementSQL)).
		WithArgs(3, now).
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT price_cents FROM events WHERE id = $1")).
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"price_cents"}).AddRow(5000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email FROM persons WHERE id = $1")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("ana@example.com"))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO transactions")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(22))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO registrations")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta(selectRegistrationSQL)).
		WithArgs(7, 3).
		WillReturnRows(sqlmock.NewRows(registrationCols).AddRow(31, 7, 3, "mp-1", 21, "confirmed", now))

	res, err := repo.Complete(context.Background(), CommitInput{PersonID: 7, ScheduleID: 3, PaymentID: "mp-1", Now: now})
	require.ErrorIs(t, err, apperr.ErrAlreadyRegistered)
	assert.Equal(t, int64(31), res.Registration.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
