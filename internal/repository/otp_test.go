package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	apperr "fastpayment/internal/errors"
	"fastpayment/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPReplace_SupersedesPendingInOneTransaction(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewOTPRepository(db)
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE otp_codes SET status = 'superseded' WHERE email = $1 AND status = 'pending'")).
		WithArgs("ana@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO otp_codes")).
		WithArgs("ana@example.com", nil, "123456", now.Add(5*time.Minute), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectCommit()

	otp := &models.OTPCode{Email: " Ana@Example.com", Code: "123456", ExpiresAt: now.Add(5 * time.Minute), CreatedAt: now}
	require.NoError(t, repo.Replace(context.Background(), otp))
	assert.Equal(t, int64(9), otp.ID)
	assert.Equal(t, "ana@example.com", otp.Email)
	assert.Equal(t, models.OTPPending, otp.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPReplace_ConcurrentPendingIsConflict(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewOTPRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE otp_codes SET status = 'superseded'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO otp_codes")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), &models.OTPCode{Email: "a@b.co", Code: "000001", ExpiresAt: now, CreatedAt: now})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPConsume(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewOTPRepository(db)
	now := time.Now().UTC()
	consume := regexp.QuoteMeta("UPDATE otp_codes SET status = 'validated', validated_at = $3 WHERE email = $1 AND code = $2 AND status = 'pending' AND expires_at > $3 RETURNING id")

	mock.ExpectQuery(consume).
		WithArgs("ana@example.com", "123456", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	id, err := repo.Consume(context.Background(), "ana@example.com", "123456", now)
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	// second use of the same code finds no pending row
	mock.ExpectQuery(consume).
		WithArgs("ana@example.com", "123456", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.Consume(context.Background(), "ana@example.com", "123456", now)
	assert.ErrorIs(t, err, apperr.ErrExpiredOrInvalid)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPExpireStale(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewOTPRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE otp_codes SET status = 'expired' WHERE status = 'pending' AND expires_at <= $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.ExpireStale(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
