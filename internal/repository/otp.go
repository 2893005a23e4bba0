package repository

import (
	"context"
	"database/sql"
	"time"

	"fastpayment/internal/database"
	apperr "fastpayment/internal/errors"
	"fastpayment/internal/models"
)

type OTPRepository struct {
	db *database.DB
}

func NewOTPRepository(db *database.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Replace supersedes every pending code of the email and stores the new one in
// the same transaction, so at most one pending code exists per email.
func (r *OTPRepository) Replace(ctx context.Context, otp *models.OTPCode) error {
	email := normalizeEmail(otp.Email)

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE otp_codes SET status = 'superseded' WHERE email = $1 AND status = 'pending'`,
			email)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO otp_codes (email, phone, code, expires_at, status, created_at)
			VALUES ($1, $2, $3, $4, 'pending', $5)
			RETURNING id`

		otp.Email = email
		otp.Status = models.OTPPending
		err = tx.QueryRowContext(ctx, query, email, otp.Phone, otp.Code, otp.ExpiresAt, otp.CreatedAt).Scan(&otp.ID)
		if isUniqueViolation(err) {
			// A concurrent issue for the same email won the pending slot.
			return apperr.Conflict("another code is being issued for this email")
		}
		return err
	})
}

// Consume marks a matching, pending, unexpired code as validated. Only one
// caller can consume a code; any other outcome is ErrExpiredOrInvalid.
func (r *OTPRepository) Consume(ctx context.Context, email, code string, now time.Time) (int64, error) {
	query := `
		UPDATE otp_codes
		SET status = 'validated', validated_at = $3
		WHERE email = $1 AND code = $2 AND status = 'pending' AND expires_at > $3
		RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query, normalizeEmail(email), code, now).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, apperr.ErrExpiredOrInvalid
	}
	return id, err
}

// ExpireStale flags pending codes past their expiry. Validity never depends on
// this status; Consume checks expires_at itself.
func (r *OTPRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE otp_codes SET status = 'expired' WHERE status = 'pending' AND expires_at <= $1`,
		now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *OTPRepository) PendingCount(ctx context.Context, email string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM otp_codes WHERE email = $1 AND status = 'pending'`,
		normalizeEmail(email)).Scan(&n)
	return n, err
}
