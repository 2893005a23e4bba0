package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fastpayment/internal/database"
	apperr "fastpayment/internal/errors"
	"fastpayment/internal/models"
)

// SubscriptionRepository owns the transaction that turns a paid intent into a
// confirmed registration.
type SubscriptionRepository struct {
	db *database.DB
}

func NewSubscriptionRepository(db *database.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

type CommitInput struct {
	PersonID   int64
	ScheduleID int64
	PaymentID  string
	Now        time.Time
}

type CommitResult struct {
	Registration *models.Registration
	Transaction  *models.Transaction
	History      *models.HistoryLog
}

var errDuplicateInsert = errors.New("duplicate insert")

// Complete decrements the schedule's vacancies, records an approved
// transaction and a confirmed registration, and appends a history entry, all
// in one transaction. On ErrAlreadyRegistered the existing registration is
// returned in the result.
func (r *SubscriptionRepository) Complete(ctx context.Context, in CommitInput) (*CommitResult, error) {
	result := &CommitResult{}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := getRegistration(ctx, tx, in.PersonID, in.ScheduleID)
		if err != nil {
			return err
		}
		if existing != nil {
			result.Registration = existing
			return apperr.ErrAlreadyRegistered
		}

		var eventID int64
		err = tx.QueryRowContext(ctx, `
			UPDATE schedules
			SET vacancies = vacancies - 1,
			    status = CASE WHEN vacancies - 1 = 0 THEN 'unavailable' ELSE status END,
			    updated_at = $2
			WHERE id = $1 AND vacancies > 0
			RETURNING event_id`,
			in.ScheduleID, in.Now).Scan(&eventID)
		if err == sql.ErrNoRows {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM schedules WHERE id = $1)`, in.ScheduleID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return apperr.NotFound("schedule")
			}
			return apperr.ErrNoVacancy
		}
		if err != nil {
			return err
		}

		var price int64
		if err := tx.QueryRowContext(ctx, `SELECT price_cents FROM events WHERE id = $1`, eventID).Scan(&price); err != nil {
			return err
		}

		var email string
		err = tx.QueryRowContext(ctx, `SELECT email FROM persons WHERE id = $1`, in.PersonID).Scan(&email)
		if err == sql.ErrNoRows {
			return apperr.NotFound("person")
		}
		if err != nil {
			return err
		}

		paymentID := in.PaymentID
		txn := &models.Transaction{
			PaymentID:   &paymentID,
			PersonID:    in.PersonID,
			ScheduleID:  in.ScheduleID,
			PayerEmail:  email,
			AmountCents: price,
			Status:      models.PaymentApproved,
			CreatedAt:   in.Now,
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO transactions (payment_id, person_id, schedule_id, payer_email, amount_cents, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			RETURNING id`,
			txn.PaymentID, txn.PersonID, txn.ScheduleID, txn.PayerEmail, txn.AmountCents, txn.Status, txn.CreatedAt,
		).Scan(&txn.ID)
		if isUniqueViolation(err) {
			return errDuplicateInsert
		}
		if err != nil {
			return err
		}

		reg := &models.Registration{
			PersonID:      in.PersonID,
			ScheduleID:    in.ScheduleID,
			PaymentID:     &paymentID,
			TransactionID: &txn.ID,
			Status:        models.RegistrationConfirmed,
			CreatedAt:     in.Now,
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO registrations (person_id, schedule_id, payment_id, transaction_id, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			reg.PersonID, reg.ScheduleID, reg.PaymentID, reg.TransactionID, reg.Status, reg.CreatedAt,
		).Scan(&reg.ID)
		if isUniqueViolation(err) {
			return errDuplicateInsert
		}
		if err != nil {
			return err
		}

		entry := &models.HistoryLog{
			TransactionID: &txn.ID,
			PaymentID:     &paymentID,
			Action:        models.ActionSubscriptionCompleted,
			Details: historyDetails(map[string]any{
				"person_id":       in.PersonID,
				"schedule_id":     in.ScheduleID,
				"registration_id": reg.ID,
				"amount_cents":    price,
			}),
			CreatedAt: in.Now,
		}
		if err := appendHistory(ctx, tx, entry); err != nil {
			return err
		}

		result.Registration = reg
		result.Transaction = txn
		result.History = entry
		return nil
	})

	if errors.Is(err, errDuplicateInsert) {
		// Lost a race with a concurrent commit; the rollback restored the seat.
		existing, lookupErr := r.GetRegistration(ctx, in.PersonID, in.ScheduleID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing != nil {
			return &CommitResult{Registration: existing}, apperr.ErrAlreadyRegistered
		}
		return nil, apperr.Conflict("payment already used for another registration")
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

func (r *SubscriptionRepository) GetRegistration(ctx context.Context, personID, scheduleID int64) (*models.Registration, error) {
	return getRegistration(ctx, r.db, personID, scheduleID)
}

func (r *SubscriptionRepository) GetRegistrationByPaymentID(ctx context.Context, paymentID string) (*models.Registration, error) {
	query := `
		SELECT id, person_id, schedule_id, payment_id, transaction_id, status, created_at
		FROM registrations
		WHERE payment_id = $1`

	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, paymentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return reg, err
}

func getRegistration(ctx context.Context, q querier, personID, scheduleID int64) (*models.Registration, error) {
	query := `
		SELECT id, person_id, schedule_id, payment_id, transaction_id, status, created_at
		FROM registrations
		WHERE person_id = $1 AND schedule_id = $2`

	reg, err := scanRegistration(q.QueryRowContext(ctx, query, personID, scheduleID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return reg, err
}

func scanRegistration(row *sql.Row) (*models.Registration, error) {
	reg := &models.Registration{}
	err := row.Scan(
		&reg.ID,
		&reg.PersonID,
		&reg.ScheduleID,
		&reg.PaymentID,
		&reg.TransactionID,
		&reg.Status,
		&reg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return reg, nil
}
