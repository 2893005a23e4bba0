package repository

import (
	"context"
	"database/sql"
	"time"

	"fastpayment/internal/database"
	apperr "fastpayment/internal/errors"
	"fastpayment/internal/models"
)

type PaymentRepository struct {
	db *database.DB
}

func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, provider_payment_id, external_reference, preference_id, person_id, schedule_id,
		       payer_email, amount_cents, currency, status, provider_status, approved_at, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(
		&p.ID,
		&p.ProviderPaymentID,
		&p.ExternalReference,
		&p.PreferenceID,
		&p.PersonID,
		&p.ScheduleID,
		&p.PayerEmail,
		&p.AmountCents,
		&p.Currency,
		&p.Status,
		&p.ProviderStatus,
		&p.ApprovedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreatePending stores the local intent of a checkout before the payer pays.
func (r *PaymentRepository) CreatePending(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (external_reference, preference_id, person_id, schedule_id, payer_email,
		                      amount_cents, currency, status, provider_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', '', $8, $8)
		RETURNING id`

	p.Status = models.PaymentPending
	return r.db.QueryRowContext(ctx, query,
		p.ExternalReference,
		p.PreferenceID,
		p.PersonID,
		p.ScheduleID,
		normalizeEmail(p.PayerEmail),
		p.AmountCents,
		p.Currency,
		p.CreatedAt,
	).Scan(&p.ID)
}

// Latest returns the newest payment matching the filters. Empty email or zero
// scheduleID disable that filter.
func (r *PaymentRepository) Latest(ctx context.Context, email string, scheduleID int64) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE ($1 = '' OR payer_email = $1)
		  AND ($2 = 0 OR schedule_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, normalizeEmail(email), scheduleID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *PaymentRepository) GetByProviderID(ctx context.Context, providerPaymentID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_payment_id = $1`

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, providerPaymentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ReconcileInput is the authoritative provider view of one payment, already
// mapped to a local status.
type ReconcileInput struct {
	ProviderPaymentID string
	ExternalReference string
	Status            string
	ProviderStatus    string
	PayerEmail        string
	AmountCents       int64
	Currency          string
	PersonID          *int64
	ScheduleID        *int64
	Now               time.Time
}

type ReconcileOutcome struct {
	Payment      *models.Payment
	Inserted     bool
	Transitioned bool
	History      []models.HistoryLog
}

// Reconcile locks or creates the local payment row and applies the provider
// status. Status only moves from pending to approved or rejected; a terminal
// row never changes status again.
func (r *PaymentRepository) Reconcile(ctx context.Context, in ReconcileInput) (*ReconcileOutcome, error) {
	out := &ReconcileOutcome{}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		p, err := lockPayment(ctx, tx, `provider_payment_id = $1`, in.ProviderPaymentID)
		if err != nil {
			return err
		}
		if p == nil && in.ExternalReference != "" {
			// A checkout intent not yet bound to a provider payment. Several
			// provider payments may share one reference (retries after a
			// rejection); later ones get their own row.
			if p, err = lockPayment(ctx, tx, `external_reference = $1 AND provider_payment_id IS NULL ORDER BY id DESC LIMIT 1`, in.ExternalReference); err != nil {
				return err
			}
		}

		if p == nil {
			p, err = insertReconciledPayment(ctx, tx, in)
			if err != nil {
				return err
			}
			if p != nil {
				out.Inserted = true
			} else if p, err = lockPayment(ctx, tx, `provider_payment_id = $1`, in.ProviderPaymentID); err != nil {
				return err
			} else if p == nil {
				return apperr.Conflict("payment row is being created concurrently")
			}
		}

		transitioned := out.Inserted && in.Status != models.PaymentPending
		if !out.Inserted {
			if p.Status == models.PaymentPending && in.Status != models.PaymentPending {
				transitioned = true
			}
			if p, err = updateReconciledPayment(ctx, tx, p.ID, in, transitioned); err != nil {
				return err
			}
		}
		out.Payment = p
		out.Transitioned = transitioned

		providerID := in.ProviderPaymentID
		details := map[string]any{
			"external_reference": p.ExternalReference,
			"provider_status":    in.ProviderStatus,
			"amount_cents":       in.AmountCents,
			"payer_email":        in.PayerEmail,
		}

		if out.Inserted && (p.PersonID == nil || p.ScheduleID == nil) {
			entry := models.HistoryLog{
				PaymentID: &providerID,
				Action:    models.ActionPaymentUnmatched,
				Details:   historyDetails(details),
				CreatedAt: in.Now,
			}
			if err := appendHistory(ctx, tx, &entry); err != nil {
				return err
			}
			out.History = append(out.History, entry)
		}

		if transitioned {
			action := models.ActionPaymentRejected
			if p.Status == models.PaymentApproved {
				action = models.ActionPaymentApproved
			}
			entry := models.HistoryLog{
				PaymentID: &providerID,
				Action:    action,
				Details:   historyDetails(details),
				CreatedAt: in.Now,
			}
			if err := appendHistory(ctx, tx, &entry); err != nil {
				return err
			}
			out.History = append(out.History, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func lockPayment(ctx context.Context, tx *sql.Tx, where string, arg any) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + where + ` FOR UPDATE`

	p, err := scanPayment(tx.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// insertReconciledPayment returns nil without error when a concurrent
// reconciliation inserted the same payment first.
func insertReconciledPayment(ctx context.Context, tx *sql.Tx, in ReconcileInput) (*models.Payment, error) {
	reference := in.ExternalReference
	if reference == "" {
		reference = "MP-" + in.ProviderPaymentID
	}

	var approvedAt *time.Time
	if in.Status == models.PaymentApproved {
		approvedAt = &in.Now
	}

	query := `
		INSERT INTO payments (provider_payment_id, external_reference, person_id, schedule_id, payer_email,
		                      amount_cents, currency, status, provider_status, approved_at, created_at, updated_at)
		VALUES ($1, $2, (SELECT id FROM persons WHERE id = $3), (SELECT id FROM schedules WHERE id = $4),
		        $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (provider_payment_id) DO NOTHING
		RETURNING ` + paymentColumns

	p, err := scanPayment(tx.QueryRowContext(ctx, query,
		in.ProviderPaymentID,
		reference,
		in.PersonID,
		in.ScheduleID,
		normalizeEmail(in.PayerEmail),
		in.AmountCents,
		in.Currency,
		in.Status,
		in.ProviderStatus,
		approvedAt,
		in.Now,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func updateReconciledPayment(ctx context.Context, tx *sql.Tx, id int64, in ReconcileInput, transition bool) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET provider_payment_id = COALESCE(provider_payment_id, $2),
		    provider_status = $3,
		    status = CASE WHEN $4 THEN $5 ELSE status END,
		    approved_at = CASE WHEN $4 AND $5 = 'approved' THEN $6 ELSE approved_at END,
		    person_id = COALESCE(person_id, (SELECT id FROM persons WHERE id = $7)),
		    schedule_id = COALESCE(schedule_id, (SELECT id FROM schedules WHERE id = $8)),
		    payer_email = CASE WHEN payer_email = '' THEN $9 ELSE payer_email END,
		    amount_cents = CASE WHEN amount_cents = 0 THEN $10 ELSE amount_cents END,
		    updated_at = $6
		WHERE id = $1
		RETURNING ` + paymentColumns

	return scanPayment(tx.QueryRowContext(ctx, query,
		id,
		in.ProviderPaymentID,
		in.ProviderStatus,
		transition,
		in.Status,
		in.Now,
		in.PersonID,
		in.ScheduleID,
		normalizeEmail(in.PayerEmail),
		in.AmountCents,
	))
}
