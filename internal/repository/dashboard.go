package repository

import (
	"context"

	"fastpayment/internal/database"
	"fastpayment/internal/models"
)

type DashboardRepository struct {
	db *database.DB
}

func NewDashboardRepository(db *database.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Report lists registrations with their client, event and payment data,
// newest first.
func (r *DashboardRepository) Report(ctx context.Context, limit int) ([]models.DashboardEntry, error) {
	query := `
		SELECT r.id, p.full_name, p.email, e.name, s.scheduled_at,
		       COALESCE(t.status, 'pending'), COALESCE(t.amount_cents, 0), r.created_at
		FROM registrations r
		JOIN persons p ON p.id = r.person_id
		JOIN schedules s ON s.id = r.schedule_id
		JOIN events e ON e.id = s.event_id
		LEFT JOIN transactions t ON t.id = r.transaction_id
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.DashboardEntry{}
	for rows.Next() {
		var e models.DashboardEntry
		err := rows.Scan(
			&e.RegistrationID,
			&e.ClientName,
			&e.ClientEmail,
			&e.EventName,
			&e.ScheduledAt,
			&e.PaymentStatus,
			&e.AmountCents,
			&e.RegistrationDate,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *DashboardRepository) Stats(ctx context.Context) (models.DashboardStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM registrations),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COALESCE(SUM(amount_cents) FILTER (WHERE status = 'approved'), 0)
		FROM transactions`

	var stats models.DashboardStats
	err := r.db.QueryRowContext(ctx, query).Scan(&stats.TotalEntries, &stats.ApprovedPayments, &stats.TotalRevenue)
	return stats, err
}
