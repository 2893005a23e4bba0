package repository

import (
	"context"
	"database/sql"
	"time"

	"fastpayment/internal/database"
	apperr "fastpayment/internal/errors"
	"fastpayment/internal/models"
)

type ScheduleRepository struct {
	db *database.DB
}

func NewScheduleRepository(db *database.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Sweep marks every available schedule whose start is not after now as
// unavailable. Running it twice with the same now changes nothing the second
// time.
func (r *ScheduleRepository) Sweep(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE schedules
		SET status = 'unavailable', updated_at = $1
		WHERE scheduled_at <= $1 AND status = 'available'`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const scheduleViewSelect = `
		SELECT s.id, e.name, e.slug, e.price_cents, et.name, et.slug, u.name,
		       s.scheduled_at, s.vacancies, s.status
		FROM schedules s
		JOIN events e ON e.id = s.event_id
		JOIN event_types et ON et.id = s.event_type_id
		JOIN units u ON u.id = s.unit_id`

func scanScheduleViews(rows *sql.Rows) ([]models.ScheduleView, error) {
	views := []models.ScheduleView{}
	for rows.Next() {
		var v models.ScheduleView
		err := rows.Scan(
			&v.ID,
			&v.EventName,
			&v.EventSlug,
			&v.PriceCents,
			&v.EventTypeName,
			&v.EventTypeSlug,
			&v.UnitName,
			&v.ScheduledAt,
			&v.Vacancies,
			&v.Status,
		)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ListAvailable returns available schedules, optionally filtered by event slug
// and event type slug. Empty filters match everything; comparison ignores case.
func (r *ScheduleRepository) ListAvailable(ctx context.Context, slug, typeSlug string) ([]models.ScheduleView, error) {
	query := scheduleViewSelect + `
		WHERE s.status = 'available'
		  AND s.vacancies > 0
		  AND ($1 = '' OR LOWER(e.slug) = $1)
		  AND ($2 = '' OR LOWER(et.slug) = $2)
		ORDER BY s.scheduled_at ASC, s.id ASC`

	rows, err := r.db.QueryContext(ctx, query, normalizeSlug(slug), normalizeSlug(typeSlug))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScheduleViews(rows)
}

func (r *ScheduleRepository) ListAll(ctx context.Context) ([]models.ScheduleView, error) {
	query := scheduleViewSelect + `
		ORDER BY s.scheduled_at DESC, s.id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScheduleViews(rows)
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	s := &models.Schedule{}
	query := `
		SELECT id, event_id, unit_id, event_type_id, scheduled_at, vacancies, status, created_at, updated_at
		FROM schedules
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.EventID,
		&s.UnitID,
		&s.EventTypeID,
		&s.ScheduledAt,
		&s.Vacancies,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *ScheduleRepository) Create(ctx context.Context, s *models.Schedule) error {
	query := `
		INSERT INTO schedules (event_id, unit_id, event_type_id, scheduled_at, vacancies, status)
		VALUES ($1, $2, $3, $4, $5, 'available')
		RETURNING id, status, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.EventID,
		s.UnitID,
		s.EventTypeID,
		s.ScheduledAt,
		s.Vacancies,
	).Scan(&s.ID, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if isForeignKeyViolation(err) {
		return apperr.Validation("referenced event, unit or event type does not exist")
	}
	return err
}

// Delete removes a schedule. Schedules with registrations cannot be removed.
func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.Conflict("schedule has registrations")
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.NotFound("schedule")
	}
	return nil
}

// SetVacancies overwrites the remaining capacity. Zero always closes the
// schedule. When reopen is set, an unavailable schedule starting after
// reopenAfter becomes available again.
func (r *ScheduleRepository) SetVacancies(ctx context.Context, id int64, vacancies int, reopen bool, reopenAfter, now time.Time) (*models.Schedule, error) {
	query := `
		UPDATE schedules
		SET vacancies = $2,
		    status = CASE
		        WHEN $2 = 0 THEN 'unavailable'
		        WHEN $3 AND status = 'unavailable' AND scheduled_at > $4 THEN 'available'
		        ELSE status
		    END,
		    updated_at = $5
		WHERE id = $1
		RETURNING id, event_id, unit_id, event_type_id, scheduled_at, vacancies, status, created_at, updated_at`

	s := &models.Schedule{}
	err := r.db.QueryRowContext(ctx, query, id, vacancies, reopen, reopenAfter, now).Scan(
		&s.ID,
		&s.EventID,
		&s.UnitID,
		&s.EventTypeID,
		&s.ScheduledAt,
		&s.Vacancies,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("schedule")
	}
	return s, err
}
