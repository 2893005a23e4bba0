package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"fastpayment/internal/database"
	apperr "fastpayment/internal/errors"
	"fastpayment/internal/models"
)

// CatalogRepository stores units, event types and events.
type CatalogRepository struct {
	db *database.DB
}

func NewCatalogRepository(db *database.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) CreateUnit(ctx context.Context, unit *models.Unit) error {
	query := `INSERT INTO units (name) VALUES ($1) RETURNING id`
	return r.db.QueryRowContext(ctx, query, strings.TrimSpace(unit.Name)).Scan(&unit.ID)
}

func (r *CatalogRepository) ListUnits(ctx context.Context) ([]models.Unit, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM units ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := []models.Unit{}
	for rows.Next() {
		var u models.Unit
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (r *CatalogRepository) CreateEventType(ctx context.Context, et *models.EventType) error {
	query := `INSERT INTO event_types (name, slug) VALUES ($1, $2) RETURNING id`

	err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(et.Name), normalizeSlug(et.Slug)).Scan(&et.ID)
	if isUniqueViolation(err) {
		return apperr.Conflict(fmt.Sprintf("event type slug %q already exists", et.Slug))
	}
	return err
}

func (r *CatalogRepository) ListEventTypes(ctx context.Context) ([]models.EventType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, slug FROM event_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := []models.EventType{}
	for rows.Next() {
		var et models.EventType
		if err := rows.Scan(&et.ID, &et.Name, &et.Slug); err != nil {
			return nil, err
		}
		types = append(types, et)
	}
	return types, rows.Err()
}

func (r *CatalogRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	query := `INSERT INTO events (name, price_cents, slug) VALUES ($1, $2, $3) RETURNING id`

	err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(event.Name), event.PriceCents, normalizeSlug(event.Slug)).Scan(&event.ID)
	if isUniqueViolation(err) {
		return apperr.Conflict(fmt.Sprintf("event slug %q already exists", event.Slug))
	}
	return err
}

func (r *CatalogRepository) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, price_cents, slug FROM events ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.PriceCents, &e.Slug); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetEvent returns nil, nil when the event does not exist.
func (r *CatalogRepository) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	query := `SELECT id, name, price_cents, slug FROM events WHERE id = $1`

	e := &models.Event{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Name, &e.PriceCents, &e.Slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// MissingReferences returns the names of the referenced catalog rows that do
// not exist.
func (r *CatalogRepository) MissingReferences(ctx context.Context, eventID, unitID, eventTypeID int64) ([]string, error) {
	query := `
		SELECT
			EXISTS (SELECT 1 FROM events WHERE id = $1),
			EXISTS (SELECT 1 FROM units WHERE id = $2),
			EXISTS (SELECT 1 FROM event_types WHERE id = $3)`

	var hasEvent, hasUnit, hasType bool
	if err := r.db.QueryRowContext(ctx, query, eventID, unitID, eventTypeID).Scan(&hasEvent, &hasUnit, &hasType); err != nil {
		return nil, err
	}

	var missing []string
	if !hasEvent {
		missing = append(missing, "event")
	}
	if !hasUnit {
		missing = append(missing, "unit")
	}
	if !hasType {
		missing = append(missing, "event type")
	}
	return missing, nil
}

func (r *CatalogRepository) DeleteUnit(ctx context.Context, id int64) error {
	return r.deleteReferenced(ctx, `DELETE FROM units WHERE id = $1`, "unit", id)
}

func (r *CatalogRepository) DeleteEventType(ctx context.Context, id int64) error {
	return r.deleteReferenced(ctx, `DELETE FROM event_types WHERE id = $1`, "event type", id)
}

func (r *CatalogRepository) DeleteEvent(ctx context.Context, id int64) error {
	return r.deleteReferenced(ctx, `DELETE FROM events WHERE id = $1`, "event", id)
}

// deleteReferenced maps an FK violation to Conflict: the row is still used by schedules.
func (r *CatalogRepository) deleteReferenced(ctx context.Context, query, what string, id int64) error {
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.Conflict(what + " is used by schedules")
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.NotFound(what)
	}
	return nil
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
