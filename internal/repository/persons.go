package repository

import (
	"context"
	"database/sql"
	"strings"

	"fastpayment/internal/database"
	apperr "fastpayment/internal/errors"
	"fastpayment/internal/models"
)

type PersonRepository struct {
	db *database.DB
}

func NewPersonRepository(db *database.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

const personColumns = `id, full_name, email, phone, password_hash, status, role, created_at, updated_at`

func scanPerson(row interface{ Scan(...any) error }) (*models.Person, error) {
	p := &models.Person{}
	err := row.Scan(
		&p.ID,
		&p.FullName,
		&p.Email,
		&p.Phone,
		&p.PasswordHash,
		&p.Status,
		&p.Role,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PersonRepository) GetByID(ctx context.Context, id int64) (*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons WHERE id = $1`

	p, err := scanPerson(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *PersonRepository) GetByEmail(ctx context.Context, email string) (*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons WHERE email = $1`

	p, err := scanPerson(r.db.QueryRowContext(ctx, query, normalizeEmail(email)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// Upsert returns the person with the given email, creating a client when
// missing. A non-empty name fills an empty full_name but never overwrites one.
func (r *PersonRepository) Upsert(ctx context.Context, email, fullName, phone string) (*models.Person, error) {
	query := `
		INSERT INTO persons (email, full_name, phone, role, status)
		VALUES ($1, $2, NULLIF($3, ''), 'client', 'active')
		ON CONFLICT (email) DO UPDATE
		SET full_name = CASE WHEN persons.full_name = '' THEN EXCLUDED.full_name ELSE persons.full_name END,
		    phone = COALESCE(persons.phone, EXCLUDED.phone),
		    updated_at = NOW()
		RETURNING ` + personColumns

	return scanPerson(r.db.QueryRowContext(ctx, query, normalizeEmail(email), strings.TrimSpace(fullName), strings.TrimSpace(phone)))
}

func (r *PersonRepository) UpdateFullName(ctx context.Context, id int64, fullName string) error {
	query := `UPDATE persons SET full_name = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, strings.TrimSpace(fullName))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasApprovedTransaction reports whether the person ever paid for a schedule.
func (r *PersonRepository) HasApprovedTransaction(ctx context.Context, personID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM transactions WHERE person_id = $1 AND status = 'approved')`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, personID).Scan(&exists)
	return exists, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UpsertAdmin creates or promotes an active admin with the given password hash.
func (r *PersonRepository) UpsertAdmin(ctx context.Context, email, fullName, passwordHash string) (*models.Person, error) {
	query := `
		INSERT INTO persons (email, full_name, password_hash, role, status)
		VALUES ($1, $2, $3, 'admin', 'active')
		ON CONFLICT (email) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    role = 'admin',
		    status = 'active',
		    updated_at = NOW()
		RETURNING ` + personColumns

	return scanPerson(r.db.QueryRowContext(ctx, query, normalizeEmail(email), strings.TrimSpace(fullName), passwordHash))
}

// ListByRole returns persons ordered by email. Empty role lists everyone.
func (r *PersonRepository) ListByRole(ctx context.Context, role string) ([]models.Person, error) {
	query := `SELECT ` + personColumns + `
		FROM persons
		WHERE ($1 = '' OR role = $1)
		ORDER BY email`

	rows, err := r.db.QueryContext(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	persons := []models.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, *p)
	}
	return persons, rows.Err()
}

// Remove deletes a person. Persons with registrations cannot be removed.
func (r *PersonRepository) Remove(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM persons WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.Conflict("person has registrations")
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.NotFound("person")
	}
	return nil
}
