package repository

import (
	"context"
	"database/sql"
	"errors"

	"fastpayment/internal/database"

	"github.com/lib/pq"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repositories struct {
	Persons       *PersonRepository
	Catalog       *CatalogRepository
	Schedules     *ScheduleRepository
	OTP           *OTPRepository
	Subscriptions *SubscriptionRepository
	Payments      *PaymentRepository
	History       *HistoryRepository
	Dashboard     *DashboardRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Persons:       NewPersonRepository(db),
		Catalog:       NewCatalogRepository(db),
		Schedules:     NewScheduleRepository(db),
		OTP:           NewOTPRepository(db),
		Subscriptions: NewSubscriptionRepository(db),
		Payments:      NewPaymentRepository(db),
		History:       NewHistoryRepository(db),
		Dashboard:     NewDashboardRepository(db),
	}
}

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func isPQCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}

func isUniqueViolation(err error) bool {
	return isPQCode(err, pqUniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	return isPQCode(err, pqForeignKeyViolation)
}
