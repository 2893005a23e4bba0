package repository

import (
	"context"
	"encoding/json"
	"time"

	"fastpayment/internal/database"
	"fastpayment/internal/models"
)

// HistoryRepository appends audit records. Rows are never updated.
type HistoryRepository struct {
	db *database.DB
}

func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Append(ctx context.Context, entry *models.HistoryLog) error {
	return appendHistory(ctx, r.db, entry)
}

// Recent returns the latest entries, newest first.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]models.HistoryLog, error) {
	query := `
		SELECT id, transaction_id, payment_id, action, details, created_at
		FROM history_logs
		ORDER BY id DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.HistoryLog{}
	for rows.Next() {
		var l models.HistoryLog
		var details []byte
		if err := rows.Scan(&l.ID, &l.TransactionID, &l.PaymentID, &l.Action, &details, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Details = json.RawMessage(details)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func appendHistory(ctx context.Context, q querier, entry *models.HistoryLog) error {
	if len(entry.Details) == 0 {
		entry.Details = json.RawMessage(`{}`)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO history_logs (transaction_id, payment_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return q.QueryRowContext(ctx, query,
		entry.TransactionID,
		entry.PaymentID,
		entry.Action,
		[]byte(entry.Details),
		entry.CreatedAt,
	).Scan(&entry.ID)
}

func historyDetails(fields map[string]any) json.RawMessage {
	b, err := json.Marshal(fields)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
