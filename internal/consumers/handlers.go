package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"fastpayment/internal/models"

	"github.com/nats-io/stan.go"
)

const handlerTimeout = 30 * time.Second

type Mailer interface {
	SendOTP(ctx context.Context, email, name, code string, expiresAt time.Time) error
	SendRegistrationConfirmed(ctx context.Context, email string, registrationID, scheduleID, amountCents int64) error
}

type HistoryIndexer interface {
	IndexHistory(ctx context.Context, entry *models.HistoryLog) error
}

type Handlers struct {
	mailer  Mailer
	indexer HistoryIndexer
}

// NewHandlers создает обработчики событий. indexer может быть nil, если поиск выключен.
func NewHandlers(mailer Mailer, indexer HistoryIndexer) *Handlers {
	return &Handlers{mailer: mailer, indexer: indexer}
}

// processFunc handles a decoded payload; an error leaves the message unacked
// so NATS Streaming redelivers it after the ack wait.
type processFunc func(ctx context.Context, data []byte) error

func (h *Handlers) wrap(subject string, process processFunc) stan.MsgHandler {
	return func(m *stan.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		if err := process(ctx, m.Data); err != nil {
			slog.Error("Failed to process event",
				"error", err,
				"subject", subject,
				"sequence", m.Sequence,
				"redelivered", m.Redelivered)
			return
		}

		if err := m.Ack(); err != nil {
			slog.Error("Failed to ack message", "error", err, "subject", subject)
		}
	}
}

func (h *Handlers) HandleOTPIssued(m *stan.Msg) {
	h.wrap(models.EventOTPIssued, h.processOTPIssued)(m)
}

func (h *Handlers) HandleRegistrationConfirmed(m *stan.Msg) {
	h.wrap(models.EventRegistrationConfirmed, h.processRegistrationConfirmed)(m)
}

func (h *Handlers) HandleHistoryAppended(m *stan.Msg) {
	h.wrap(models.EventHistoryAppended, h.processHistoryAppended)(m)
}

func (h *Handlers) HandleRegistrationNoVacancy(m *stan.Msg) {
	h.wrap(models.EventRegistrationNoVacancy, h.processNoVacancy)(m)
}

func (h *Handlers) processOTPIssued(ctx context.Context, data []byte) error {
	var event models.OTPIssuedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		// Malformed payloads never become valid; drop them.
		slog.Error("Failed to unmarshal otp issued event", "error", err)
		return nil
	}

	if event.ExpiresAt.Before(time.Now()) {
		slog.Info("Skipping expired access code", "email", event.Email)
		return nil
	}

	if err := h.mailer.SendOTP(ctx, event.Email, event.Name, event.Code, event.ExpiresAt); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	return nil
}

func (h *Handlers) processRegistrationConfirmed(ctx context.Context, data []byte) error {
	var event models.RegistrationConfirmedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("Failed to unmarshal registration confirmed event", "error", err)
		return nil
	}

	if event.Email == "" {
		slog.Warn("Registration confirmed without email", "registration_id", event.RegistrationID)
		return nil
	}

	if err := h.mailer.SendRegistrationConfirmed(ctx, event.Email, event.RegistrationID, event.ScheduleID, event.AmountCents); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

func (h *Handlers) processHistoryAppended(ctx context.Context, data []byte) error {
	if h.indexer == nil {
		return nil
	}

	var event models.HistoryAppendedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("Failed to unmarshal history appended event", "error", err)
		return nil
	}

	if err := h.indexer.IndexHistory(ctx, &event.Log); err != nil {
		return fmt.Errorf("index history %d: %w", event.Log.ID, err)
	}
	return nil
}

func (h *Handlers) processNoVacancy(_ context.Context, data []byte) error {
	var event models.RegistrationNoVacancyEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("Failed to unmarshal no vacancy event", "error", err)
		return nil
	}

	// Refunds are handled manually from the dashboard.
	slog.Warn("Approved payment without vacancy, manual refund required",
		"payment_id", event.PaymentID,
		"person_id", event.PersonID,
		"schedule_id", event.ScheduleID)
	return nil
}
