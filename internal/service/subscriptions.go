package service

import (
	"context"
	"fmt"
	"strings"

	"fastpayment/internal/clock"
	apperr "fastpayment/internal/errors"
	"fastpayment/internal/logger"
	"fastpayment/internal/metrics"
	"fastpayment/internal/models"
	"fastpayment/internal/repository"
)

// SubscriptionService подтверждает запись клиента на расписание
type SubscriptionService struct {
	subs      SubscriptionStore
	publisher Publisher
	clock     clock.Clock
}

func NewSubscriptionService(subs SubscriptionStore, publisher Publisher, clk clock.Clock) *SubscriptionService {
	return &SubscriptionService{subs: subs, publisher: publisher, clock: clk}
}

// CompleteSubscription takes one seat for the person and records the paid
// registration. ErrAlreadyRegistered comes with the existing registration and
// means the desired state already holds.
func (s *SubscriptionService) CompleteSubscription(ctx context.Context, personID, scheduleID int64, paymentID string) (*models.Registration, error) {
	paymentID = strings.TrimSpace(paymentID)
	if personID <= 0 || scheduleID <= 0 || paymentID == "" {
		return nil, apperr.Validation("person_id, schedule_id and payment_id are required")
	}

	log := logger.WithContext(ctx).With(
		"person_id", personID,
		"schedule_id", scheduleID,
		"payment_id", paymentID)

	now := s.clock.Now()
	res, err := s.subs.Complete(ctx, repository.CommitInput{
		PersonID:   personID,
		ScheduleID: scheduleID,
		PaymentID:  paymentID,
		Now:        now,
	})

	switch {
	case err == nil:
		metrics.RecordCommit("confirmed")
		log.Info("Subscription completed", "registration_id", res.Registration.ID)

		publish(ctx, s.publisher, models.EventRegistrationConfirmed, models.RegistrationConfirmedEvent{
			RegistrationID: res.Registration.ID,
			PersonID:       personID,
			ScheduleID:     scheduleID,
			PaymentID:      paymentID,
			Email:          res.Transaction.PayerEmail,
			AmountCents:    res.Transaction.AmountCents,
			Timestamp:      now,
		})
		if res.History != nil {
			publishHistory(ctx, s.publisher, *res.History)
		}
		return res.Registration, nil

	case apperr.Is(err, apperr.ErrAlreadyRegistered):
		metrics.RecordCommit("already_registered")
		log.Info("Person already registered for schedule")
		var existing *models.Registration
		if res != nil {
			existing = res.Registration
		}
		return existing, err

	case apperr.Is(err, apperr.ErrNoVacancy):
		metrics.RecordCommit("no_vacancy")
		log.Warn("No vacancy left for paid subscription")
		publish(ctx, s.publisher, models.EventRegistrationNoVacancy, models.RegistrationNoVacancyEvent{
			PersonID:   personID,
			ScheduleID: scheduleID,
			PaymentID:  paymentID,
			Timestamp:  now,
		})
		return nil, err

	case apperr.Is(err, apperr.ErrNotFound), apperr.Is(err, apperr.ErrConflict):
		metrics.RecordCommit("rejected")
		log.Warn("Subscription rejected", "error", err)
		return nil, err

	default:
		metrics.RecordCommit("error")
		log.Error("Subscription commit failed", "error", err)
		return nil, fmt.Errorf("failed to complete subscription: %w", err)
	}
}
