package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"fastpayment/internal/auth"
	"fastpayment/internal/clock"
	apperr "fastpayment/internal/errors"
	"fastpayment/internal/external"
	"fastpayment/internal/logger"
	"fastpayment/internal/metrics"
	"fastpayment/internal/models"
	"fastpayment/internal/repository"

	"github.com/google/uuid"
)

const referencePrefix = "FP"

// Committer runs the subscription commit for an approved payment.
type Committer interface {
	CompleteSubscription(ctx context.Context, personID, scheduleID int64, paymentID string) (*models.Registration, error)
}

type PaymentDeps struct {
	Payments      PaymentStore
	Schedules     ScheduleStore
	Catalog       CatalogStore
	Persons       PersonStore
	Registrations SubscriptionStore
	History       HistoryStore
	Committer     Committer
	Provider      PaymentProvider
	Publisher     Publisher
	Clock         clock.Clock
	Currency      string
}

// PaymentService открывает оплату у провайдера и сверяет ее результат
type PaymentService struct {
	payments      PaymentStore
	schedules     ScheduleStore
	catalog       CatalogStore
	persons       PersonStore
	registrations SubscriptionStore
	history       HistoryStore
	committer     Committer
	provider      PaymentProvider
	publisher     Publisher
	clock         clock.Clock
	currency      string
}

func NewPaymentService(d PaymentDeps) *PaymentService {
	return &PaymentService{
		payments:      d.Payments,
		schedules:     d.Schedules,
		catalog:       d.Catalog,
		persons:       d.Persons,
		registrations: d.Registrations,
		history:       d.History,
		committer:     d.Committer,
		provider:      d.Provider,
		publisher:     d.Publisher,
		clock:         d.Clock,
		currency:      d.Currency,
	}
}

// CreateCheckout opens a provider checkout for one seat and stores the pending
// intent under a fresh external reference.
func (s *PaymentService) CreateCheckout(ctx context.Context, principal *auth.Principal, scheduleID int64) (*models.CheckoutResponse, error) {
	if principal == nil || principal.Email == "" {
		return nil, apperr.ErrUnauthorized
	}

	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	if schedule == nil {
		return nil, apperr.NotFound("schedule")
	}

	now := s.clock.Now()
	if schedule.Status != models.ScheduleAvailable || !schedule.ScheduledAt.After(now) {
		return nil, apperr.Conflict("schedule is not available")
	}
	if schedule.Vacancies <= 0 {
		return nil, apperr.ErrNoVacancy
	}

	event, err := s.catalog.GetEvent(ctx, schedule.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperr.NotFound("event")
	}

	person, err := s.persons.Upsert(ctx, principal.Email, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to load person: %w", err)
	}

	reference := newReference(person.ID, schedule.ID)
	pref, err := s.provider.CreatePreference(ctx, external.CheckoutRequest{
		Title:             event.Name,
		AmountCents:       event.PriceCents,
		PayerEmail:        person.Email,
		ExternalReference: reference,
	})
	metrics.RecordProviderRequest("create_preference", err)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to create checkout preference",
			"error", err,
			"schedule_id", schedule.ID,
			"person_id", person.ID)
		return nil, err
	}

	payment := &models.Payment{
		ExternalReference: reference,
		PreferenceID:      &pref.ID,
		PersonID:          &person.ID,
		ScheduleID:        &schedule.ID,
		PayerEmail:        person.Email,
		AmountCents:       event.PriceCents,
		Currency:          s.currency,
		CreatedAt:         now,
	}
	if err := s.payments.CreatePending(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to store payment intent: %w", err)
	}

	logger.WithContext(ctx).Info("Checkout created",
		"payment_id", payment.ID,
		"external_reference", reference,
		"schedule_id", schedule.ID,
		"person_id", person.ID)

	return &models.CheckoutResponse{
		PaymentURL:        pref.InitPoint,
		PreferenceID:      pref.ID,
		ExternalReference: reference,
		AmountCents:       event.PriceCents,
	}, nil
}

// HandleNotification fetches the authoritative payment named by a provider
// notification and reconciles it. Status fields of the notification itself are
// never read.
func (s *PaymentService) HandleNotification(ctx context.Context, n *models.PaymentNotification) error {
	log := logger.WithContext(ctx)

	if kind := n.Kind(); kind != "payment" {
		log.Debug("Ignoring provider notification", "type", kind)
		return nil
	}

	paymentID := n.PaymentID()
	if paymentID == "" {
		log.Warn("Ignoring payment notification without id")
		return nil
	}

	pp, err := s.provider.GetPayment(ctx, paymentID)
	metrics.RecordProviderRequest("get_payment", err)
	if err != nil {
		if apperr.Is(err, apperr.ErrNotFound) {
			log.Warn("Provider does not know notified payment", "payment_id", paymentID)
			return nil
		}
		if !apperr.Is(err, apperr.ErrExternalService) {
			err = apperr.External("get payment", err)
		}
		log.Error("Failed to fetch payment from provider", "error", err, "payment_id", paymentID)
		return err
	}

	_, err = s.reconcile(ctx, pp)
	return err
}

// reconcile applies the provider view of a payment to the local store and
// drives the subscription commit for approvals.
func (s *PaymentService) reconcile(ctx context.Context, pp *external.ProviderPayment) (*models.Payment, error) {
	providerID := pp.IDString()
	status := mapProviderStatus(pp.Status)
	personID, scheduleID := parseReference(pp.ExternalReference)
	now := s.clock.Now()

	log := logger.WithContext(ctx).With(
		"payment_id", providerID,
		"external_reference", pp.ExternalReference,
		"provider_status", pp.Status)

	out, err := s.payments.Reconcile(ctx, repository.ReconcileInput{
		ProviderPaymentID: providerID,
		ExternalReference: pp.ExternalReference,
		Status:            status,
		ProviderStatus:    pp.Status,
		PayerEmail:        pp.Payer.Email,
		AmountCents:       pp.AmountCents(),
		Currency:          pp.CurrencyID,
		PersonID:          personID,
		ScheduleID:        scheduleID,
		Now:               now,
	})
	if err != nil {
		metrics.RecordReconciliation(status, "error")
		log.Error("Failed to reconcile payment", "error", err)
		return nil, fmt.Errorf("failed to reconcile payment: %w", err)
	}
	publishHistory(ctx, s.publisher, out.History...)

	p := out.Payment
	switch p.Status {
	case models.PaymentApproved:
		if p.PersonID == nil || p.ScheduleID == nil {
			metrics.RecordReconciliation(p.Status, "unmatched")
			log.Warn("Approved payment does not match a person and schedule")
			return p, nil
		}
		if err := s.commitApproved(ctx, p, providerID, out.Transitioned); err != nil {
			metrics.RecordReconciliation(p.Status, "error")
			return nil, err
		}
		metrics.RecordReconciliation(p.Status, "committed")

	case models.PaymentRejected:
		metrics.RecordReconciliation(p.Status, "recorded")
		if out.Transitioned {
			log.Info("Payment rejected")
			publish(ctx, s.publisher, models.EventPaymentRejected, models.PaymentRejectedEvent{
				PaymentID:         providerID,
				ExternalReference: p.ExternalReference,
				ProviderStatus:    pp.Status,
				Timestamp:         now,
			})
		}

	default:
		metrics.RecordReconciliation(p.Status, "pending")
	}

	return p, nil
}

func (s *PaymentService) commitApproved(ctx context.Context, p *models.Payment, providerID string, transitioned bool) error {
	log := logger.WithContext(ctx).With("payment_id", providerID)

	existing, err := s.registrations.GetRegistrationByPaymentID(ctx, providerID)
	if err != nil {
		return fmt.Errorf("failed to check registration: %w", err)
	}
	if existing != nil {
		return nil
	}

	_, err = s.committer.CompleteSubscription(ctx, *p.PersonID, *p.ScheduleID, providerID)
	switch {
	case err == nil, apperr.Is(err, apperr.ErrAlreadyRegistered):
		return nil

	case apperr.Is(err, apperr.ErrNoVacancy):
		if !transitioned {
			return nil
		}
		entry := &models.HistoryLog{
			PaymentID: &providerID,
			Action:    models.ActionNoVacancy,
			Details: mustJSON(map[string]any{
				"person_id":          *p.PersonID,
				"schedule_id":        *p.ScheduleID,
				"external_reference": p.ExternalReference,
				"amount_cents":       p.AmountCents,
			}),
			CreatedAt: s.clock.Now(),
		}
		if err := s.history.Append(ctx, entry); err != nil {
			log.Error("Failed to record no-vacancy outcome", "error", err)
			return nil
		}
		publishHistory(ctx, s.publisher, *entry)
		return nil

	case apperr.Is(err, apperr.ErrNotFound), apperr.Is(err, apperr.ErrConflict):
		log.Warn("Approved payment cannot be committed", "error", err)
		return nil

	default:
		return err
	}
}

// CheckStatus returns the latest payment for the filters, refreshing it from
// the provider while it is still pending.
func (s *PaymentService) CheckStatus(ctx context.Context, email string, scheduleID int64) (*models.StatusView, error) {
	email = strings.TrimSpace(email)
	if email == "" && scheduleID <= 0 {
		return nil, apperr.Validation("email or schedule_id is required")
	}

	p, err := s.payments.Latest(ctx, email, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if p == nil {
		return nil, apperr.NotFound("payment")
	}

	if !p.IsTerminal() {
		refreshed, err := s.refresh(ctx, p)
		if err != nil {
			return nil, err
		}
		if refreshed != nil {
			p = refreshed
		}
	}

	view := &models.StatusView{
		PaymentStatus:  p.Status,
		ProviderStatus: p.ProviderStatus,
		ScheduleID:     p.ScheduleID,
		AmountCents:    p.AmountCents,
	}
	if p.ProviderPaymentID != nil {
		view.ProviderPaymentID = *p.ProviderPaymentID
		reg, err := s.registrations.GetRegistrationByPaymentID(ctx, *p.ProviderPaymentID)
		if err != nil {
			return nil, fmt.Errorf("failed to get registration: %w", err)
		}
		if reg != nil {
			view.RegistrationStatus = reg.Status
			view.RegistrationID = &reg.ID
		}
	}
	return view, nil
}

// refresh returns nil when the provider has nothing newer. Provider and store
// failures are returned, the poll never answers with a stale row.
func (s *PaymentService) refresh(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	log := logger.WithContext(ctx).With("external_reference", p.ExternalReference)

	var pp *external.ProviderPayment
	var err error
	if p.ProviderPaymentID != nil {
		pp, err = s.provider.GetPayment(ctx, *p.ProviderPaymentID)
		metrics.RecordProviderRequest("get_payment", err)
	} else {
		pp, err = s.provider.FindPaymentByReference(ctx, p.ExternalReference)
		metrics.RecordProviderRequest("search_payment", err)
	}
	if err != nil {
		if apperr.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		if !apperr.Is(err, apperr.ErrExternalService) {
			err = apperr.External("refresh payment", err)
		}
		log.Error("Failed to refresh payment from provider", "error", err)
		return nil, err
	}
	if pp == nil {
		return nil, nil
	}

	refreshed, err := s.reconcile(ctx, pp)
	if err != nil {
		return nil, err
	}
	return refreshed, nil
}

// mapProviderStatus folds provider states into pending, approved and rejected.
func mapProviderStatus(status string) string {
	switch strings.ToLower(status) {
	case "approved":
		return models.PaymentApproved
	case "rejected", "cancelled", "refunded", "charged_back":
		return models.PaymentRejected
	default:
		return models.PaymentPending
	}
}

func newReference(personID, scheduleID int64) string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s-%d-%d-%s", referencePrefix, personID, scheduleID, nonce)
}

// parseReference extracts person and schedule ids from FP-<person>-<schedule>-<nonce>.
func parseReference(ref string) (personID, scheduleID *int64) {
	parts := strings.SplitN(strings.TrimSpace(ref), "-", 4)
	if len(parts) < 3 || parts[0] != referencePrefix {
		return nil, nil
	}

	pid, err1 := strconv.ParseInt(parts[1], 10, 64)
	sid, err2 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil || pid <= 0 || sid <= 0 {
		return nil, nil
	}
	return &pid, &sid
}
