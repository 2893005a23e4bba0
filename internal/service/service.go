package service

import (
	"context"
	"encoding/json"
	"time"

	"fastpayment/internal/auth"
	"fastpayment/internal/clock"
	"fastpayment/internal/config"
	"fastpayment/internal/external"
	"fastpayment/internal/logger"
	"fastpayment/internal/models"
	"fastpayment/internal/repository"
	"fastpayment/internal/search"
)

// Publisher sends domain events to the bus.
type Publisher interface {
	Publish(subject string, data any) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type TokenIssuer interface {
	Issue(p auth.Principal) (string, time.Time, error)
}

type ScheduleStore interface {
	Sweep(ctx context.Context, now time.Time) (int64, error)
	ListAvailable(ctx context.Context, slug, typeSlug string) ([]models.ScheduleView, error)
	ListAll(ctx context.Context) ([]models.ScheduleView, error)
	GetByID(ctx context.Context, id int64) (*models.Schedule, error)
	Create(ctx context.Context, s *models.Schedule) error
	Delete(ctx context.Context, id int64) error
	SetVacancies(ctx context.Context, id int64, vacancies int, reopen bool, reopenAfter, now time.Time) (*models.Schedule, error)
}

type CatalogStore interface {
	CreateUnit(ctx context.Context, unit *models.Unit) error
	ListUnits(ctx context.Context) ([]models.Unit, error)
	CreateEventType(ctx context.Context, et *models.EventType) error
	ListEventTypes(ctx context.Context) ([]models.EventType, error)
	CreateEvent(ctx context.Context, event *models.Event) error
	ListEvents(ctx context.Context) ([]models.Event, error)
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	MissingReferences(ctx context.Context, eventID, unitID, eventTypeID int64) ([]string, error)
	DeleteUnit(ctx context.Context, id int64) error
	DeleteEventType(ctx context.Context, id int64) error
	DeleteEvent(ctx context.Context, id int64) error
}

type PersonStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Person, error)
	Upsert(ctx context.Context, email, fullName, phone string) (*models.Person, error)
	UpdateFullName(ctx context.Context, id int64, fullName string) error
	HasApprovedTransaction(ctx context.Context, personID int64) (bool, error)
	ListByRole(ctx context.Context, role string) ([]models.Person, error)
	UpsertAdmin(ctx context.Context, email, fullName, passwordHash string) (*models.Person, error)
	Remove(ctx context.Context, id int64) error
}

type OTPStore interface {
	Replace(ctx context.Context, otp *models.OTPCode) error
	Consume(ctx context.Context, email, code string, now time.Time) (int64, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type SubscriptionStore interface {
	Complete(ctx context.Context, in repository.CommitInput) (*repository.CommitResult, error)
	GetRegistrationByPaymentID(ctx context.Context, paymentID string) (*models.Registration, error)
}

type PaymentStore interface {
	CreatePending(ctx context.Context, p *models.Payment) error
	Latest(ctx context.Context, email string, scheduleID int64) (*models.Payment, error)
	Reconcile(ctx context.Context, in repository.ReconcileInput) (*repository.ReconcileOutcome, error)
}

type HistoryStore interface {
	Append(ctx context.Context, entry *models.HistoryLog) error
	Recent(ctx context.Context, limit int) ([]models.HistoryLog, error)
}

type HistorySearcher interface {
	SearchHistory(ctx context.Context, q search.HistoryQuery) ([]models.HistoryLog, int64, error)
}

type DashboardStore interface {
	Report(ctx context.Context, limit int) ([]models.DashboardEntry, error)
	Stats(ctx context.Context) (models.DashboardStats, error)
}

// PaymentProvider is the outbound side of the payment gateway.
type PaymentProvider interface {
	CreatePreference(ctx context.Context, req external.CheckoutRequest) (*external.PreferenceResponse, error)
	GetPayment(ctx context.Context, paymentID string) (*external.ProviderPayment, error)
	FindPaymentByReference(ctx context.Context, reference string) (*external.ProviderPayment, error)
}

type Services struct {
	Schedules     *ScheduleService
	OTP           *OTPService
	Subscriptions *SubscriptionService
	Payments      *PaymentService
	Accounts      *AccountService
	Catalog       *CatalogService
	Dashboard     *DashboardService
}

// Deps collects the collaborators of the services. Limiter and Searcher are
// optional.
type Deps struct {
	Repos     *repository.Repositories
	Publisher Publisher
	Limiter   RateLimiter
	Provider  PaymentProvider
	Tokens    TokenIssuer
	Searcher  HistorySearcher
	Clock     clock.Clock
	Config    *config.Config
}

func NewServices(d Deps) *Services {
	if d.Clock == nil {
		d.Clock = clock.System()
	}
	repos := d.Repos

	schedules := NewScheduleService(repos.Schedules, repos.Catalog, d.Clock, d.Config.Schedules)
	subscriptions := NewSubscriptionService(repos.Subscriptions, d.Publisher, d.Clock)

	return &Services{
		Schedules:     schedules,
		OTP:           NewOTPService(repos.OTP, repos.Persons, d.Limiter, d.Publisher, d.Tokens, d.Clock, d.Config.OTP),
		Subscriptions: subscriptions,
		Payments: NewPaymentService(PaymentDeps{
			Payments:      repos.Payments,
			Schedules:     repos.Schedules,
			Catalog:       repos.Catalog,
			Persons:       repos.Persons,
			Registrations: repos.Subscriptions,
			History:       repos.History,
			Committer:     subscriptions,
			Provider:      d.Provider,
			Publisher:     d.Publisher,
			Clock:         d.Clock,
			Currency:      d.Config.MercadoPago.Currency,
		}),
		Accounts:  NewAccountService(repos.Persons, d.Tokens),
		Catalog:   NewCatalogService(repos.Catalog),
		Dashboard: NewDashboardService(repos.Dashboard, repos.History, d.Searcher),
	}
}

// publish logs and swallows bus failures; the database is the source of truth.
func publish(ctx context.Context, p Publisher, subject string, data any) {
	if p == nil {
		return
	}
	if err := p.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Warn("Failed to publish event",
			"error", err,
			"event_type", subject)
	}
}

func publishHistory(ctx context.Context, p Publisher, entries ...models.HistoryLog) {
	for _, e := range entries {
		publish(ctx, p, models.EventHistoryAppended, models.HistoryAppendedEvent{Log: e})
	}
}

func mustJSON(fields map[string]any) json.RawMessage {
	b, err := json.Marshal(fields)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
