package models

import (
	"encoding/json"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleClient = "client"

	PersonActive   = "active"
	PersonInactive = "inactive"

	ScheduleAvailable   = "available"
	ScheduleUnavailable = "unavailable"

	OTPPending    = "pending"
	OTPValidated  = "validated"
	OTPSuperseded = "superseded"
	OTPExpired    = "expired"

	PaymentPending  = "pending"
	PaymentApproved = "approved"
	PaymentRejected = "rejected"

	RegistrationPending   = "pending"
	RegistrationConfirmed = "confirmed"
)

// History log actions
const (
	ActionSubscriptionCompleted = "subscription_completed"
	ActionPaymentApproved       = "payment_approved"
	ActionPaymentRejected       = "payment_rejected"
	ActionPaymentUnmatched      = "payment_unmatched"
	ActionNoVacancy             = "no_vacancy"
)

// Person is a client or an admin.
type Person struct {
	ID           int64     `json:"id" db:"id"`
	FullName     string    `json:"full_name" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	PasswordHash *string   `json:"-" db:"password_hash"`
	Status       string    `json:"status" db:"status"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type Unit struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type EventType struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Event is a paid activity. Price is kept in integer cents.
type Event struct {
	ID         int64  `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	PriceCents int64  `json:"price_cents" db:"price_cents"`
	Slug       string `json:"slug" db:"slug"`
}

// Schedule is a dated, bookable occurrence of an event with finite capacity.
type Schedule struct {
	ID          int64     `json:"id" db:"id"`
	EventID     int64     `json:"event_id" db:"event_id"`
	UnitID      int64     `json:"unit_id" db:"unit_id"`
	EventTypeID int64     `json:"event_type_id" db:"event_type_id"`
	ScheduledAt time.Time `json:"scheduled_at" db:"scheduled_at"`
	Vacancies   int       `json:"vacancies" db:"vacancies"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ScheduleView joins a schedule with its event, unit and type names.
type ScheduleView struct {
	ID            int64     `json:"id"`
	EventName     string    `json:"event_name"`
	EventSlug     string    `json:"event_slug"`
	PriceCents    int64     `json:"price_cents"`
	EventTypeName string    `json:"event_type_name"`
	EventTypeSlug string    `json:"event_type_slug"`
	UnitName      string    `json:"unit_name"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Vacancies     int       `json:"vacancies"`
	Status        string    `json:"status"`
}

type OTPCode struct {
	ID          int64      `json:"id" db:"id"`
	Email       string     `json:"email" db:"email"`
	Phone       *string    `json:"phone,omitempty" db:"phone"`
	Code        string     `json:"-" db:"code"`
	ExpiresAt   time.Time  `json:"expires_at" db:"expires_at"`
	Status      string     `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ValidatedAt *time.Time `json:"validated_at,omitempty" db:"validated_at"`
}

// Payment is the local record of a provider payment.
type Payment struct {
	ID                int64      `json:"id" db:"id"`
	ProviderPaymentID *string    `json:"provider_payment_id" db:"provider_payment_id"`
	ExternalReference string     `json:"external_reference" db:"external_reference"`
	PreferenceID      *string    `json:"preference_id,omitempty" db:"preference_id"`
	PersonID          *int64     `json:"person_id" db:"person_id"`
	ScheduleID        *int64     `json:"schedule_id" db:"schedule_id"`
	PayerEmail        string     `json:"payer_email" db:"payer_email"`
	AmountCents       int64      `json:"amount_cents" db:"amount_cents"`
	Currency          string     `json:"currency" db:"currency"`
	Status            string     `json:"status" db:"status"`
	ProviderStatus    string     `json:"provider_status" db:"provider_status"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the payment reached approved or rejected.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentApproved || p.Status == PaymentRejected
}

type Transaction struct {
	ID          int64     `json:"id" db:"id"`
	PaymentID   *string   `json:"payment_id" db:"payment_id"`
	PersonID    int64     `json:"person_id" db:"person_id"`
	ScheduleID  int64     `json:"schedule_id" db:"schedule_id"`
	PayerEmail  string    `json:"payer_email" db:"payer_email"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Registration is a confirmed seat of a person on a schedule.
type Registration struct {
	ID            int64     `json:"id" db:"id"`
	PersonID      int64     `json:"person_id" db:"person_id"`
	ScheduleID    int64     `json:"schedule_id" db:"schedule_id"`
	PaymentID     *string   `json:"payment_id" db:"payment_id"`
	TransactionID *int64    `json:"transaction_id" db:"transaction_id"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// HistoryLog is an append-only audit record.
type HistoryLog struct {
	ID            int64           `json:"id" db:"id"`
	TransactionID *int64          `json:"transaction_id,omitempty" db:"transaction_id"`
	PaymentID     *string         `json:"payment_id,omitempty" db:"payment_id"`
	Action        string          `json:"action" db:"action"`
	Details       json.RawMessage `json:"details" db:"details"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
