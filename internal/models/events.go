package models

import "time"

// NATS Event Types
const (
	EventOTPIssued             = "otp.issued"
	EventRegistrationConfirmed = "registration.confirmed"
	EventRegistrationNoVacancy = "registration.no_vacancy"
	EventPaymentRejected       = "payment.rejected"
	EventHistoryAppended       = "history.appended"
)

// OTPIssuedEvent carries a freshly issued code to the mail consumer.
type OTPIssuedEvent struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Timestamp time.Time `json:"timestamp"`
}

// RegistrationConfirmedEvent represents a committed subscription
type RegistrationConfirmedEvent struct {
	RegistrationID int64     `json:"registration_id"`
	PersonID       int64     `json:"person_id"`
	ScheduleID     int64     `json:"schedule_id"`
	PaymentID      string    `json:"payment_id"`
	Email          string    `json:"email"`
	AmountCents    int64     `json:"amount_cents"`
	Timestamp      time.Time `json:"timestamp"`
}

// RegistrationNoVacancyEvent is emitted when an approved payment arrives for
// a full schedule. A refund flow may consume it.
type RegistrationNoVacancyEvent struct {
	PersonID   int64     `json:"person_id"`
	ScheduleID int64     `json:"schedule_id"`
	PaymentID  string    `json:"payment_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// PaymentRejectedEvent represents a failed payment event
type PaymentRejectedEvent struct {
	PaymentID         string    `json:"payment_id"`
	ExternalReference string    `json:"external_reference"`
	ProviderStatus    string    `json:"provider_status"`
	Timestamp         time.Time `json:"timestamp"`
}

// HistoryAppendedEvent mirrors a history_logs row for the search index.
type HistoryAppendedEvent struct {
	Log HistoryLog `json:"log"`
}
