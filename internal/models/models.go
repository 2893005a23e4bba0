package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FlexibleID - идентификатор, принимающий как строку, так и число
type FlexibleID string

// UnmarshalJSON поддерживает парсинг идентификатора из строки и числа
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case raw == "null":
		*id = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(strings.TrimSpace(s))
	default:
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			return fmt.Errorf("invalid identifier value: %s", raw)
		}
		*id = FlexibleID(raw)
	}
	return nil
}

func (id FlexibleID) String() string {
	return string(id)
}

// IssueOTPRequest - запрос на выпуск одноразового кода
type IssueOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

// ValidateOTPRequest - запрос на проверку одноразового кода
type ValidateOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// TokenResponse - ответ с токеном доступа
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
}

// LoginRequest - вход администратора
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateScheduleRequest - модель для создания расписания
type CreateScheduleRequest struct {
	EventID     int64     `json:"event_id" binding:"required"`
	UnitID      int64     `json:"unit_id" binding:"required"`
	EventTypeID int64     `json:"event_type_id" binding:"required"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Vacancies   int       `json:"vacancies"`
}

// CreatedResponse - ответ с идентификатором созданной записи
type CreatedResponse struct {
	ID int64 `json:"id"`
}

// AdjustVacanciesRequest - изменение количества мест
type AdjustVacanciesRequest struct {
	Vacancies *int `json:"vacancies" binding:"required"`
}

// SweepResponse - результат закрытия прошедших расписаний
type SweepResponse struct {
	Closed int64 `json:"closed"`
}

// CompleteSubscriptionRequest - ручное подтверждение подписки администратором
type CompleteSubscriptionRequest struct {
	PersonID   int64  `json:"person_id" binding:"required"`
	ScheduleID int64  `json:"schedule_id" binding:"required"`
	PaymentID  string `json:"payment_id" binding:"required"`
}

// SubscriptionResponse - результат подтверждения подписки
type SubscriptionResponse struct {
	Code         string        `json:"code,omitempty"`
	Registration *Registration `json:"registration"`
}

// CheckoutRequest - модель для создания оплаты
type CheckoutRequest struct {
	ScheduleID int64 `json:"schedule_id" binding:"required"`
}

// CheckoutResponse - ссылка на оплату у провайдера
type CheckoutResponse struct {
	PaymentURL        string `json:"payment_url"`
	PreferenceID      string `json:"preference_id"`
	ExternalReference string `json:"external_reference"`
	AmountCents       int64  `json:"amount_cents"`
}

// PaymentNotification - уведомление от платежного шлюза (query или body).
// Only the id and the type are read; the status always comes from the provider.
type PaymentNotification struct {
	ID    FlexibleID `json:"id"`
	Type  string     `json:"type"`
	Topic string     `json:"topic"`
	Data  struct {
		ID FlexibleID `json:"id"`
	} `json:"data"`
}

// PaymentID returns data.id, falling back to id.
func (n *PaymentNotification) PaymentID() string {
	if n.Data.ID != "" {
		return n.Data.ID.String()
	}
	return n.ID.String()
}

// Kind returns type, falling back to topic.
func (n *PaymentNotification) Kind() string {
	if n.Type != "" {
		return n.Type
	}
	return n.Topic
}

// StatusView - состояние оплаты и регистрации
type StatusView struct {
	PaymentStatus      string `json:"payment_status"`
	ProviderStatus     string `json:"provider_status"`
	RegistrationStatus string `json:"registration_status,omitempty"`
	RegistrationID     *int64 `json:"registration_id,omitempty"`
	ScheduleID         *int64 `json:"schedule_id,omitempty"`
	ProviderPaymentID  string `json:"provider_payment_id,omitempty"`
	AmountCents        int64  `json:"amount_cents"`
}

// FinalizeRegistrationRequest - завершение профиля клиента
type FinalizeRegistrationRequest struct {
	FullName string `json:"full_name" binding:"required,min=2,max=255"`
}

// FinalizeRegistrationResponse - результат завершения профиля
type FinalizeRegistrationResponse struct {
	PersonID        int64  `json:"person_id"`
	FullName        string `json:"full_name"`
	IsReturningUser bool   `json:"is_returning_user"`
}

// CreateUnitRequest - модель для создания площадки
type CreateUnitRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateEventTypeRequest - модель для создания типа события
type CreateEventTypeRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

// CreateEventRequest - модель для создания события
type CreateEventRequest struct {
	Name       string `json:"name" binding:"required"`
	Slug       string `json:"slug" binding:"required"`
	PriceCents int64  `json:"price_cents" binding:"min=0"`
}

// RegisterAdminRequest - модель для регистрации администратора
type RegisterAdminRequest struct {
	Email    string `json:"email" binding:"required"`
	FullName string `json:"full_name"`
	Password string `json:"password" binding:"required"`
}

// DashboardEntry - строка отчета о регистрациях
type DashboardEntry struct {
	RegistrationID   int64     `json:"registration_id"`
	ClientName       string    `json:"client_name"`
	ClientEmail      string    `json:"client_email"`
	EventName        string    `json:"event_name"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	PaymentStatus    string    `json:"payment_status"`
	AmountCents      int64     `json:"amount_cents"`
	RegistrationDate time.Time `json:"registration_date"`
}

// DashboardStats - сводные показатели
type DashboardStats struct {
	TotalEntries     int64 `json:"total_entries"`
	ApprovedPayments int64 `json:"approved_payments"`
	TotalRevenue     int64 `json:"total_revenue_cents"`
}

// DashboardResponse - модель ответа панели администратора
type DashboardResponse struct {
	Entries []DashboardEntry `json:"entries"`
	Stats   DashboardStats   `json:"stats"`
}
