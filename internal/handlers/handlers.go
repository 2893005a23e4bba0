package handlers

import (
	"context"
	"net/http"
	"strconv"

	"fastpayment/internal/auth"
	apperr "fastpayment/internal/errors"
	"fastpayment/internal/logger"
	"fastpayment/internal/models"
	"fastpayment/internal/search"
	"fastpayment/internal/service"

	"github.com/gin-gonic/gin"
)

type scheduleService interface {
	ListAvailable(ctx context.Context, slug, typeSlug string) ([]models.ScheduleView, error)
	ListAll(ctx context.Context) ([]models.ScheduleView, error)
	Create(ctx context.Context, req *models.CreateScheduleRequest) (int64, error)
	Delete(ctx context.Context, id int64) error
	AdjustVacancies(ctx context.Context, id int64, vacancies int) (*models.Schedule, error)
	Sweep(ctx context.Context) (int64, error)
}

type otpService interface {
	Issue(ctx context.Context, req *models.IssueOTPRequest) (string, error)
	Authenticate(ctx context.Context, email, code string) (*models.TokenResponse, error)
}

type subscriptionService interface {
	CompleteSubscription(ctx context.Context, personID, scheduleID int64, paymentID string) (*models.Registration, error)
}

type paymentService interface {
	CreateCheckout(ctx context.Context, principal *auth.Principal, scheduleID int64) (*models.CheckoutResponse, error)
	HandleNotification(ctx context.Context, n *models.PaymentNotification) error
	CheckStatus(ctx context.Context, email string, scheduleID int64) (*models.StatusView, error)
}

type accountService interface {
	Login(ctx context.Context, email, password string) (*models.TokenResponse, error)
	FinalizeRegistration(ctx context.Context, principal *auth.Principal, fullName string) (*models.FinalizeRegistrationResponse, error)
	ListUsers(ctx context.Context, role string) ([]models.Person, error)
	RegisterAdmin(ctx context.Context, req *models.RegisterAdminRequest) (*models.Person, error)
	DeleteUser(ctx context.Context, principal *auth.Principal, id int64) error
}

type catalogService interface {
	CreateUnit(ctx context.Context, req *models.CreateUnitRequest) (int64, error)
	ListUnits(ctx context.Context) ([]models.Unit, error)
	CreateEventType(ctx context.Context, req *models.CreateEventTypeRequest) (int64, error)
	ListEventTypes(ctx context.Context) ([]models.EventType, error)
	CreateEvent(ctx context.Context, req *models.CreateEventRequest) (int64, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	DeleteUnit(ctx context.Context, id int64) error
	DeleteEventType(ctx context.Context, id int64) error
	DeleteEvent(ctx context.Context, id int64) error
}

type dashboardService interface {
	Dashboard(ctx context.Context) (*models.DashboardResponse, error)
	SearchHistory(ctx context.Context, q search.HistoryQuery) ([]models.HistoryLog, int64, error)
}

type Handlers struct {
	schedules     scheduleService
	otp           otpService
	subscriptions subscriptionService
	payments      paymentService
	accounts      accountService
	catalog       catalogService
	dashboard     dashboardService
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		schedules:     services.Schedules,
		otp:           services.OTP,
		subscriptions: services.Subscriptions,
		payments:      services.Payments,
		accounts:      services.Accounts,
		catalog:       services.Catalog,
		dashboard:     services.Dashboard,
	}
}

// errorStatus maps the error taxonomy to an HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case apperr.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case apperr.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case apperr.Is(err, apperr.ErrAlreadyRegistered):
		return http.StatusOK, "already_registered"
	case apperr.Is(err, apperr.ErrNoVacancy):
		return http.StatusConflict, "no_vacancy"
	case apperr.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "conflict"
	case apperr.Is(err, apperr.ErrExpiredOrInvalid):
		return http.StatusUnauthorized, "expired_or_invalid"
	case apperr.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case apperr.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case apperr.Is(err, apperr.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case apperr.Is(err, apperr.ErrExternalService):
		return http.StatusBadGateway, "external_service_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func respondError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	_ = c.Error(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("Request failed", "error", err, "path", c.FullPath())
		message = "Internal server error"
	}

	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_error"})
}

func principal(c *gin.Context) *auth.Principal {
	p, _ := auth.PrincipalFromContext(c.Request.Context())
	return p
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, apperr.Validation("invalid id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}
