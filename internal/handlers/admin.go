package handlers

import (
	"context"
	"net/http"
	"strconv"

	apperr "fastpayment/internal/errors"
	"fastpayment/internal/models"
	"fastpayment/internal/search"

	"github.com/gin-gonic/gin"
)

// CompleteSubscription - POST /api/admin/subscriptions
// Подтвердить запись вручную. An existing registration answers 200 with
// code already_registered.
func (h *Handlers) CompleteSubscription(c *gin.Context) {
	var req models.CompleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reg, err := h.subscriptions.CompleteSubscription(c.Request.Context(), req.PersonID, req.ScheduleID, req.PaymentID)
	if apperr.Is(err, apperr.ErrAlreadyRegistered) {
		c.JSON(http.StatusOK, models.SubscriptionResponse{Code: "already_registered", Registration: reg})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.SubscriptionResponse{Registration: reg})
}

// Dashboard - GET /api/admin/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	resp, err := h.dashboard.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SearchHistory - GET /api/admin/history
func (h *Handlers) SearchHistory(c *gin.Context) {
	from, _ := strconv.Atoi(c.DefaultQuery("from", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if from < 0 {
		badRequest(c, apperr.Validation("from must be >= 0"))
		return
	}

	logs, total, err := h.dashboard.SearchHistory(c.Request.Context(), search.HistoryQuery{
		Text:      c.Query("q"),
		Action:    c.Query("action"),
		PaymentID: c.Query("payment_id"),
		From:      from,
		Size:      size,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "entries": logs})
}

// CreateUnit - POST /api/admin/units
func (h *Handlers) CreateUnit(c *gin.Context) {
	var req models.CreateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id, err := h.catalog.CreateUnit(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.CreatedResponse{ID: id})
}

// ListUnits - GET /api/admin/units
func (h *Handlers) ListUnits(c *gin.Context) {
	units, err := h.catalog.ListUnits(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, units)
}

// CreateEventType - POST /api/admin/event-types
func (h *Handlers) CreateEventType(c *gin.Context) {
	var req models.CreateEventTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id, err := h.catalog.CreateEventType(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.CreatedResponse{ID: id})
}

// ListEventTypes - GET /api/admin/event-types
func (h *Handlers) ListEventTypes(c *gin.Context) {
	types, err := h.catalog.ListEventTypes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

// CreateEvent - POST /api/admin/events
// Создать событие
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id, err := h.catalog.CreateEvent(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.CreatedResponse{ID: id})
}

// ListEvents - GET /api/admin/events
func (h *Handlers) ListEvents(c *gin.Context) {
	events, err := h.catalog.ListEvents(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// DeleteUnit - DELETE /api/admin/units/:id
func (h *Handlers) DeleteUnit(c *gin.Context) {
	h.deleteByID(c, h.catalog.DeleteUnit)
}

// DeleteEventType - DELETE /api/admin/event-types/:id
func (h *Handlers) DeleteEventType(c *gin.Context) {
	h.deleteByID(c, h.catalog.DeleteEventType)
}

// DeleteEvent - DELETE /api/admin/events/:id
// Нельзя удалить событие, пока на него ссылаются расписания
func (h *Handlers) DeleteEvent(c *gin.Context) {
	h.deleteByID(c, h.catalog.DeleteEvent)
}

func (h *Handlers) deleteByID(c *gin.Context, del func(context.Context, int64) error) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := del(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListUsers - GET /api/admin/users
// Optional role filter: admin or client.
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.accounts.ListUsers(c.Request.Context(), c.Query("role"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// RegisterAdmin - POST /api/admin/users
// Зарегистрировать администратора
func (h *Handlers) RegisterAdmin(c *gin.Context) {
	var req models.RegisterAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	person, err := h.accounts.RegisterAdmin(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, person)
}

// DeleteUser - DELETE /api/admin/users/:id
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.accounts.DeleteUser(c.Request.Context(), principal(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
