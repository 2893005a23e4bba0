package handlers

import (
	"net/http"

	"fastpayment/internal/models"

	"github.com/gin-gonic/gin"
)

// ListSchedules - GET /api/schedules
// Получить открытые для записи расписания
func (h *Handlers) ListSchedules(c *gin.Context) {
	views, err := h.schedules.ListAvailable(c.Request.Context(), c.Query("slug"), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// ListAllSchedules - GET /api/admin/schedules
func (h *Handlers) ListAllSchedules(c *gin.Context) {
	views, err := h.schedules.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// CreateSchedule - POST /api/admin/schedules
// Создать расписание
func (h *Handlers) CreateSchedule(c *gin.Context) {
	var req models.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.schedules.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.CreatedResponse{ID: id})
}

// DeleteSchedule - DELETE /api/admin/schedules/:id
func (h *Handlers) DeleteSchedule(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.schedules.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AdjustVacancies - PATCH /api/admin/schedules/:id/vacancies
func (h *Handlers) AdjustVacancies(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.AdjustVacanciesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	schedule, err := h.schedules.AdjustVacancies(c.Request.Context(), id, *req.Vacancies)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// SweepSchedules - POST /api/admin/schedules/sweep
// Закрыть прошедшие расписания
func (h *Handlers) SweepSchedules(c *gin.Context) {
	closed, err := h.schedules.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SweepResponse{Closed: closed})
}
