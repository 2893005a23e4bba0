package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	apperr "fastpayment/internal/errors"
	"fastpayment/internal/logger"
	"fastpayment/internal/models"

	"github.com/gin-gonic/gin"
)

// Checkout - POST /api/checkout
// Создать оплату у провайдера для выбранного расписания
func (h *Handlers) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.payments.CreateCheckout(c.Request.Context(), principal(c), req.ScheduleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// PaymentWebhook - POST /api/webhooks/mercadopago
// Accepts the payment id and type from the query string or a JSON body.
// Responds 200 once processed or ignored, malformed notifications included;
// provider failures answer 502 so the notification is redelivered.
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	var n models.PaymentNotification
	log := logger.WithContext(c.Request.Context())

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil {
		log.Warn("Failed to read notification body", "error", err)
		body = nil
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &n); err != nil {
			log.Warn("Malformed notification body", "error", err)
			n = models.PaymentNotification{}
		}
	}

	if n.Data.ID == "" {
		if v := c.Query("data.id"); v != "" {
			n.Data.ID = models.FlexibleID(v)
		} else if v := c.Query("data_id"); v != "" {
			n.Data.ID = models.FlexibleID(v)
		}
	}
	if n.ID == "" {
		n.ID = models.FlexibleID(c.Query("id"))
	}
	if n.Type == "" {
		n.Type = c.Query("type")
	}
	if n.Topic == "" {
		n.Topic = c.Query("topic")
	}

	if err := h.payments.HandleNotification(c.Request.Context(), &n); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PaymentStatus - GET /api/payments/status
// Clients always query their own payments; admins may pass email.
func (h *Handlers) PaymentStatus(c *gin.Context) {
	p := principal(c)
	if p == nil {
		respondError(c, apperr.ErrUnauthorized)
		return
	}

	email := p.Email
	if p.Role == models.RoleAdmin {
		email = c.Query("email")
	}

	var scheduleID int64
	if raw := c.Query("schedule_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, apperr.Validation("invalid schedule_id %q", raw))
			return
		}
		scheduleID = id
	}

	view, err := h.payments.CheckStatus(c.Request.Context(), email, scheduleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
