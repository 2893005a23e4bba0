package handlers

import (
	"net/http"

	"fastpayment/internal/models"

	"github.com/gin-gonic/gin"
)

// IssueOTP - POST /api/otp/issue
// Выпустить одноразовый код. The code travels by email only.
func (h *Handlers) IssueOTP(c *gin.Context) {
	var req models.IssueOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if _, err := h.otp.Issue(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

// ValidateOTP - POST /api/otp/validate
// Проверить код и выдать токен клиента
func (h *Handlers) ValidateOTP(c *gin.Context) {
	var req models.ValidateOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	token, err := h.otp.Authenticate(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// Login - POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	token, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

// FinalizeRegistration - POST /api/registrations/finalize
func (h *Handlers) FinalizeRegistration(c *gin.Context) {
	var req models.FinalizeRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.accounts.FinalizeRegistration(c.Request.Context(), principal(c), req.FullName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
