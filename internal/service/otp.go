package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"strings"

	"fastpayment/internal/auth"
	"fastpayment/internal/clock"
	"fastpayment/internal/config"
	apperr "fastpayment/internal/errors"
	"fastpayment/internal/logger"
	"fastpayment/internal/metrics"
	"fastpayment/internal/models"
)

// OTPService выпускает и проверяет одноразовые коды доступа
type OTPService struct {
	codes     OTPStore
	persons   PersonStore
	limiter   RateLimiter
	publisher Publisher
	tokens    TokenIssuer
	clock     clock.Clock
	policy    config.OTPPolicy
}

func NewOTPService(codes OTPStore, persons PersonStore, limiter RateLimiter, publisher Publisher, tokens TokenIssuer, clk clock.Clock, policy config.OTPPolicy) *OTPService {
	return &OTPService{
		codes:     codes,
		persons:   persons,
		limiter:   limiter,
		publisher: publisher,
		tokens:    tokens,
		clock:     clk,
		policy:    policy,
	}
}

// Issue replaces any pending code for the email with a fresh one and hands it
// to the mail consumer. The returned code is never sent back over HTTP.
func (s *OTPService) Issue(ctx context.Context, req *models.IssueOTPRequest) (string, error) {
	email, err := normalizeAddress(req.Email)
	if err != nil {
		return "", err
	}

	if err := s.checkRate(ctx, email); err != nil {
		return "", err
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	now := s.clock.Now()
	otp := &models.OTPCode{
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(s.policy.TTL),
		Status:    models.OTPPending,
		CreatedAt: now,
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		otp.Phone = &phone
	}

	if err := s.codes.Replace(ctx, otp); err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}

	metrics.RecordOTPIssued()
	publish(ctx, s.publisher, models.EventOTPIssued, models.OTPIssuedEvent{
		Email:     email,
		Name:      strings.TrimSpace(req.Name),
		Code:      code,
		ExpiresAt: otp.ExpiresAt,
		Timestamp: now,
	})

	logger.WithContext(ctx).Info("OTP issued", "email", email, "expires_at", otp.ExpiresAt)
	return code, nil
}

// checkRate fails open when the limiter is unavailable.
func (s *OTPService) checkRate(ctx context.Context, email string) error {
	if s.limiter == nil || s.policy.RateLimit <= 0 {
		return nil
	}

	allowed, err := s.limiter.Allow(ctx, "otp:"+email, s.policy.RateLimit, s.policy.RateWindow)
	if err != nil {
		logger.WithContext(ctx).Warn("OTP rate limiter unavailable", "error", err, "email", email)
		return nil
	}
	if !allowed {
		return fmt.Errorf("%w: too many codes requested for %s", apperr.ErrRateLimited, email)
	}
	return nil
}

// Validate consumes a pending, unexpired code. Wrong, expired and already used
// codes are indistinguishable.
func (s *OTPService) Validate(ctx context.Context, email, code string) error {
	email, err := normalizeAddress(email)
	if err != nil {
		return err
	}

	if _, err := s.codes.Consume(ctx, email, strings.TrimSpace(code), s.clock.Now()); err != nil {
		if apperr.Is(err, apperr.ErrExpiredOrInvalid) {
			metrics.RecordOTPValidation("rejected")
			return err
		}
		metrics.RecordOTPValidation("error")
		return fmt.Errorf("failed to validate code: %w", err)
	}

	metrics.RecordOTPValidation("accepted")
	return nil
}

// Authenticate validates the code and issues a client token for the person
// behind the email, creating the person on first login.
func (s *OTPService) Authenticate(ctx context.Context, email, code string) (*models.TokenResponse, error) {
	if err := s.Validate(ctx, email, code); err != nil {
		return nil, err
	}

	person, err := s.persons.Upsert(ctx, email, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to load person: %w", err)
	}
	if person.Status != models.PersonActive {
		return nil, fmt.Errorf("%w: person is inactive", apperr.ErrForbidden)
	}

	token, exp, err := s.tokens.Issue(auth.Principal{PersonID: person.ID, Email: person.Email, Role: models.RoleClient})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("Client authenticated", "person_id", person.ID)
	return &models.TokenResponse{Token: token, ExpiresAt: exp, Role: models.RoleClient}, nil
}

// ExpireStale marks past-due pending codes as expired. Validity never depends
// on it.
func (s *OTPService) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.codes.ExpireStale(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire codes: %w", err)
	}
	return n, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeAddress(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Validation("invalid email %q", email)
	}
	return email, nil
}
