package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fastpayment/internal/auth"
	apperr "fastpayment/internal/errors"
	"fastpayment/internal/logger"
	"fastpayment/internal/models"
)

// AccountService handles admin login, admin user management and client
// profile completion.
type AccountService struct {
	persons PersonStore
	tokens  TokenIssuer
}

func NewAccountService(persons PersonStore, tokens TokenIssuer) *AccountService {
	return &AccountService{persons: persons, tokens: tokens}
}

// Login проверяет пароль администратора и выдает токен
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	person, err := s.persons.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}

	if person == nil || person.Role != models.RoleAdmin || person.Status != models.PersonActive ||
		person.PasswordHash == nil || !auth.VerifyPassword(*person.PasswordHash, password) {
		logger.WithContext(ctx).Warn("Admin login rejected", "email", email)
		return nil, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)
	}

	token, exp, err := s.tokens.Issue(auth.Principal{PersonID: person.ID, Email: person.Email, Role: models.RoleAdmin})
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{Token: token, ExpiresAt: exp, Role: models.RoleAdmin}, nil
}

// FinalizeRegistration sets the caller's full name and reports whether the
// person has paid before.
func (s *AccountService) FinalizeRegistration(ctx context.Context, principal *auth.Principal, fullName string) (*models.FinalizeRegistrationResponse, error) {
	if principal == nil || principal.PersonID == 0 {
		return nil, apperr.ErrUnauthorized
	}
	fullName = strings.TrimSpace(fullName)
	if len(fullName) < 2 {
		return nil, apperr.Validation("full_name is too short")
	}

	if err := s.persons.UpdateFullName(ctx, principal.PersonID, fullName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("person")
		}
		return nil, fmt.Errorf("failed to update person: %w", err)
	}

	returning, err := s.persons.HasApprovedTransaction(ctx, principal.PersonID)
	if err != nil {
		return nil, fmt.Errorf("failed to check transactions: %w", err)
	}

	return &models.FinalizeRegistrationResponse{
		PersonID:        principal.PersonID,
		FullName:        fullName,
		IsReturningUser: returning,
	}, nil
}

const minPasswordLen = 8

// ListUsers returns persons with the given role; empty role lists everyone.
func (s *AccountService) ListUsers(ctx context.Context, role string) ([]models.Person, error) {
	switch role {
	case "", models.RoleAdmin, models.RoleClient:
	default:
		return nil, apperr.Validation("invalid role %q", role)
	}
	return s.persons.ListByRole(ctx, role)
}

// RegisterAdmin creates an admin or promotes an existing person to admin.
func (s *AccountService) RegisterAdmin(ctx context.Context, req *models.RegisterAdminRequest) (*models.Person, error) {
	email, err := normalizeAddress(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLen {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLen)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	person, err := s.persons.UpsertAdmin(ctx, email, req.FullName, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to register admin: %w", err)
	}
	logger.WithContext(ctx).Info("Admin registered", "person_id", person.ID, "email", person.Email)
	return person, nil
}

// DeleteUser removes a person without registrations. Admins cannot remove
// themselves.
func (s *AccountService) DeleteUser(ctx context.Context, principal *auth.Principal, id int64) error {
	if principal != nil && principal.PersonID == id {
		return apperr.Conflict("cannot delete own account")
	}
	if err := s.persons.Remove(ctx, id); err != nil {
		return err
	}
	logger.WithContext(ctx).Info("Person deleted", "person_id", id)
	return nil
}
