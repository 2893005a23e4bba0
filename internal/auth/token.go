package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	apperr "fastpayment/internal/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	PersonID int64  `json:"person_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type ctxKey struct{}

// ContextWithPrincipal stores p in ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext returns the principal placed by the auth middleware.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok && p != nil
}

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 bearer tokens.
type TokenManager struct {
	secret    []byte
	clientTTL time.Duration
	adminTTL  time.Duration
	now       func() time.Time
}

func NewTokenManager(secret string, clientTTL, adminTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:    []byte(secret),
		clientTTL: clientTTL,
		adminTTL:  adminTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Issue signs a token for p. Admin tokens use the admin TTL.
func (m *TokenManager) Issue(p Principal) (string, time.Time, error) {
	ttl := m.clientTTL
	if p.Role == "admin" {
		ttl = m.adminTTL
	}

	issuedAt := m.now()
	exp := issuedAt.Add(ttl)
	c := claims{
		Email: p.Email,
		Role:  p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.PersonID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies raw and returns its principal. Any failure maps to
// ErrUnauthorized.
func (m *TokenManager) Parse(raw string) (*Principal, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: invalid token", apperr.ErrUnauthorized)
	}

	p := &Principal{Email: c.Email, Role: c.Role}
	if c.Subject != "" {
		id, err := strconv.ParseInt(c.Subject, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid subject", apperr.ErrUnauthorized)
		}
		p.PersonID = id
	}
	if p.Role == "" || p.Email == "" {
		return nil, fmt.Errorf("%w: incomplete claims", apperr.ErrUnauthorized)
	}
	return p, nil
}
