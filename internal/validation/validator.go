package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Check описывает один запрос и ожидаемый статус ответа
type Check struct {
	Name   string
	Method string
	Path   string
	Body   any
	Want   int
}

// APIValidator проверяет публичный контракт запущенного API
type APIValidator struct {
	baseURL string
	client  *http.Client
}

// NewAPIValidator создает новый валидатор
func NewAPIValidator(baseURL string) *APIValidator {
	return &APIValidator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// DefaultChecks covers routes that answer deterministically without seeded data.
func DefaultChecks() []Check {
	return []Check{
		{Name: "health", Method: http.MethodGet, Path: "/health", Want: http.StatusOK},
		{Name: "list schedules", Method: http.MethodGet, Path: "/api/schedules", Want: http.StatusOK},
		{Name: "otp rejects bad email", Method: http.MethodPost, Path: "/api/otp/issue", Body: map[string]string{"email": "not-an-email"}, Want: http.StatusBadRequest},
		{Name: "otp validate rejects unknown code", Method: http.MethodPost, Path: "/api/otp/validate", Body: map[string]string{"email": "nobody@example.com", "code": "000000"}, Want: http.StatusUnauthorized},
		{Name: "login rejects unknown admin", Method: http.MethodPost, Path: "/api/auth/login", Body: map[string]string{"email": "nobody@example.com", "password": "wrong-password"}, Want: http.StatusUnauthorized},
		{Name: "webhook ignores other topics", Method: http.MethodPost, Path: "/api/webhooks/mercadopago", Body: map[string]any{"type": "merchant_order", "data": map[string]string{"id": "1"}}, Want: http.StatusOK},
		{Name: "checkout requires token", Method: http.MethodPost, Path: "/api/checkout", Body: map[string]int{"schedule_id": 1}, Want: http.StatusUnauthorized},
		{Name: "admin requires token", Method: http.MethodGet, Path: "/api/admin/dashboard", Want: http.StatusUnauthorized},
	}
}

// ValidateAll runs every check and returns the first mismatch.
func (v *APIValidator) ValidateAll(ctx context.Context, checks []Check) error {
	slog.Info("Starting API validation", "base_url", v.baseURL, "checks", len(checks))

	for _, c := range checks {
		status, err := v.do(ctx, c)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
		if status != c.Want {
			return fmt.Errorf("%s: %s %s expected %d, got %d", c.Name, c.Method, c.Path, c.Want, status)
		}
		slog.Info("✅ Check passed", "name", c.Name, "status", status)
	}

	return nil
}

func (v *APIValidator) do(ctx context.Context, c Check) (int, error) {
	var body io.Reader
	if c.Body != nil {
		data, err := json.Marshal(c.Body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, c.Method, v.baseURL+c.Path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
