package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperr "fastpayment/internal/errors"
)

type MercadoPagoConfig struct {
	BaseURL         string
	AccessToken     string
	Timeout         time.Duration
	MaxRetries      int
	NotificationURL string
	SuccessURL      string
	FailureURL      string
	Currency        string
}

// MercadoPagoClient talks to the Mercado Pago REST API with a bearer token.
type MercadoPagoClient struct {
	baseURL     string
	accessToken string
	maxRetries  int
	backoff     time.Duration
	cfg         MercadoPagoConfig
	httpClient  *http.Client
}

// Checkout preference models
type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type PreferencePayer struct {
	Email string `json:"email"`
}

type PreferenceBackURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

type PreferenceRequest struct {
	Items             []PreferenceItem    `json:"items"`
	Payer             PreferencePayer     `json:"payer"`
	ExternalReference string              `json:"external_reference"`
	NotificationURL   string              `json:"notification_url,omitempty"`
	BackURLs          *PreferenceBackURLs `json:"back_urls,omitempty"`
	AutoReturn        string              `json:"auto_return,omitempty"`
}

type PreferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CheckoutRequest is what the service needs to open a checkout.
type CheckoutRequest struct {
	Title             string
	AmountCents       int64
	PayerEmail        string
	ExternalReference string
}

// ProviderPayment is the authoritative state of a payment at the provider.
type ProviderPayment struct {
	ID                int64      `json:"id"`
	Status            string     `json:"status"`
	StatusDetail      string     `json:"status_detail"`
	ExternalReference string     `json:"external_reference"`
	TransactionAmount float64    `json:"transaction_amount"`
	CurrencyID        string     `json:"currency_id"`
	DateApproved      *time.Time `json:"date_approved"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

// IDString returns the provider payment id in its text form.
func (p *ProviderPayment) IDString() string {
	return strconv.FormatInt(p.ID, 10)
}

// AmountCents converts the provider decimal amount to integer cents.
func (p *ProviderPayment) AmountCents() int64 {
	return int64(math.Round(p.TransactionAmount * 100))
}

type paymentSearchResponse struct {
	Results []ProviderPayment `json:"results"`
}

func NewMercadoPagoClient(cfg MercadoPagoConfig) *MercadoPagoClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Currency == "" {
		cfg.Currency = "BRL"
	}

	return &MercadoPagoClient{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		maxRetries:  cfg.MaxRetries,
		backoff:     300 * time.Millisecond,
		cfg:         cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// CreatePreference opens a checkout for a single seat.
func (c *MercadoPagoClient) CreatePreference(ctx context.Context, req CheckoutRequest) (*PreferenceResponse, error) {
	body := PreferenceRequest{
		Items: []PreferenceItem{{
			Title:      req.Title,
			Quantity:   1,
			UnitPrice:  float64(req.AmountCents) / 100,
			CurrencyID: c.cfg.Currency,
		}},
		Payer:             PreferencePayer{Email: req.PayerEmail},
		ExternalReference: req.ExternalReference,
		NotificationURL:   c.cfg.NotificationURL,
	}
	if c.cfg.SuccessURL != "" || c.cfg.FailureURL != "" {
		body.BackURLs = &PreferenceBackURLs{
			Success: c.cfg.SuccessURL,
			Failure: c.cfg.FailureURL,
			Pending: c.cfg.SuccessURL,
		}
		if c.cfg.SuccessURL != "" {
			body.AutoReturn = "approved"
		}
	}

	var resp PreferenceResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", body, &resp); err != nil {
		return nil, err
	}
	if resp.InitPoint == "" {
		return nil, apperr.External("create preference", fmt.Errorf("response has no init_point"))
	}
	return &resp, nil
}

// GetPayment fetches the current state of a payment by provider id.
func (c *MercadoPagoClient) GetPayment(ctx context.Context, paymentID string) (*ProviderPayment, error) {
	var p ProviderPayment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPaymentByReference returns the newest payment carrying the external
// reference, or nil when the payer has not paid yet.
func (c *MercadoPagoClient) FindPaymentByReference(ctx context.Context, reference string) (*ProviderPayment, error) {
	q := url.Values{}
	q.Set("external_reference", reference)
	q.Set("sort", "date_created")
	q.Set("criteria", "desc")

	var resp paymentSearchResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/search?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

// do performs the request with bounded retries on transport errors, 429 and
// 5xx. Every failure wraps ErrExternalService except a 404, which is
// ErrNotFound.
func (c *MercadoPagoClient) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return apperr.External(method+" "+path, ctx.Err())
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
			slog.Warn("Retrying payment provider request",
				"method", method, "path", path, "attempt", attempt, "error", lastErr)
		}

		retry, err := c.attempt(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
	}

	return apperr.External(method+" "+path, fmt.Errorf("gave up after %d attempts: %w", c.maxRetries+1, lastErr))
}

func (c *MercadoPagoClient) attempt(ctx context.Context, method, path string, payload []byte, out any) (bool, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, apperr.External(method+" "+path, err)
		}
		return true, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return true, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, apperr.NotFound("provider payment")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("provider returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return false, apperr.External(method+" "+path,
			fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return false, apperr.External(method+" "+path, fmt.Errorf("failed to decode response: %w", err))
		}
	}
	return false, nil
}
