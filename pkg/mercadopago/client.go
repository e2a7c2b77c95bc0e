package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client is the boundary to the payment gateway. Reconciliation and
// recovery are written against this interface; the gateway is fallible and
// latent, so every call takes a context and the HTTP implementation has a
// bounded timeout.
type Client interface {
	// GetPayment fetches the authoritative payment object by gateway ID.
	GetPayment(ctx context.Context, id string) (*PaymentDetails, error)
	// CreateRefund refunds a payment. A nil amount refunds the full
	// remaining balance.
	CreateRefund(ctx context.Context, paymentID string, amount *float64) (*RefundResult, error)
	// CreatePreference registers a checkout preference and returns the
	// redirect URL for the buyer.
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
}

type RefundResult struct {
	ID     int64   `json:"id"`
	Status string  `json:"status"`
	Amount float64 `json:"amount"`
}

type PreferenceItem struct {
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	PictureURL  string  `json:"picture_url,omitempty"`
	CategoryID  string  `json:"category_id,omitempty"`
	Quantity    int     `json:"quantity"`
	CurrencyID  string  `json:"currency_id,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
}

type PreferencePayer struct {
	Email          string                    `json:"email"`
	Name           string                    `json:"name,omitempty"`
	Surname        string                    `json:"surname,omitempty"`
	Identification *PreferenceIdentification `json:"identification,omitempty"`
}

type PreferenceIdentification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type PreferenceBackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type PreferenceRequest struct {
	Items               []PreferenceItem   `json:"items"`
	Payer               PreferencePayer    `json:"payer"`
	BackURLs            PreferenceBackURLs `json:"back_urls"`
	NotificationURL     string             `json:"notification_url,omitempty"`
	ExternalReference   string             `json:"external_reference"`
	StatementDescriptor string             `json:"statement_descriptor,omitempty"`
	AutoReturn          string             `json:"auto_return,omitempty"`
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// HTTPClient talks to the Mercado Pago REST API directly.
type HTTPClient struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

func NewHTTPClient(baseURL, accessToken string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://api.mercadopago.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:     baseURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) GetPayment(ctx context.Context, id string) (*PaymentDetails, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/payments/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("get payment %s: %w", id, err)
	}
	return ParsePayment(body)
}

func (c *HTTPClient) CreateRefund(ctx context.Context, paymentID string, amount *float64) (*RefundResult, error) {
	var payload []byte
	if amount != nil {
		payload, _ = json.Marshal(map[string]float64{"amount": *amount})
	}
	body, err := c.do(ctx, http.MethodPost, "/v1/payments/"+paymentID+"/refunds", payload)
	if err != nil {
		return nil, fmt.Errorf("refund payment %s: %w", paymentID, err)
	}
	var out RefundResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, "/checkout/preferences", payload)
	if err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}
	var out Preference
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("[MP] %s %s status=%d body=%s", method, path, resp.StatusCode, truncate(body, 512))
		return nil, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
