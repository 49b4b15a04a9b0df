// README: Xendit QR code API client (create, simulate, list payments).
package xendit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.xendit.co"
	apiVersion     = "2022-07-31"
	defaultTimeout = 5 * time.Second
	qrTypeDynamic  = "DYNAMIC"
)

// APIError is a non-2xx response from Xendit.
type APIError struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("xendit: http %d", e.StatusCode)
	}
	return fmt.Sprintf("xendit: %s (%s, http %d)", e.Message, e.ErrorCode, e.StatusCode)
}

type QRCode struct {
	ID          string `json:"id"`
	ReferenceID string `json:"reference_id"`
	Type        string `json:"type"`
	Currency    string `json:"currency"`
	Amount      int64  `json:"amount"`
	QRString    string `json:"qr_string"`
	Status      string `json:"status"`
}

type Payment struct {
	ID          string `json:"id"`
	QRID        string `json:"qr_id"`
	ReferenceID string `json:"reference_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

type CreateQRRequest struct {
	ReferenceID string `json:"reference_id"`
	Type        string `json:"type"`
	Currency    string `json:"currency"`
	Amount      int64  `json:"amount"`
}

type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		secretKey:  cfg.SecretKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// CreateQRCode mints a dynamic QR code for referenceID.
func (c *Client) CreateQRCode(ctx context.Context, referenceID, currency string, amount int64) (*QRCode, error) {
	var qr QRCode
	err := c.do(ctx, http.MethodPost, "/qr_codes", CreateQRRequest{
		ReferenceID: referenceID,
		Type:        qrTypeDynamic,
		Currency:    currency,
		Amount:      amount,
	}, &qr)
	if err != nil {
		return nil, err
	}
	return &qr, nil
}

// SimulatePayment pays a QR code in the sandbox environment.
func (c *Client) SimulatePayment(ctx context.Context, qrID string, amount int64) (*Payment, error) {
	var p Payment
	err := c.do(ctx, http.MethodPost, "/qr_codes/"+qrID+"/payments/simulate", map[string]int64{"amount": amount}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ListPayments(ctx context.Context, qrID string) ([]Payment, error) {
	var out struct {
		Data []Payment `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/qr_codes/"+qrID+"/payments", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// do retries exactly once when the request never produced a response.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	resp, err := c.send(ctx, method, path, payload)
	if err != nil && ctx.Err() == nil {
		resp, err = c.send(ctx, method, path, payload)
	}
	if err != nil {
		return fmt.Errorf("xendit %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("xendit %s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("xendit %s %s: decode: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("api-version", apiVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// IsAPIError reports whether err is a business rejection from Xendit.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
