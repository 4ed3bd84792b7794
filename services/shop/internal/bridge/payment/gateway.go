// Package payment is the client side of the external payment gateway.
// Nothing here runs inside a database transaction.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/pkg/httpx"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
)

type Gateway interface {
	CreateIntent(ctx context.Context, order *models.Order) (string, error)
	Verify(ctx context.Context, intentID, proof string) (bool, error)
}

type Config struct {
	BaseURL    string
	KeyID      string
	KeySecret  string
	Currency   string
	Timeout    time.Duration
	MaxRetries int
}

type Client struct {
	log        *slog.Logger
	cfg        Config
	httpClient *http.Client
}

func New(log *slog.Logger, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("payment: base url required")
	}
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errors.New("payment: key id and secret required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		log:        log.With("client", "payment_gateway"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type createIntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type createIntentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateIntent registers the order amount with the gateway and returns the
// gateway's id for it. The receipt is the order id, so a retried call for
// the same order is deduplicated by the gateway.
func (c *Client) CreateIntent(ctx context.Context, order *models.Order) (string, error) {
	body := createIntentRequest{
		Amount:   order.TotalAmount.Shift(2).Round(0).IntPart(),
		Currency: c.cfg.Currency,
		Receipt:  order.ID.String(),
		Notes:    map[string]string{"user_id": order.UserID.String()},
	}

	var out createIntentResponse
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("payment: gateway returned empty intent id")
	}
	return out.ID, nil
}

// Verify checks the gateway signature over intentID. The gateway signs with
// the shared key secret, so no round trip is needed.
func (c *Client) Verify(_ context.Context, intentID, proof string) (bool, error) {
	if intentID == "" || proof == "" {
		return false, nil
	}
	got, err := hex.DecodeString(strings.TrimSpace(proof))
	if err != nil {
		return false, nil
	}
	return hmac.Equal(got, Sign(c.cfg.KeySecret, intentID)), nil
}

// Sign is the gateway's signature scheme.
func Sign(secret, intentID string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(intentID))
	return mac.Sum(nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	backoff := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		resp, err := c.doOnce(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt >= c.cfg.MaxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 5*time.Second))
		c.log.Warn("payment_request_retry", "path", path, "attempt", attempt+1, "sleep", sleepFor.String(), "error", err)
		if serr := httpx.Sleep(ctx, sleepFor); serr != nil {
			return serr
		}
		backoff *= 2
	}
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("payment: encode: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("payment: new request: %w", err)
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment: do request: %w", err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, fmt.Errorf("payment: read body: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &httpx.StatusError{Service: "payment", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp, fmt.Errorf("payment: decode: %w", err)
		}
	}
	return resp, nil
}
