package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/pkg/httpx"
)

var ErrNoEmailAddress = errors.New("sendgrid: recipient is not an email address")

type SendGridConfig struct {
	APIKey     string
	BaseURL    string
	FromEmail  string
	FromName   string
	Timeout    time.Duration
	MaxRetries int
}

type SendGrid struct {
	log        *slog.Logger
	cfg        SendGridConfig
	httpClient *http.Client
}

func NewSendGrid(log *slog.Logger, cfg SendGridConfig) (*SendGrid, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing SENDGRID_API_KEY")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, errors.New("missing SENDGRID_FROM_EMAIL")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &SendGrid{
		log:        log.With("client", "sendgrid"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

func (s *SendGrid) Send(ctx context.Context, recipient, subject, body string) error {
	recipient = strings.TrimSpace(recipient)
	if !strings.Contains(recipient, "@") {
		return ErrNoEmailAddress
	}
	wire := mailSendRequest{
		Personalizations: []personalization{{To: []emailAddress{{Email: recipient}}}},
		From:             emailAddress{Email: s.cfg.FromEmail, Name: s.cfg.FromName},
		Subject:          subject,
		Content:          []mailContent{{Type: "text/plain", Value: body}},
	}

	backoff := time.Second
	for attempt := 0; ; attempt++ {
		resp, err := s.doOnce(ctx, wire)
		if err == nil {
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt >= s.cfg.MaxRetries {
			return err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		s.log.Warn("sendgrid_request_retry", "attempt", attempt+1, "sleep", sleepFor.String(), "error", err)
		if serr := httpx.Sleep(ctx, sleepFor); serr != nil {
			return serr
		}
		backoff *= 2
	}
}

func (s *SendGrid) doOnce(ctx context.Context, wire mailSendRequest) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(wire); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/v3/mail/send", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sendgrid: do request: %w", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &httpx.StatusError{Service: "sendgrid", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}
