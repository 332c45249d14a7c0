package sms

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

	"github.com/tech-arch1tect/otpgate/config"
	"github.com/tech-arch1tect/otpgate/services/logging"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 512
)

var (
	ErrNotConfigured = errors.New("sms gateway is not configured")
	ErrInvalidPhone  = errors.New("invalid phone number")
)

// Client posts messages to a JSON SMS gateway.
type Client struct {
	config     *config.SMSConfig
	httpClient *http.Client
	logger     *logging.Service
}

type sendRequest struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

func NewClient(cfg *config.SMSConfig, logger *logging.Service) (*Client, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		if logger != nil {
			logger.Error("sms client initialization failed: SMS_BASE_URL and SMS_API_KEY are required")
		}
		return nil, ErrNotConfigured
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if logger != nil {
		logger.Info("initializing sms client",
			zap.String("base_url", cfg.BaseURL),
			zap.String("sender", cfg.Sender),
			zap.Duration("timeout", timeout))
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Send delivers message to phone. The message body is never logged.
func (c *Client) Send(ctx context.Context, phone, message string) error {
	to := NormalisePhone(phone)
	if strings.TrimPrefix(to, "+") == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}

	raw, err := json.Marshal(sendRequest{To: to, From: c.config.Sender, Message: message})
	if err != nil {
		return fmt.Errorf("failed to encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("sms gateway request failed",
				zap.Error(err),
				zap.Duration("attempt_duration", time.Since(startTime)))
		}
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if c.logger != nil {
			c.logger.Error("sms gateway rejected message",
				zap.Int("status", resp.StatusCode))
		}
		return fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if c.logger != nil {
		c.logger.Info("sms sent successfully",
			zap.Duration("send_duration", time.Since(startTime)))
	}
	return nil
}

// NormalisePhone strips formatting characters, keeping digits and a leading plus.
func NormalisePhone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
