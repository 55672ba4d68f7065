// Package sms implements the SMS gateway client used for guardian alerts.
// The gateway is a plain HTTP API; the client wraps it with retries and a
// circuit breaker so a flaky provider degrades to logged failures instead of
// hanging detection-triggered notification goroutines.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/eduguard/eduguard-backend/internal/domain/shared"
	"github.com/eduguard/eduguard-backend/pkg/circuitbreaker"
	"github.com/eduguard/eduguard-backend/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the SMS gateway client.
type ClientConfig struct {
	// BaseURL is the gateway base URL.
	BaseURL string

	// APIKey authenticates requests to the gateway.
	APIKey string

	// SenderID is the alphanumeric sender shown on the recipient's phone.
	SenderID string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RetryOptions tune retry behavior.
	RetryOptions []retry.Option

	// BreakerOptions tune the circuit breaker.
	BreakerOptions []circuitbreaker.Option

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:  baseURL,
		SenderID: "EduGuard",
		Timeout:  15 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the SMS gateway client.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	retrier        *retry.Retrier
	circuitBreaker *circuitbreaker.CircuitBreaker
	logger         *slog.Logger
}

// NewClient creates a new SMS gateway client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		retrier:        retry.New(config.RetryOptions...),
		circuitBreaker: circuitbreaker.New("sms-gateway", config.BreakerOptions...),
		logger:         config.Logger,
	}
}

// sendRequest is the gateway's send payload.
type sendRequest struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	SenderID string `json:"sender_id"`
}

// sendResponse is the gateway's send reply.
type sendResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Send delivers one SMS. Transient gateway failures (5xx, timeouts) are
// retried with backoff; an open circuit fails fast with
// shared.ErrSMSGatewayUnavailable.
func (c *Client) Send(ctx context.Context, to, message string) error {
	if to == "" {
		return shared.NewDomainError("sms", "Send", shared.ErrEmptyValue, "recipient phone is required")
	}

	return c.retrier.Do(ctx, func(ctx context.Context) error {
		err := c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
			return c.doSend(ctx, to, message)
		})
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return retry.Permanent(shared.ErrSMSGatewayUnavailable)
		}
		return err
	})
}

// doSend performs a single HTTP attempt.
func (c *Client) doSend(ctx context.Context, to, message string) error {
	body, err := json.Marshal(sendRequest{
		To:       to,
		Message:  message,
		SenderID: c.config.SenderID,
	})
	if err != nil {
		return retry.Permanent(fmt.Errorf("sms: marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/sms/send", bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("sms: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.Retryable(fmt.Errorf("sms: request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return retry.Retryable(fmt.Errorf("sms: read response: %w", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var sr sendResponse
		if err := json.Unmarshal(respBody, &sr); err == nil && sr.MessageID != "" {
			c.logger.Debug("sms accepted by gateway",
				"message_id", sr.MessageID, "status", sr.Status)
		}
		return nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.Retryable(fmt.Errorf("sms: gateway returned %d: %s", resp.StatusCode, string(respBody)))

	default:
		// 4xx apart from rate limiting means the request itself is bad;
		// retrying would send the same bad request again.
		return retry.Permanent(fmt.Errorf("sms: gateway rejected request with %d: %s", resp.StatusCode, string(respBody)))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// NOOP SENDER
// ══════════════════════════════════════════════════════════════════════════════

// NoopSender satisfies the sender contract without talking to a gateway.
// Used when SMS is disabled: guardian notifications are logged and recorded
// in the audit trail but never leave the system.
type NoopSender struct {
	Logger *slog.Logger
}

// Send logs the message and reports success.
func (n NoopSender) Send(ctx context.Context, to, message string) error {
	log := n.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("sms disabled, dropping message", "to", to, "length", len(message))
	return nil
}
