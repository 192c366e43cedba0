// Package push implements the delivery gateway client. The gateway exposes
// one multicast endpoint: a single call carries the message and every
// device token, and reports per-token success and failure counts.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fairchance/notification-service/internal/application/fanout"
	"github.com/fairchance/notification-service/internal/domain/broadcast"
	"github.com/fairchance/notification-service/internal/domain/shared"
	"github.com/fairchance/notification-service/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the push gateway client.
type Config struct {
	// BaseURL is the gateway base URL.
	BaseURL string

	// APIKey authenticates this service to the gateway.
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// MaxTokensPerCall is the gateway's multicast batch limit. Larger
	// recipient sets are split into sequential calls.
	MaxTokensPerCall int

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		Timeout:          30 * time.Second,
		MaxTokensPerCall: 500,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the push gateway client. It implements fanout.Pusher.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a new push gateway client.
func NewClient(config Config) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxTokensPerCall <= 0 {
		config.MaxTokensPerCall = 500
	}

	logger := config.Logger
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
		breaker: circuitbreaker.PushGatewayBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		}),
	}
}

// multicastRequest is the gateway wire format for one multicast call.
type multicastRequest struct {
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
	Tokens []string          `json:"tokens"`
}

// multicastResponse is the gateway's per-call accounting.
type multicastResponse struct {
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
}

// SendMulticast delivers the message to every token. Batches over the
// gateway limit are split into sequential calls and the counts summed; a
// failed call fails the whole send, because the caller treats any gateway
// error as "retry the invocation later".
func (c *Client) SendMulticast(ctx context.Context, msg broadcast.Message, tokens []string) (fanout.PushResult, error) {
	var result fanout.PushResult

	for start := 0; start < len(tokens); start += c.config.MaxTokensPerCall {
		end := start + c.config.MaxTokensPerCall
		if end > len(tokens) {
			end = len(tokens)
		}

		res, err := c.sendBatch(ctx, msg, tokens[start:end])
		if err != nil {
			return fanout.PushResult{}, err
		}
		result.SuccessCount += res.SuccessCount
		result.FailureCount += res.FailureCount
	}

	return result, nil
}

// sendBatch performs one gateway call through the circuit breaker.
func (c *Client) sendBatch(ctx context.Context, msg broadcast.Message, tokens []string) (fanout.PushResult, error) {
	var response multicastResponse

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.doSend(ctx, msg, tokens, &response)
	})
	if err != nil {
		return fanout.PushResult{}, shared.WrapError("push", "SendMulticast", shared.ErrGatewayFailure,
			fmt.Sprintf("multicast of %d tokens", len(tokens)), err)
	}

	c.logger.Debug("multicast delivered",
		slog.Int("tokens", len(tokens)),
		slog.Int("success", response.SuccessCount),
		slog.Int("failure", response.FailureCount))

	return fanout.PushResult{
		SuccessCount: response.SuccessCount,
		FailureCount: response.FailureCount,
	}, nil
}

// doSend performs a single HTTP request against the gateway.
func (c *Client) doSend(ctx context.Context, msg broadcast.Message, tokens []string, result *multicastResponse) error {
	body, err := json.Marshal(multicastRequest{
		Title:  msg.Title,
		Body:   msg.Body,
		Data:   msg.Data,
		Tokens: tokens,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/messages:multicast", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

// IsHealthy checks if the gateway is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
