// Package marketplace talks to the marketplace's integration API: fetching
// event payloads, submitting processing results and reporting metered usage.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/seaporthq/seaport/internal/config"
	"go.uber.org/zap"
)

// ErrEventGone reports that the marketplace already considers the event
// processed (HTTP 410 on the event URL).
var ErrEventGone = errors.New("marketplace: event gone")

// UsageUnitAdditionalUser is the metered unit for seats above the edition's
// contractual limit.
const UsageUnitAdditionalUser = "ADDITIONAL_USER"

// Client is the outbound marketplace API client authenticated with the
// inbound OAuth credential pair.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string

	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.Mutex
	token string
}

// NewClient builds a Client from the marketplace configuration.
func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	timeout := cfg.Marketplace.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.Marketplace.BaseURL, "/"),
		clientID:     cfg.Marketplace.InClientID,
		clientSecret: cfg.Marketplace.InClientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger.Named("marketplace"),
	}
}

// FetchEvent GETs the event payload behind eventURL. A 410 response maps to
// ErrEventGone; any other non-200 response is an error.
func (c *Client) FetchEvent(ctx context.Context, eventURL string) (Event, error) {
	var event Event

	status, body, err := c.do(ctx, http.MethodGet, eventURL, nil)
	if err != nil {
		return event, fmt.Errorf("marketplace: fetch event: %w", err)
	}
	switch {
	case status == http.StatusGone:
		c.logger.Info("marketplace.event.gone", zap.String("event_url", eventURL))
		return event, fmt.Errorf("%w: %s", ErrEventGone, eventURL)
	case status != http.StatusOK:
		return event, fmt.Errorf("marketplace: fetch event: unexpected status %d: %s", status, truncate(body))
	}

	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("marketplace: decode event: %w", err)
	}
	c.logger.Info("marketplace.event.fetched",
		zap.String("event_url", eventURL),
		zap.String("event_type", event.Type),
	)
	return event, nil
}

// SubmitResult POSTs the processing result to <eventUrl>/result. The
// marketplace acknowledges with 204.
func (c *Client) SubmitResult(ctx context.Context, eventURL string, result Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marketplace: encode result: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, eventURL+"/result", payload)
	if err != nil {
		return fmt.Errorf("marketplace: submit result: %w", err)
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("marketplace: submit result: unexpected status %d: %s", status, truncate(body))
	}

	c.logger.Info("marketplace.result.submitted",
		zap.String("event_url", eventURL),
		zap.Bool("success", result.Success),
		zap.String("error_code", result.ErrorCode),
	)
	return nil
}

// ReportUsage submits the seats exceeding the contractual limit as metered
// usage. E.g. contractual seats 5, live seats 7: overage is 2.
func (c *Client) ReportUsage(ctx context.Context, accountIdentifier string, overage int64) error {
	payload, err := json.Marshal(map[string]any{
		"account": map[string]any{
			"accountIdentifier": accountIdentifier,
		},
		"items": []map[string]any{
			{"unit": UsageUnitAdditionalUser, "quantity": overage},
		},
	})
	if err != nil {
		return fmt.Errorf("marketplace: encode usage: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/integration/v1/billing/usage", payload)
	if err != nil {
		return fmt.Errorf("marketplace: report usage: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("marketplace: report usage: unexpected status %d: %s", status, truncate(body))
	}

	c.logger.Info("marketplace.usage.reported",
		zap.String("account_identifier", accountIdentifier),
		zap.Int64("overage", overage),
	)
	return nil
}

// do performs an authenticated request, refreshing the token and retrying
// once when the marketplace rejects the cached one.
func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) (int, []byte, error) {
	token, err := c.accessToken(ctx, false)
	if err != nil {
		return 0, nil, err
	}

	status, respBody, err := c.send(ctx, method, rawURL, body, token)
	if err != nil {
		return 0, nil, err
	}
	if status != http.StatusUnauthorized {
		return status, respBody, nil
	}

	token, err = c.accessToken(ctx, true)
	if err != nil {
		return 0, nil, err
	}
	return c.send(ctx, method, rawURL, body, token)
}

func (c *Client) send(ctx context.Context, method, rawURL string, body []byte, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// accessToken returns the cached OAuth token, logging in with the
// client-credentials grant when absent or when a refresh is forced.
func (c *Client) accessToken(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && !force {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "ROLE_APPLICATION")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("marketplace: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("marketplace: login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("marketplace: read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("marketplace: login failed with status %d: %s", resp.StatusCode, truncate(body))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("marketplace: decode login response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", errors.New("marketplace: login response missing access_token")
	}

	c.token = parsed.AccessToken
	c.logger.Info("marketplace.login.ok")
	return c.token, nil
}

func truncate(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
