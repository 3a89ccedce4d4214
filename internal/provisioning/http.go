package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seaporthq/seaport/internal/config"
	"go.uber.org/zap"
)

// httpBackend talks to the storage backend's admin API using basic auth.
// Every response carries a JSON status envelope; a non-"ok" status becomes
// an error wrapping the backend's reason string.
type httpBackend struct {
	baseURL       string
	adminUser     string
	adminPassword string

	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPBackend builds the admin API client from configuration.
func NewHTTPBackend(cfg config.Config, logger *zap.Logger) Backend {
	timeout := cfg.Provisioning.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpBackend{
		baseURL:       strings.TrimRight(cfg.Provisioning.BaseURL, "/"),
		adminUser:     cfg.Provisioning.AdminUser,
		adminPassword: cfg.Provisioning.AdminPassword,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger.Named("provisioning"),
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (b *httpBackend) CreateAccount(ctx context.Context, req CreateRequest) (string, error) {
	payload := map[string]any{
		"username":    req.Username,
		"displayName": req.DisplayName,
		"email":       req.Email,
		"groupName":   req.GroupName,
		"quotaBytes":  req.QuotaBytes,
	}

	data, err := b.call(ctx, http.MethodPost, "/admin/v1/accounts", payload)
	if err != nil {
		return "", fmt.Errorf("provisioning: create account: %w", err)
	}

	var created struct {
		GroupName string `json:"groupName"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return "", fmt.Errorf("provisioning: decode create response: %w", err)
	}
	if created.GroupName == "" {
		return "", fmt.Errorf("provisioning: create account: response missing groupName")
	}

	b.logger.Info("provisioning.account.created",
		zap.String("group", created.GroupName),
		zap.String("username", req.Username),
	)
	return created.GroupName, nil
}

func (b *httpBackend) EnableAccount(ctx context.Context, group string) error {
	_, err := b.call(ctx, http.MethodPost, "/admin/v1/accounts/"+url.PathEscape(group)+"/enable", nil)
	if err != nil {
		return fmt.Errorf("provisioning: enable account %s: %w", group, err)
	}
	b.logger.Info("provisioning.account.enabled", zap.String("group", group))
	return nil
}

func (b *httpBackend) DisableAccount(ctx context.Context, group string) error {
	_, err := b.call(ctx, http.MethodPost, "/admin/v1/accounts/"+url.PathEscape(group)+"/disable", nil)
	if err != nil {
		return fmt.Errorf("provisioning: disable account %s: %w", group, err)
	}
	b.logger.Info("provisioning.account.disabled", zap.String("group", group))
	return nil
}

func (b *httpBackend) DeleteAccount(ctx context.Context, group string) error {
	_, err := b.call(ctx, http.MethodDelete, "/admin/v1/accounts/"+url.PathEscape(group), nil)
	if err != nil {
		return fmt.Errorf("provisioning: delete account %s: %w", group, err)
	}
	b.logger.Info("provisioning.account.deleted", zap.String("group", group))
	return nil
}

func (b *httpBackend) ChangeQuota(ctx context.Context, group string, quotaBytes int64) error {
	payload := map[string]any{"quotaBytes": quotaBytes}
	_, err := b.call(ctx, http.MethodPut, "/admin/v1/accounts/"+url.PathEscape(group)+"/quota", payload)
	if err != nil {
		return fmt.Errorf("provisioning: change quota for %s: %w", group, err)
	}
	b.logger.Info("provisioning.quota.changed",
		zap.String("group", group),
		zap.Int64("quota_bytes", quotaBytes),
	)
	return nil
}

func (b *httpBackend) SeatCount(ctx context.Context, group string) (int64, error) {
	data, err := b.call(ctx, http.MethodGet, "/admin/v1/accounts/"+url.PathEscape(group)+"/seats", nil)
	if err != nil {
		return 0, fmt.Errorf("provisioning: seat count for %s: %w", group, err)
	}

	var seats struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(data, &seats); err != nil {
		return 0, fmt.Errorf("provisioning: decode seat count: %w", err)
	}
	return seats.Count, nil
}

func (b *httpBackend) call(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(b.adminUser, b.adminPassword)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("status %d: malformed response", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Status != "ok" {
		reason := env.Message
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, reason)
	}
	return env.Data, nil
}
