package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seaporthq/seaport/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := config.Config{}
	cfg.Marketplace = config.MarketplaceConfig{
		BaseURL:        baseURL,
		InClientID:     "client-id",
		InClientSecret: "client-secret",
		RequestTimeout: 5 * time.Second,
	}
	return NewClient(cfg, zap.NewNop())
}

func tokenHandler(t *testing.T, token string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": token})
	}
}

func TestFetchEvent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, "tok-1"))
	mux.HandleFunc("/events/abc", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(Event{
			Type: EventSubscriptionOrder,
			Payload: Payload{
				Company: Company{Name: "acme"},
				Order:   Order{EditionCode: "M"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	event, err := client.FetchEvent(context.Background(), srv.URL+"/events/abc")
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionOrder, event.Type)
	assert.Equal(t, "acme", event.Payload.Company.Name)
}

func TestFetchEventGone(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, "tok-1"))
	mux.HandleFunc("/events/old", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.FetchEvent(context.Background(), srv.URL+"/events/old")
	assert.ErrorIs(t, err, ErrEventGone)
}

func TestFetchEventUnexpectedStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, "tok-1"))
	mux.HandleFunc("/events/bad", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.FetchEvent(context.Background(), srv.URL+"/events/bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEventGone)
}

func TestSubmitResult(t *testing.T) {
	var received Result
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, "tok-1"))
	mux.HandleFunc("/events/abc/result", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	err := client.SubmitResult(context.Background(), srv.URL+"/events/abc", SuccessResultWithAccount("acme"))
	require.NoError(t, err)
	assert.True(t, received.Success)
	assert.Equal(t, "acme", received.AccountIdentifier)
}

func TestSubmitResultRejectsNon204(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, "tok-1"))
	mux.HandleFunc("/events/abc/result", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	err := client.SubmitResult(context.Background(), srv.URL+"/events/abc", SuccessResult())
	assert.Error(t, err)
}

func TestReportUsage(t *testing.T) {
	var received struct {
		Account struct {
			AccountIdentifier string `json:"accountIdentifier"`
		} `json:"account"`
		Items []struct {
			Unit     string `json:"unit"`
			Quantity int64  `json:"quantity"`
		} `json:"items"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", tokenHandler(t, "tok-1"))
	mux.HandleFunc("/api/integration/v1/billing/usage", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	require.NoError(t, client.ReportUsage(context.Background(), "acme", 2))

	assert.Equal(t, "acme", received.Account.AccountIdentifier)
	require.Len(t, received.Items, 1)
	assert.Equal(t, UsageUnitAdditionalUser, received.Items[0].Unit)
	assert.Equal(t, int64(2), received.Items[0].Quantity)
}

func TestExpiredTokenIsRefreshedOnce(t *testing.T) {
	tokens := []string{"tok-old", "tok-new"}
	issued := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		token := tokens[issued]
		issued++
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": token})
	})
	mux.HandleFunc("/events/abc", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-new" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(Event{Type: EventSubscriptionCancel})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	event, err := client.FetchEvent(context.Background(), srv.URL+"/events/abc")
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionCancel, event.Type)
	assert.Equal(t, 2, issued)
}
