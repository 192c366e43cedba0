package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairchance/notification-service/internal/domain/broadcast"
	"github.com/fairchance/notification-service/internal/domain/shared"
)

func testMessage() broadcast.Message {
	return broadcast.Message{
		Title: "You have been selected!",
		Body:  "Congratulations!",
		Data:  map[string]string{"eventId": "ev1"},
	}
}

func TestClient_SendMulticast(t *testing.T) {
	var got multicastRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages:multicast", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(multicastResponse{SuccessCount: 2, FailureCount: 1})
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL)
	cfg.APIKey = "secret"
	client := NewClient(cfg)

	result, err := client.SendMulticast(context.Background(), testMessage(), []string{"t1", "t2", "t3"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	assert.Equal(t, "You have been selected!", got.Title)
	assert.Equal(t, []string{"t1", "t2", "t3"}, got.Tokens)
	assert.Equal(t, "ev1", got.Data["eventId"])
}

func TestClient_SendMulticastBatches(t *testing.T) {
	var batchSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req multicastRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batchSizes = append(batchSizes, len(req.Tokens))
		_ = json.NewEncoder(w).Encode(multicastResponse{SuccessCount: len(req.Tokens)})
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL)
	cfg.MaxTokensPerCall = 2
	client := NewClient(cfg)

	tokens := []string{"t1", "t2", "t3", "t4", "t5"}
	result, err := client.SendMulticast(context.Background(), testMessage(), tokens)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2, 1}, batchSizes)
	assert.Equal(t, 5, result.SuccessCount)
	assert.Equal(t, 0, result.FailureCount)
}

func TestClient_SendMulticastGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(DefaultConfig(server.URL))

	_, err := client.SendMulticast(context.Background(), testMessage(), []string{"t1"})
	require.Error(t, err)
	assert.True(t, shared.IsGatewayFailure(err))
}

func TestClient_SendMulticastFailedChunkFailsWholeSend(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(multicastResponse{SuccessCount: 1})
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL)
	cfg.MaxTokensPerCall = 1
	client := NewClient(cfg)

	result, err := client.SendMulticast(context.Background(), testMessage(), []string{"t1", "t2", "t3"})
	require.Error(t, err)
	assert.True(t, shared.IsGatewayFailure(err))

	// The caller treats the invocation as failed; partial counts are not
	// reported back.
	assert.Zero(t, result.SuccessCount)
	assert.Equal(t, 2, calls)
}

func TestClient_IsHealthy(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	client := NewClient(DefaultConfig(server.URL))

	assert.True(t, client.IsHealthy(context.Background()))

	healthy = false
	assert.False(t, client.IsHealthy(context.Background()))
}
