package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := newHTTPClient(Config{
		Endpoint: server.URL,
		APIKey:   "test-key",
		Timeout:  timeout,
	})
	require.NoError(t, err)

	return client, server
}

func TestHTTPClient_Classify(t *testing.T) {
	t.Run("successful classification", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req classifyRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Electricity Bill Payment", req.Description)
			assert.Equal(t, "Monthly power", req.Explanation)

			_ = json.NewEncoder(w).Encode(classifyResponse{
				Account:    "Utilities",
				Confidence: 0.92,
				Rationale:  "power utility payment",
			})
		}, 0)

		got, err := client.Classify(context.Background(), Request{
			Description: "Electricity Bill Payment",
			Explanation: "Monthly power",
		})
		require.NoError(t, err)
		assert.Equal(t, "Utilities", got.AccountID)
		assert.InDelta(t, 0.92, got.Confidence, 1e-9)
		assert.Equal(t, "power utility payment", got.Rationale)
	})

	t.Run("rejected credential is unauthorized", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}, 0)

		_, err := client.Classify(context.Background(), Request{Description: "x"})
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindUnauthorized, kind)
	})

	t.Run("server error is unavailable", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, 0)

		_, err := client.Classify(context.Background(), Request{Description: "x"})
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindUnavailable, kind)
	})

	t.Run("malformed JSON is unavailable", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}, 0)

		_, err := client.Classify(context.Background(), Request{Description: "x"})
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindUnavailable, kind)
	})

	t.Run("missing account is unavailable", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(classifyResponse{Confidence: 0.9})
		}, 0)

		_, err := client.Classify(context.Background(), Request{Description: "x"})
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindUnavailable, kind)
	})

	t.Run("timeout is unavailable", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_ = json.NewEncoder(w).Encode(classifyResponse{Account: "Utilities"})
		}, 20*time.Millisecond)

		_, err := client.Classify(context.Background(), Request{Description: "x"})
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindUnavailable, kind)
	})

	t.Run("confidence is clamped into range", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(classifyResponse{Account: "Utilities", Confidence: 1.7})
		}, 0)

		got, err := client.Classify(context.Background(), Request{Description: "x"})
		require.NoError(t, err)
		assert.Equal(t, 1.0, got.Confidence)
	})
}

func TestNewHTTPClient_Validation(t *testing.T) {
	_, err := newHTTPClient(Config{APIKey: "key"})
	assert.Error(t, err)

	_, err = newHTTPClient(Config{Endpoint: "http://localhost"})
	assert.Error(t, err)
}
