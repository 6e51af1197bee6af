package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalhouse/dispatch/internal/config"
	"github.com/signalhouse/dispatch/internal/domain"
)

// newPushGateway answers per token: "gone-*" tokens get 410, "flaky-*"
// tokens 500, everything else 200.
func newPushGateway(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload pushPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}

		switch {
		case payload.Token == "gone-token":
			http.Error(w, "unregistered", http.StatusGone)
		case payload.Token == "flaky-token":
			http.Error(w, "try later", http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
}

func pushRecipient(tokens ...string) domain.Recipient {
	r := domain.Recipient{UserID: "user-1"}
	for _, token := range tokens {
		r.Tokens = append(r.Tokens, domain.DeviceToken{UserID: "user-1", Token: token, IsActive: true})
	}
	return r
}

func TestPushAdapter_Send(t *testing.T) {
	server := newPushGateway(t)
	defer server.Close()

	adapter := NewPushAdapter(config.PushConfig{GatewayURL: server.URL, Timeout: 5 * time.Second})
	msg := domain.Message{Title: "hi", Body: "there"}

	t.Run("all tokens delivered", func(t *testing.T) {
		err := adapter.Send(context.Background(), pushRecipient("tok-a", "tok-b", "tok-c"), msg)
		assert.NoError(t, err)
	})

	t.Run("no tokens", func(t *testing.T) {
		err := adapter.Send(context.Background(), domain.Recipient{UserID: "user-1"}, msg)
		assert.ErrorIs(t, err, domain.ErrRecipientMissing)
	})

	t.Run("unregistered token is permanent and reported", func(t *testing.T) {
		err := adapter.Send(context.Background(), pushRecipient("gone-token"), msg)

		var adapterErr *domain.AdapterError
		require.ErrorAs(t, err, &adapterErr)
		assert.False(t, adapterErr.Retryable)
		assert.Equal(t, domain.CodeAdapterPermanent, adapterErr.Code)
		assert.Equal(t, []string{"gone-token"}, adapterErr.Tokens)
	})

	t.Run("gateway error is transient", func(t *testing.T) {
		err := adapter.Send(context.Background(), pushRecipient("flaky-token"), msg)

		var adapterErr *domain.AdapterError
		require.ErrorAs(t, err, &adapterErr)
		assert.True(t, adapterErr.Retryable)
		assert.Equal(t, domain.CodeAdapterTransient, adapterErr.Code)
	})

	t.Run("mixed outcome stays retryable but reports dead tokens", func(t *testing.T) {
		err := adapter.Send(context.Background(), pushRecipient("tok-a", "gone-token", "flaky-token"), msg)

		var adapterErr *domain.AdapterError
		require.ErrorAs(t, err, &adapterErr)
		assert.True(t, adapterErr.Retryable)
		assert.Equal(t, []string{"gone-token"}, adapterErr.Tokens)
	})
}

func TestPushAdapter_UnreachableGateway(t *testing.T) {
	adapter := NewPushAdapter(config.PushConfig{GatewayURL: "http://127.0.0.1:1", Timeout: time.Second})

	err := adapter.Send(context.Background(), pushRecipient("tok-a"), domain.Message{Title: "hi"})

	var adapterErr *domain.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.True(t, adapterErr.Retryable)
}
