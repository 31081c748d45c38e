package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppSenderPostsTextPayload(t *testing.T) {
	var gotAuth string
	var gotPath string
	var gotBody waTextPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"messages":[{"id":"wamid.X"}]}`))
	}))
	defer srv.Close()

	sender := NewWhatsAppSender(srv.URL, "token-123", "5550001", nil)
	err := sender.SendText(context.Background(), "+54 9 11 5555-0000", "Hola")
	require.NoError(t, err)

	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, "/5550001/messages", gotPath)
	assert.Equal(t, "whatsapp", gotBody.MessagingProduct)
	assert.Equal(t, "5491155550000", gotBody.To)
	assert.Equal(t, "text", gotBody.Type)
	assert.Equal(t, "Hola", gotBody.Text.Body)
}

func TestWhatsAppSenderDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid recipient","code":131026}}`))
	}))
	defer srv.Close()

	sender := NewWhatsAppSender(srv.URL, "token", "id", nil)
	err := sender.SendText(context.Background(), "+5491155550000", "Hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "131026")
	assert.Equal(t, int32(1), calls.Load())
}

func TestWhatsAppSenderRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewWhatsAppSender(srv.URL, "token", "id", nil)
	err := sender.SendText(context.Background(), "+5491155550000", "Hola")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWhatsAppSenderValidatesInput(t *testing.T) {
	sender := NewWhatsAppSender("https://graph.facebook.com/v19.0", "", "", nil)
	assert.Error(t, sender.SendText(context.Background(), "+549115555", "hola"))

	sender = NewWhatsAppSender("https://graph.facebook.com/v19.0", "tok", "id", nil)
	assert.Error(t, sender.SendText(context.Background(), "", "hola"))
	assert.Error(t, sender.SendText(context.Background(), "+549115555", "  "))
}

func TestNormalizeE164(t *testing.T) {
	assert.Equal(t, "+5491155550000", NormalizeE164("+54 9 11 5555-0000"))
	assert.Equal(t, "+5491155550000", NormalizeE164("5491155550000"))
	assert.Equal(t, "", NormalizeE164("  "))
	assert.Equal(t, "", NormalizeE164("abc"))
}
