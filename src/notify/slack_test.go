package notify

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

func TestSend_PostsText(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		got <- body["text"]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSlack(Config{SlackWebhookURL: srv.URL, Timeout: time.Second})
	require.NoError(t, s.Send(context.Background(), "[BUY] 005930 x3"))
	assert.Equal(t, "[BUY] 005930 x3", <-got)
}

func TestSend_ReportsWebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_token", http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewSlack(Config{SlackWebhookURL: srv.URL, Timeout: time.Second})
	err := s.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestNotify_FireAndForget(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		got <- body["text"]
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewSlack(Config{SlackWebhookURL: srv.URL, Timeout: time.Second})
	s.Notify(ctx, "stopped")
	cancel()

	select {
	case text := <-got:
		assert.Equal(t, "stopped", text)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}
}

func TestDisabledSlackIsSilent(t *testing.T) {
	s := NewSlack(Config{})
	assert.False(t, s.Enabled())
	assert.NoError(t, s.Send(context.Background(), "x"))
	s.Notify(context.Background(), "x")

	var nilSlack *Slack
	assert.False(t, nilSlack.Enabled())
}
