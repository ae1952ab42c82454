package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"autotrader/src/broadcast"
	"autotrader/src/model"
	"autotrader/src/portfolio"
	"autotrader/src/security"
	"autotrader/src/strategy"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStatus struct{}

func (stubStatus) Status(context.Context) portfolio.Status {
	return portfolio.Status{TradingEnabled: true, TargetSymbols: []string{"005930"}}
}

type stubExceptions struct{}

func (stubExceptions) Latest(context.Context, int) ([]model.Exception, error) {
	return []model.Exception{{Module: "controller", Method: "Tick"}}, nil
}

type stubBot struct{ enabled bool }

func (b *stubBot) TradingEnabled() bool                      { return b.enabled }
func (b *stubBot) SetTradingEnabled(on bool)                 { b.enabled = on }
func (b *stubBot) LiquidateAll(context.Context) (int, error) { return 0, nil }

func newTestServer(t *testing.T, adminHash string) (*httptest.Server, *Hub, *stubBot) {
	t.Helper()
	hub := NewHub(nil, nil)
	bot := &stubBot{}
	cfg := &Config{Port: "0", CorsOrigins: []string{"http://localhost:5173"}}
	srv := httptest.NewServer(NewRouter(Deps{
		Status:     stubStatus{},
		Strategies: strategy.DefaultRegistry(),
		Bot:        bot,
		Exceptions: stubExceptions{},
		Hub:        hub,
	}, cfg, adminHash))
	t.Cleanup(srv.Close)
	return srv, hub, bot
}

func TestHealthcheck(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/healthcheck")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusIsPublic(t *testing.T) {
	hash, err := security.HashToken("s3cret")
	require.NoError(t, err)
	srv, _, _ := newTestServer(t, hash)

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{"005930"}, body["target_symbols"])
}

func TestControlRoutesRequireToken(t *testing.T) {
	hash, err := security.HashToken("s3cret")
	require.NoError(t, err)
	srv, _, bot := newTestServer(t, hash)

	resp, err := http.Post(srv.URL+"/api/bot/start", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, bot.enabled)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/bot/start", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bot.enabled)
}

func TestExceptionsRequireToken(t *testing.T) {
	hash, err := security.HashToken("s3cret")
	require.NoError(t, err)
	srv, _, _ := newTestServer(t, hash)

	resp, err := http.Get(srv.URL + "/api/exceptions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/exceptions", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"Tick"`)
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWebsocket_InitialStatusAndPing(t *testing.T) {
	srv, _, _ := newTestServer(t, "")
	conn := dialWS(t, srv)

	var first broadcast.Message
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, broadcast.TypeStatusUpdate, first.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(data))
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	srv, hub, _ := newTestServer(t, "")
	conn := dialWS(t, srv)

	var first broadcast.Message
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, 1, hub.Clients())

	require.NoError(t, hub.Broadcast(map[string]string{"type": broadcast.TypeTradeEvent}))

	var got map[string]string
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, broadcast.TypeTradeEvent, got["type"])
}

func TestHub_DropsClosedClients(t *testing.T) {
	srv, hub, _ := newTestServer(t, "")
	conn := dialWS(t, srv)

	var first broadcast.Message
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStartServer_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- StartServer(ctx, "0", http.NotFoundHandler()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(7 * time.Second):
		t.Fatal("server did not shut down")
	}
}
