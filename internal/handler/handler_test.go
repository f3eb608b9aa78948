package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"serial-relay/internal/channel"
	"serial-relay/internal/config"
	"serial-relay/internal/discovery"
	"serial-relay/internal/model"
	"serial-relay/internal/relay"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "serial-relay", Version: "test", Environment: "test"},
		Relay: config.RelayConfig{
			Receive:  config.ChannelConfig{Port: "/dev/ttyUSB0"},
			Transmit: config.ChannelConfig{Port: "/dev/ttyUSB1"},
		},
	}
}

func newTestRelay(t *testing.T) (*relay.Relay, *channel.MockChannel, *channel.MockChannel) {
	t.Helper()
	rx := channel.NewMockChannel("rx", nil)
	tx := channel.NewMockChannel("tx", nil)
	require.NoError(t, rx.Configure(channel.Settings{BaudRate: 9600, StopBits: channel.StopBitsOne, Mode: channel.ModeRx}))
	require.NoError(t, tx.Configure(channel.Settings{BaudRate: 115200, StopBits: channel.StopBitsOne, Mode: channel.ModeTx}))
	r, err := relay.New(rx, tx, relay.Options{EnforceTiming: true})
	require.NoError(t, err)
	return r, rx, tx
}

func get(t *testing.T, h gin.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.GET(strings.Split(target, "?")[0], h)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHealthHandler(t *testing.T) {
	r, _, _ := newTestRelay(t)
	h := NewHealthHandler(r, testConfig(), zap.NewNop())

	w := get(t, h.HealthCheck, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "serial-relay", health.Service)

	w = get(t, h.ReadinessCheck, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	require.NoError(t, r.Start())

	w = get(t, h.HealthCheck, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Checks["relay"].Status)

	assert.Equal(t, http.StatusOK, get(t, h.ReadinessCheck, "/ready").Code)
	assert.Equal(t, http.StatusOK, get(t, h.LivenessCheck, "/live").Code)
}

func TestRelayHandlerStatus(t *testing.T) {
	r, rx, tx := newTestRelay(t)
	cfg := testConfig()
	h := NewRelayHandler(r, rx, tx, &cfg.Relay, nil, zap.NewNop())

	require.NoError(t, r.Start())
	rx.Feed(make([]byte, relay.BlockSize))

	w := get(t, h.GetStatus, "/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	var status struct {
		Running  bool `json:"running"`
		Snapshot struct {
			Roles    []string `json:"roles"`
			Filling  int      `json:"filling"`
			Draining int      `json:"draining"`
		} `json:"snapshot"`
		Receive  model.ChannelStatus `json:"receive"`
		Transmit model.ChannelStatus `json:"transmit"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.True(t, status.Running)
	assert.Equal(t, []string{"draining", "filling"}, status.Snapshot.Roles)
	assert.Equal(t, 1, status.Snapshot.Filling)
	assert.Equal(t, 0, status.Snapshot.Draining)
	assert.Equal(t, "/dev/ttyUSB0", status.Receive.Port)
	assert.Equal(t, "rx", status.Receive.Mode)
	assert.Equal(t, "transferring", status.Receive.State)
	assert.EqualValues(t, 115200, status.Transmit.BaudRate)
}

func TestRelayHandlerStats(t *testing.T) {
	r, rx, tx := newTestRelay(t)
	cfg := testConfig()
	bus := NewEventBus(1, zap.NewNop())
	h := NewRelayHandler(r, rx, tx, &cfg.Relay, bus, zap.NewNop())

	require.NoError(t, r.Start())
	rx.Feed(make([]byte, relay.BlockSize))
	tx.CompleteSend()

	bus.Observe(relay.Event{Type: relay.EventBlockRelayed})
	bus.Observe(relay.Event{Type: relay.EventBlockRelayed})

	w := get(t, h.GetStats, "/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var stats struct {
		Relay         relay.Stats `json:"relay"`
		BlockSize     int         `json:"block_size"`
		Policy        string      `json:"overrun_policy"`
		EventsDropped int64       `json:"events_dropped"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.EqualValues(t, 1, stats.Relay.BlocksSent)
	assert.EqualValues(t, relay.BlockSize, stats.Relay.BytesSent)
	assert.Equal(t, relay.BlockSize, stats.BlockSize)
	assert.Equal(t, "block", stats.Policy)
	assert.EqualValues(t, 1, stats.EventsDropped)
}

func TestRelayHandlerTiming(t *testing.T) {
	r, rx, tx := newTestRelay(t)
	cfg := testConfig()
	h := NewRelayHandler(r, rx, tx, &cfg.Relay, nil, zap.NewNop())

	w := get(t, h.GetTiming, "/timing")
	require.Equal(t, http.StatusOK, w.Code)
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var timing struct {
		Receive  float64 `json:"receive_transfer_ms"`
		Transmit float64 `json:"transmit_transfer_ms"`
		Headroom float64 `json:"headroom_ms"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &timing))
	assert.Greater(t, timing.Receive, timing.Transmit)
	assert.InDelta(t, timing.Receive-timing.Transmit, timing.Headroom, 1e-9)

	slowTx := channel.NewMockChannel("tx", nil)
	require.NoError(t, slowTx.Configure(channel.Settings{BaudRate: 4800, StopBits: channel.StopBitsOne, Mode: channel.ModeTx}))
	h = NewRelayHandler(r, rx, slowTx, &cfg.Relay, nil, zap.NewNop())

	w = get(t, h.GetTiming, "/timing")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"TIMING_VIOLATION"`)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"timing", &relay.TimingError{}, http.StatusConflict, "TIMING_VIOLATION"},
		{"overrun", fmt.Errorf("block 3: %w", relay.ErrOverrun), http.StatusConflict, "OVERRUN"},
		{"config", &channel.ConfigError{Field: "baud_rate"}, http.StatusBadRequest, "CHANNEL_CONFIG"},
		{"busy", channel.ErrChannelBusy, http.StatusConflict, "CHANNEL_BUSY"},
		{"disabled", channel.ErrNotEnabled, http.StatusServiceUnavailable, "CHANNEL_UNAVAILABLE"},
		{"closed", channel.ErrClosed, http.StatusServiceUnavailable, "CHANNEL_UNAVAILABLE"},
		{"transfer", &channel.TransferError{Channel: "rx", Err: errors.New("framing")}, http.StatusBadGateway, "TRANSFER_ERROR"},
		{"scanner", fmt.Errorf("%w: usb", discovery.ErrScannerNotFound), http.StatusBadRequest, "SCANNER_NOT_FOUND"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

type stubScanner struct {
	ports []*discovery.DiscoveredPort
	err   error
}

func (s *stubScanner) Scan(context.Context) ([]*discovery.DiscoveredPort, error) {
	return s.ports, s.err
}
func (s *stubScanner) GetScannerType() string { return "serial" }
func (s *stubScanner) IsAvailable() bool      { return true }

func TestDiscoveryHandler(t *testing.T) {
	scanners := discovery.NewScannerManager(zap.NewNop())
	scanners.RegisterScanner(&stubScanner{ports: []*discovery.DiscoveredPort{
		{Name: "/dev/ttyUSB1"}, {Name: "/dev/ttyUSB0"}, {Name: "/dev/ttyS0"},
	}})
	cfg := testConfig()
	h := NewDiscoveryHandler(scanners, &cfg.Relay, zap.NewNop())

	w := get(t, h.ListPorts, "/ports")
	require.Equal(t, http.StatusOK, w.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	var data struct {
		PortsFound int                         `json:"ports_found"`
		Ports      []*discovery.DiscoveredPort `json:"ports"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Equal(t, 3, data.PortsFound)
	assert.Equal(t, "/dev/ttyS0", data.Ports[0].Name)
	assert.Empty(t, data.Ports[0].Role)
	assert.Equal(t, discovery.RoleReceive, data.Ports[1].Role)
	assert.Equal(t, discovery.RoleTransmit, data.Ports[2].Role)

	w = get(t, h.ListPorts, "/ports?type=bluetooth")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"SCANNER_NOT_FOUND"`)
	assert.Equal(t, http.StatusOK, get(t, h.ListScanners, "/scanners").Code)
}

func TestDiscoveryHandlerScannerFailure(t *testing.T) {
	scanners := discovery.NewScannerManager(zap.NewNop())
	scanners.RegisterScanner(&stubScanner{err: errors.New("enumeration failed")})
	cfg := testConfig()
	h := NewDiscoveryHandler(scanners, &cfg.Relay, zap.NewNop())

	w := get(t, h.ListPorts, "/ports?type=serial")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"INTERNAL_SERVER_ERROR"`)

	w = get(t, h.ListPorts, "/ports")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ports_found":0`)
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus(8, zap.NewNop())
	id, events := bus.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Start(ctx)

	bus.Observe(relay.Event{Type: relay.EventOverrun, Channel: "rx", Sequence: 9})

	select {
	case e := <-events:
		assert.Equal(t, relay.EventOverrun, e.EventType)
		assert.EqualValues(t, 9, e.Sequence)
		assert.Equal(t, model.SeverityWarning, e.Severity)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	bus.Unsubscribe(id)
	_, ok := <-events
	assert.False(t, ok, "stream closed after unsubscribe")
	bus.Unsubscribe(id)
}

func TestWebSocketEventStream(t *testing.T) {
	bus := NewEventBus(16, zap.NewNop())
	ws := NewWebSocketHandler(bus, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Start(ctx)
	go ws.Start(ctx)

	router := gin.New()
	router.GET("/ws/events", ws.HandleEventConnection)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() WebSocketMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg WebSocketMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	assert.Equal(t, "welcome", read().Type)

	require.NoError(t, conn.WriteJSON(WebSocketMessage{
		Type: "subscribe",
		Data: map[string]interface{}{"topic": string(relay.EventBlockRelayed)},
	}))
	assert.Equal(t, "subscribe_confirmed", read().Type)

	require.Eventually(t, func() bool {
		bus.mutex.RLock()
		defer bus.mutex.RUnlock()
		return len(bus.subscribers) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, ws.GetConnectionStats().TotalConnections)

	bus.Observe(relay.Event{Type: relay.EventOverrun})
	bus.Observe(relay.Event{Type: relay.EventBlockRelayed, Channel: "tx", Sequence: 3, Bytes: relay.BlockSize})

	msg := read()
	require.Equal(t, "relay_event", msg.Type)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(relay.EventBlockRelayed), data["event_type"])
	assert.EqualValues(t, 3, data["sequence"])

	require.NoError(t, conn.WriteJSON(WebSocketMessage{Type: "ping"}))
	assert.Equal(t, "pong", read().Type)
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, originAllowed("", []string{"http://a"}))
	assert.True(t, originAllowed("http://b", nil))
	assert.True(t, originAllowed("http://a", []string{"http://a"}))
	assert.True(t, originAllowed("http://b", []string{"*"}))
	assert.False(t, originAllowed("http://b", []string{"http://a"}))
}
