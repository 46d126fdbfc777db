package worker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepanel/src/eventmodels"
)

type streamServer struct {
	*httptest.Server

	mu     sync.Mutex
	frames []map[string]interface{}
	conns  []*websocket.Conn
}

// newStreamServer accepts websocket upgrades, records every inbound
// frame and keeps the connections around so tests can push frames back.
func newStreamServer(t *testing.T) *streamServer {
	t.Helper()

	server := &streamServer{}
	upgrader := websocket.Upgrader{}

	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		server.mu.Lock()
		server.conns = append(server.conns, conn)
		server.mu.Unlock()

		for {
			var frame map[string]interface{}
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}

			server.mu.Lock()
			server.frames = append(server.frames, frame)
			server.mu.Unlock()
		}
	}))

	t.Cleanup(server.Close)

	return server
}

func (s *streamServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *streamServer) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.frames)
}

func (s *streamServer) frame(i int) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.frames[i]
}

func (s *streamServer) push(t *testing.T, msg interface{}) {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	require.NotEmpty(t, s.conns)
	require.Nil(t, s.conns[len(s.conns)-1].WriteJSON(msg))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(2 * time.Millisecond)
	}

	t.Fatal("condition not met in time")
}

func TestStreamClientConnect(t *testing.T) {
	server := newStreamServer(t)

	account := eventmodels.AccountRef{PersistentID: "acct-1", TransportID: "tr-1"}
	client := NewStreamClient(server.wsURL(), "secret", account)

	connected := make(chan struct{}, 1)
	client.OnConnect(func() {
		connected <- struct{}{}
	})

	require.Nil(t, client.Connect())
	defer client.Close()

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("connect event never fired")
	}

	// The first frame authenticates with the persistent identifier.
	waitFor(t, time.Second, func() bool { return server.frameCount() == 1 })

	auth := server.frame(0)
	assert.Equal(t, "auth", auth["event"])

	data := auth["data"].(map[string]interface{})
	assert.Equal(t, "secret", data["credential"])
	assert.Equal(t, "acct-1", data["accountId"])
}

func TestStreamClientConnectFailure(t *testing.T) {
	client := NewStreamClient("ws://127.0.0.1:1", "secret", eventmodels.AccountRef{PersistentID: "acct-1"})

	err := client.Connect()

	var transportErr *eventmodels.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestStreamClientMessages(t *testing.T) {
	server := newStreamServer(t)

	client := NewStreamClient(server.wsURL(), "secret", eventmodels.AccountRef{PersistentID: "acct-1", TransportID: "tr-1"})

	received := make(chan eventmodels.StreamMessageDTO, 4)
	client.OnMessage(func(msg eventmodels.StreamMessageDTO) {
		received <- msg
	})

	require.Nil(t, client.Connect())
	defer client.Close()

	waitFor(t, time.Second, func() bool { return server.frameCount() == 1 })

	server.push(t, map[string]interface{}{
		"event": "equity-balance",
		"data":  map[string]interface{}{"accountId": "tr-1", "equity": 1100.0, "balance": 1050.0},
	})

	var msg eventmodels.StreamMessageDTO
	select {
	case msg = <-received:
	case <-time.After(time.Second):
		t.Fatal("message event never fired")
	}

	assert.Equal(t, "equity-balance", msg.Event)

	var dto eventmodels.EquityBalanceDTO
	require.Nil(t, json.Unmarshal(msg.Data, &dto))
	assert.Equal(t, "tr-1", dto.AccountID)
	assert.Equal(t, 1100.0, dto.Equity)
}

func TestStreamClientOutbound(t *testing.T) {
	server := newStreamServer(t)

	client := NewStreamClient(server.wsURL(), "secret", eventmodels.AccountRef{PersistentID: "acct-1", TransportID: "tr-1"})
	require.Nil(t, client.Connect())
	defer client.Close()

	waitFor(t, time.Second, func() bool { return server.frameCount() == 1 })

	lotSize := 0.1
	req := &eventmodels.PlaceOrderRequest{
		AccountID:  "acct-1",
		Symbol:     "EURUSD",
		EntryType:  eventmodels.EntryTypeBuy,
		LotSize:    &lotSize,
		StopLoss:   1.1,
		TakeProfit: eventmodels.TakeProfitValues{1.2},
		OrderType:  eventmodels.OrderTypeMarket,
	}

	require.Nil(t, client.VerifyOrder(req))
	waitFor(t, time.Second, func() bool { return server.frameCount() == 2 })

	frame := server.frame(1)
	assert.Equal(t, "verifyOrder", frame["event"])

	data := frame["data"].(map[string]interface{})
	assert.Equal(t, "acct-1", data["accountId"])
	assert.Equal(t, "EURUSD", data["symbol"])
	// A single take profit travels as a scalar.
	assert.Equal(t, 1.2, data["takeProfit"])

	require.Nil(t, client.PlaceOrder(req))
	waitFor(t, time.Second, func() bool { return server.frameCount() == 3 })
	assert.Equal(t, "placeOrder", server.frame(2)["event"])
}

func TestStreamClientClose(t *testing.T) {
	server := newStreamServer(t)

	client := NewStreamClient(server.wsURL(), "secret", eventmodels.AccountRef{PersistentID: "acct-1", TransportID: "tr-1"})

	received := make(chan eventmodels.StreamMessageDTO, 4)
	client.OnMessage(func(msg eventmodels.StreamMessageDTO) {
		received <- msg
	})

	require.Nil(t, client.Connect())
	waitFor(t, time.Second, func() bool { return server.frameCount() == 1 })

	require.Nil(t, client.Close())

	// Listeners are gone: a frame pushed after close must not reach the
	// handler even if it is still in flight on the socket. The write may
	// itself fail since the peer is gone.
	server.mu.Lock()
	conn := server.conns[len(server.conns)-1]
	server.mu.Unlock()
	conn.WriteJSON(map[string]interface{}{"event": "live-data", "data": map[string]interface{}{"accountId": "tr-1"}})

	select {
	case <-received:
		t.Fatal("handler fired after close")
	case <-time.After(50 * time.Millisecond):
	}

	// Writes after close fail fast.
	var transportErr *eventmodels.TransportError
	assert.ErrorAs(t, client.VerifyOrder(&eventmodels.PlaceOrderRequest{}), &transportErr)

	// Close is idempotent.
	assert.Nil(t, client.Close())
}
