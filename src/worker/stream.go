package worker

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kataras/go-events"
	log "github.com/sirupsen/logrus"

	"tradepanel/src/eventmodels"
)

const (
	streamMessageEvent    events.EventName = "message"
	streamConnectEvent    events.EventName = "connect"
	streamDisconnectEvent events.EventName = "disconnect"

	readDeadline = 30 * time.Second
)

type outboundFrameDTO struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// StreamClient is one streaming channel, bound to a single account for
// its whole lifetime. Account switching never rebinds a client; the
// session tears the old one down and opens a fresh one.
type StreamClient struct {
	url        string
	credential string
	account    eventmodels.AccountRef
	emitter    events.EventEmmiter

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewStreamClient(url string, credential string, account eventmodels.AccountRef) *StreamClient {
	return &StreamClient{
		url:        url,
		credential: credential,
		account:    account,
		emitter:    events.New(),
	}
}

func (c *StreamClient) Account() eventmodels.AccountRef {
	return c.account
}

func (c *StreamClient) dial() (*websocket.Conn, error) {
	log.Infof("connecting to %s", c.url)

	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return nil, err
	}

	if conn == nil {
		return nil, fmt.Errorf("stream: failed to connect to websocket server: connection is nil")
	}

	auth := outboundFrameDTO{
		Event: "auth",
		Data: eventmodels.StreamAuthDTO{
			Credential: c.credential,
			AccountID:  c.account.PersistentID,
		},
	}

	if err := conn.WriteJSON(auth); err != nil {
		return nil, fmt.Errorf("stream: connect: failed to write auth frame: %w", err)
	}

	return conn, nil
}

// Connect dials the channel, authenticates against the bound account
// and starts the read loop. Reconnection is handled inside the loop;
// listeners installed on the emitter stay installed across reconnects.
func (c *StreamClient) Connect() error {
	conn, err := c.dial()
	if err != nil {
		return eventmodels.NewTransportError("StreamClient.Connect", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.emitter.Emit(streamConnectEvent)

	go c.readLoop()

	return nil
}

func (c *StreamClient) readLoop() {
	for {
		c.mu.Lock()
		conn, closed := c.conn, c.closed
		c.mu.Unlock()

		if closed {
			return
		}

		conn.SetReadDeadline(time.Now().UTC().Add(readDeadline))
		_, message, err := conn.ReadMessage()

		if err != nil {
			if c.isClosed() {
				return
			}

			log.Errorf("StreamClient.readLoop: ReadMessage: %v", err)
			c.emitter.Emit(streamDisconnectEvent)

			newConn, dialErr := c.dial()
			if dialErr != nil {
				log.Errorf("StreamClient.readLoop: failed to reconnect: %v", dialErr)
				time.Sleep(time.Second)
				continue
			}

			if closeErr := conn.Close(); closeErr != nil {
				log.Errorf("StreamClient.readLoop: error closing old connection: %v", closeErr)
			}

			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				newConn.Close()
				return
			}
			c.conn = newConn
			c.mu.Unlock()

			c.emitter.Emit(streamConnectEvent)
			continue
		}

		var msg eventmodels.StreamMessageDTO
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Errorf("StreamClient.readLoop: failed to unmarshal frame: %v", err)
			continue
		}

		c.emitter.Emit(streamMessageEvent, msg)
	}
}

func (c *StreamClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// OnMessage installs the single inbound dispatch handler. All event
// routing, including the transport-id guard, lives in that handler.
func (c *StreamClient) OnMessage(fn func(msg eventmodels.StreamMessageDTO)) {
	c.emitter.On(streamMessageEvent, func(payload ...interface{}) {
		if len(payload) == 0 {
			return
		}

		msg, ok := payload[0].(eventmodels.StreamMessageDTO)
		if !ok {
			return
		}

		fn(msg)
	})
}

func (c *StreamClient) OnConnect(fn func()) {
	c.emitter.On(streamConnectEvent, func(payload ...interface{}) {
		fn()
	})
}

func (c *StreamClient) OnDisconnect(fn func()) {
	c.emitter.On(streamDisconnectEvent, func(payload ...interface{}) {
		fn()
	})
}

func (c *StreamClient) write(event string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn == nil {
		return eventmodels.NewTransportError("StreamClient.write", fmt.Errorf("channel is closed"))
	}

	if err := c.conn.WriteJSON(outboundFrameDTO{Event: event, Data: data}); err != nil {
		return eventmodels.NewTransportError("StreamClient.write", err)
	}

	return nil
}

func (c *StreamClient) VerifyOrder(req *eventmodels.PlaceOrderRequest) error {
	return c.write(eventmodels.StreamEventVerifyOrder, req)
}

func (c *StreamClient) PlaceOrder(req *eventmodels.PlaceOrderRequest) error {
	return c.write(eventmodels.StreamEventPlaceOrder, req)
}

// Close tears the channel down synchronously: every listener is removed
// before the socket closes, so a late frame from this channel can never
// be routed into another account's state.
func (c *StreamClient) Close() error {
	c.emitter.Clear()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}
