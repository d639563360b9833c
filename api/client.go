package api

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"cosmossdk.io/log"
	"github.com/gorilla/websocket"

	"github.com/openalpha/cardex/engine"
	"github.com/openalpha/cardex/metrics"
	"github.com/openalpha/cardex/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send buffer
	sendBufferSize = 256
)

var (
	errSendBufferFull = errors.New("send buffer full")
	errClientClosed   = errors.New("connection closed")
)

// Client is one WebSocket connection. The engine and the rooms address it
// through protocol.Sink; outbound frames pass through a buffered channel so
// a slow peer never blocks the engine's consumer.
type Client struct {
	id     string
	engine *engine.Engine
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	logger log.Logger

	closeOnce sync.Once

	connectedAt time.Time
}

// newClient wraps an upgraded connection.
func newClient(id string, eng *engine.Engine, conn *websocket.Conn, logger log.Logger) *Client {
	return &Client{
		id:          id,
		engine:      eng,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
		logger:      logger.With("conn", id),
		connectedAt: time.Now(),
	}
}

// ID returns the connection's identifier.
func (c *Client) ID() string { return c.id }

// Send implements protocol.Sink. A closed connection or a full buffer
// counts as a dead recipient: the caller drops this sink and the player
// catches up on reconnect. Rooms may hold this sink past close, so the send
// channel is never closed; writePump exits on done instead.
func (c *Client) Send(msg protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return errClientClosed
	case c.send <- data:
		metrics.GetCollector().RecordWSMessage("out")
		return nil
	default:
		return errSendBufferFull
	}
}

// close detaches the client from the engine and closes the socket once.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.engine.Detach(c)
		metrics.GetCollector().RecordWSConnection(-1)
		_ = c.conn.Close()
		c.logger.Debug("connection closed", "duration", time.Since(c.connectedAt))
	})
}

// readPump feeds inbound frames into the engine queue until the peer hangs up.
func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket error", "err", err)
			}
			return
		}
		metrics.GetCollector().RecordWSMessage("in")
		c.engine.Submit(message, c)
	}
}

// writePump drains the send buffer to the socket and keeps the peer alive
// with pings. Queued frames are coalesced into one websocket message.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				_, _ = w.Write([]byte{'\n'})
				_, _ = w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
