package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Time allowed to hand an inbound event to the hub
	dispatchWait = 5 * time.Second
)

// Client is one live websocket connection. It owns the read and write pumps
// and implements Conn for the hub and registry.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// Connection state management
	ctx    context.Context
	cancel context.CancelFunc
	closed int32 // atomic flag to track if client is closed
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		id:     uuid.New().String(),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the opaque connection identity, stable for the connection's
// lifetime only.
func (c *Client) ID() string {
	return c.id
}

// Send queues an outbound envelope. Best effort: a closed client or a full
// send buffer drops the envelope and reports an error that callers may log
// and ignore.
func (c *Client) Send(e *Event) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	case <-c.ctx.Done():
		return ErrClientDisconnected
	}
}

// isClosed returns true if the client is closed
func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// close marks the client as closed and cancels the context
func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
		slog.Debug("Client marked as closed", "connID", c.id)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.close()

		// Disconnect cleanup runs through the hub so room membership and
		// the connection record go away together
		c.hub.Unregister(c)

		if err := c.conn.Close(); err != nil {
			slog.Debug("Error closing connection", "connID", c.id, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "connID", c.id, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "connID", c.id, "error", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			// Malformed frames are dropped, never a connection fault
			slog.Debug("Dropping unparseable frame", "connID", c.id, "error", err)
			continue
		}

		if !c.hub.Dispatch(c, &ev, dispatchWait) {
			slog.Warn("Timeout dispatching event to hub", "connID", c.id)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			// One envelope per text frame
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("Error writing message", "connID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "connID", c.id, "error", err)
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// ServeWS upgrades the request and starts the connection's pumps.
func ServeWS(hub *Hub, upgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := NewClient(hub, conn)
	slog.Info("New WebSocket connection established", "connID", client.id)

	hub.Register(client)

	go client.writePump()
	go client.readPump()
}
