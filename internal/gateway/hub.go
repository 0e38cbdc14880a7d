package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrClientDisconnected = errors.New("client disconnected")
	ErrSendBufferFull     = errors.New("send buffer full")
)

// ConnEvent pairs an inbound envelope with the connection that produced it
type ConnEvent struct {
	Conn  Conn
	Event *Event
}

// Hub owns the set of live connections and routes their inbound events.
// Registration, teardown and event routing all run on the single Run
// goroutine, so a room switch (leave-all then join) can never interleave with
// another connection's membership mutation, and broadcasts within one room
// are delivered in the order the hub processed them.
type Hub struct {
	registry *Registry

	// Live connections
	conns map[Conn]struct{}

	// Register requests from new connections
	register chan Conn

	// Unregister requests from disconnecting connections
	unregister chan Conn

	// Inbound envelopes from connections
	inbound chan ConnEvent

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc

	// Guards conns for reads outside the Run goroutine
	mu sync.RWMutex
}

func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		registry:   NewRegistry(),
		conns:      make(map[Conn]struct{}),
		register:   make(chan Conn),
		unregister: make(chan Conn),
		inbound:    make(chan ConnEvent, 64),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.handleRegister(c)

		case c := <-h.unregister:
			h.handleUnregister(c)

		case ce := <-h.inbound:
			h.handleEvent(ce.Conn, ce.Event)

		case <-h.ctx.Done():
			slog.Info("Gateway hub shutting down")
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

// Register hands a freshly connected transport to the hub
func (h *Hub) Register(c Conn) {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
	}
}

// Unregister tears a connection down; safe to call for a connection the hub
// never saw or already removed
func (h *Hub) Unregister(c Conn) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Dispatch queues an inbound envelope for routing. It blocks only while the
// hub's inbound buffer is full, and gives up on shutdown or after the
// timeout.
func (h *Hub) Dispatch(c Conn, e *Event, timeout time.Duration) bool {
	select {
	case h.inbound <- ConnEvent{Conn: c, Event: e}:
		return true
	case <-time.After(timeout):
		return false
	case <-h.ctx.Done():
		return false
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// RoomCount returns the number of rooms with at least one member.
func (h *Hub) RoomCount() int {
	return h.registry.RoomCount()
}

// RoomMembers returns the current member count of a room.
func (h *Hub) RoomMembers(room string) int {
	return len(h.registry.MembersOf(room))
}

func (h *Hub) handleRegister(c Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("Connection registered", "connID", c.ID())
}

// handleUnregister is the only membership cleanup path for a connection that
// never explicitly left its room.
func (h *Hub) handleUnregister(c Conn) {
	h.mu.Lock()
	_, ok := h.conns[c]
	if ok {
		delete(h.conns, c)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	h.registry.LeaveAll(c)
	slog.Info("Connection unregistered", "connID", c.ID())
}

func (h *Hub) handleEvent(c Conn, e *Event) {
	if e == nil || e.Validate() != nil {
		slog.Debug("Dropping unknown event", "connID", c.ID())
		return
	}

	switch e.Event {
	case EventJoin:
		h.handleJoin(c, e.Data)
	case EventMessage:
		h.handleMessage(c, e.Data)
	}
}

// handleJoin enforces the single-room-at-a-time policy: the connection leaves
// every room before entering the new one. No acknowledgement is sent.
func (h *Hub) handleJoin(c Conn, data json.RawMessage) {
	var room string
	if err := json.Unmarshal(data, &room); err != nil || room == "" {
		slog.Debug("Dropping malformed join payload", "connID", c.ID())
		return
	}

	slog.Debug("Received join", "connID", c.ID(), "room", room)

	h.registry.LeaveAll(c)
	h.registry.Join(c, room)
}

// handleMessage relays text to every current member of the target room,
// sender included. Delivery is best effort: a recipient that cannot accept
// the emit right now is skipped and the rest of the fan-out proceeds.
func (h *Hub) handleMessage(c Conn, data json.RawMessage) {
	var in MessageIn
	if err := json.Unmarshal(data, &in); err != nil || in.Room == nil || in.Text == nil {
		slog.Debug("Dropping malformed message payload", "connID", c.ID())
		return
	}

	slog.Debug("Received message", "connID", c.ID(), "room", *in.Room)

	out, err := NewMessageEvent(MessageOut{
		Text: *in.Text,
		User: anonUser(c.ID()),
		Date: time.Now().UTC(),
	})
	if err != nil {
		slog.Error("Failed to encode outbound message", "connID", c.ID(), "error", err)
		return
	}

	// Fan-out over the membership snapshot at dispatch time. An empty or
	// unknown room yields an empty snapshot and the message is dropped.
	for _, member := range h.registry.MembersOf(*in.Room) {
		if err := member.Send(out); err != nil {
			slog.Debug("Skipping recipient", "connID", member.ID(), "error", err)
		}
	}
}
