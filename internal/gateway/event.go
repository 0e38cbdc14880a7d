package gateway

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventName identifies the kind of an envelope using a custom enum type for
// better type safety
type EventName string

const (
	// EventJoin switches the sender into a room. Data is the room name as a
	// bare JSON string.
	EventJoin EventName = "join"

	// EventMessage carries chat text. Inbound data is MessageIn, outbound
	// data is MessageOut.
	EventMessage EventName = "message"
)

// String returns the string representation of the EventName
func (e EventName) String() string {
	return string(e)
}

// IsValid checks if the EventName is a valid enum value
func (e EventName) IsValid() bool {
	switch e {
	case EventJoin, EventMessage:
		return true
	default:
		return false
	}
}

// Event is the JSON envelope exchanged with clients over the websocket text
// channel. Data stays raw until the router knows which shape to decode.
type Event struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Validate validates the envelope shape
func (e *Event) Validate() error {
	if !e.Event.IsValid() {
		return fmt.Errorf("invalid event name: %s", e.Event)
	}
	return nil
}

// MessageIn is the inbound message payload. Pointer fields distinguish a
// missing key from an empty value; both keys are required.
type MessageIn struct {
	Room *string `json:"room"`
	Text *string `json:"text"`
}

// MessageOut is the outbound broadcast payload. User is a synthetic label
// derived from the sender's connection id, never an authenticated identity.
// Date is the router's processing time, not the client's send time.
type MessageOut struct {
	Text string    `json:"text"`
	User string    `json:"user"`
	Date time.Time `json:"date"`
}

// NewMessageEvent wraps an outbound payload in a message envelope
func NewMessageEvent(out MessageOut) (*Event, error) {
	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return &Event{Event: EventMessage, Data: data}, nil
}

// anonUser derives the synthetic sender label from a connection id. The label
// is not stable across reconnects.
func anonUser(connID string) string {
	return fmt.Sprintf("anon-%s", connID)
}
