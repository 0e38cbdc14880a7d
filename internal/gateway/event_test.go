package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageEvent(t *testing.T) {
	date := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	ev, err := NewMessageEvent(MessageOut{Text: "hi", User: "anon-x", Date: date})
	require.NoError(t, err)

	assert.Equal(t, EventMessage, ev.Event)

	// Clients parse date as RFC3339 UTC
	var raw map[string]any
	require.NoError(t, json.Unmarshal(ev.Data, &raw))
	assert.Equal(t, "hi", raw["text"])
	assert.Equal(t, "anon-x", raw["user"])
	assert.Equal(t, "2025-06-01T12:30:00Z", raw["date"])
}

func TestEventNameIsValid(t *testing.T) {
	assert.True(t, EventJoin.IsValid())
	assert.True(t, EventMessage.IsValid())
	assert.False(t, EventName("shout").IsValid())
	assert.False(t, EventName("").IsValid())
}

func TestAnonUser(t *testing.T) {
	assert.Equal(t, "anon-1234", anonUser("1234"))
}
